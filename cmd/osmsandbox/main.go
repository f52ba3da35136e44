// Package main provides the entry point for the osmsandbox CLI.
//
// osmsandbox copies real OpenStreetMap data for a bounding box into the
// public editing sandbox. It clears the sandbox area first, then recreates
// the downloaded elements inside a single authenticated changeset.
//
// Usage:
//
//	osmsandbox <minLon>,<minLat>,<maxLon>,<maxLat>
//
// See --help for all available options.
package main

// main is the entry point for osmsandbox.
func main() {
	Execute()
}
