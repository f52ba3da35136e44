// Package config provides configuration structures and utilities for
// osmsandbox. It defines defaults for timeouts, the Overpass instance,
// changeset metadata, and report output preferences.
//
// The production and sandbox OSM API endpoints are intentionally NOT part
// of the configuration: pointing the deletion pass at the production server
// would be destructive, so those addresses live as constants in the osmapi
// package and cannot be overridden by flags or config files.
package config
