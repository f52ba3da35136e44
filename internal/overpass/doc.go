// Package overpass downloads bounded map extracts from an Overpass API
// instance as an alternative to the OSM API map endpoint.
//
// Overpass serves a mirrored copy of the production database, so it can
// answer larger extracts without loading the live API servers. The trade-off
// is that the mirror lags the live database by a few minutes, which does not
// matter for sandbox practice data.
//
// Unlike the OSM API endpoints, the Overpass instance is configurable:
// Overpass is read-only, so pointing the tool at the wrong instance cannot
// destroy anything.
package overpass
