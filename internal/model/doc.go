// Package model defines the core data structures shared across osmsandbox:
// bounding boxes, OSM elements (nodes, ways, relations), and the upload
// summary produced by a copy run.
//
// Design decision: The model package has no network or presentation logic.
// Fetchers (osmapi, overpass) produce these structures, the uploader consumes
// them, and the report package renders the summary. Keeping the types here
// avoids import cycles between those packages.
package model
