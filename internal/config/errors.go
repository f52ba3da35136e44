package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoBBox is returned when no bounding box argument was provided.
	ErrNoBBox = errors.New("no bounding box specified: provide minLon,minLat,maxLon,maxLat")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxArea is returned when the bounding box area limit is not
	// positive. The limit protects both APIs from oversized requests.
	ErrInvalidMaxArea = errors.New("invalid max area: must be positive")

	// ErrNoOverpassURL is returned when Overpass downloading is requested
	// but the Overpass base URL is empty.
	ErrNoOverpassURL = errors.New("no Overpass URL configured")
)
