package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bounding box validation errors.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() for programmatic handling while the wrapped message still
// carries the offending input. All of them represent the same fatal class
// of error (bad user input, reported before any network call is made).
var (
	// ErrBBoxComponentCount is returned when the bounding box string does not
	// split into exactly four comma-separated components.
	ErrBBoxComponentCount = errors.New("bounding box must have four comma-separated values (minLon,minLat,maxLon,maxLat)")

	// ErrBBoxNotANumber is returned when a bounding box component cannot be
	// parsed as a decimal number.
	ErrBBoxNotANumber = errors.New("bounding box value is not a number")

	// ErrBBoxOutOfRange is returned when a longitude is outside [-180, 180]
	// or a latitude is outside [-90, 90].
	ErrBBoxOutOfRange = errors.New("bounding box value out of range")

	// ErrBBoxEmptyExtent is returned when min >= max on either axis.
	// The bounding box web tool always emits min < max, so a degenerate box
	// indicates swapped or mistyped input rather than a tiny area.
	ErrBBoxEmptyExtent = errors.New("bounding box has no extent: min must be less than max on both axes")
)

// BoundingBox is a rectangular geographic area expressed as min/max
// longitude and latitude. It is created once from CLI input and treated
// as immutable afterwards.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ParseBBox parses a bounding box string in the form
// "minLon,minLat,maxLon,maxLat" as produced by bounding-box web tools.
// It validates component count, numeric syntax, coordinate ranges, and
// that min < max on both axes. It performs no I/O.
func ParseBBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: got %d values in %q", ErrBBoxComponentCount, len(parts), s)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %q", ErrBBoxNotANumber, strings.TrimSpace(p))
		}
		vals[i] = v
	}

	bbox := BoundingBox{
		MinLon: vals[0],
		MinLat: vals[1],
		MaxLon: vals[2],
		MaxLat: vals[3],
	}

	if bbox.MinLon < -180 || bbox.MaxLon > 180 {
		return BoundingBox{}, fmt.Errorf("%w: longitude must be within [-180, 180]", ErrBBoxOutOfRange)
	}
	if bbox.MinLat < -90 || bbox.MaxLat > 90 {
		return BoundingBox{}, fmt.Errorf("%w: latitude must be within [-90, 90]", ErrBBoxOutOfRange)
	}
	if bbox.MinLon >= bbox.MaxLon || bbox.MinLat >= bbox.MaxLat {
		return BoundingBox{}, fmt.Errorf("%w: %s", ErrBBoxEmptyExtent, s)
	}

	return bbox, nil
}

// String returns the bounding box in the "minLon,minLat,maxLon,maxLat"
// form expected by the OSM API map endpoint.
func (b BoundingBox) String() string {
	return strings.Join([]string{
		formatCoord(b.MinLon),
		formatCoord(b.MinLat),
		formatCoord(b.MaxLon),
		formatCoord(b.MaxLat),
	}, ",")
}

// Area returns the covered area in square degrees. It is used by the CLI
// to reject boxes that would download an unreasonable amount of data.
func (b BoundingBox) Area() float64 {
	return (b.MaxLon - b.MinLon) * (b.MaxLat - b.MinLat)
}

// Split divides the bounding box into four equal quadrants. The OSM API
// answers HTTP 400 when a map request covers too large an area; the fetcher
// then retries each quadrant separately and merges the results.
func (b BoundingBox) Split() [4]BoundingBox {
	halfLon := (b.MinLon + b.MaxLon) / 2
	halfLat := (b.MinLat + b.MaxLat) / 2
	return [4]BoundingBox{
		{MinLon: b.MinLon, MinLat: b.MinLat, MaxLon: halfLon, MaxLat: halfLat},
		{MinLon: b.MinLon, MinLat: halfLat, MaxLon: halfLon, MaxLat: b.MaxLat},
		{MinLon: halfLon, MinLat: b.MinLat, MaxLon: b.MaxLon, MaxLat: halfLat},
		{MinLon: halfLon, MinLat: halfLat, MaxLon: b.MaxLon, MaxLat: b.MaxLat},
	}
}

// formatCoord formats a coordinate with the shortest representation that
// round-trips, matching what the OSM API accepts in query strings.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
