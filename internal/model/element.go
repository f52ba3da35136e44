package model

import (
	"fmt"
	"sort"
)

// ElementType identifies one of the three OSM primitive types.
type ElementType string

// The three OSM element types. The constant values match the XML tag
// names used by the OSM API.
const (
	TypeNode     ElementType = "node"
	TypeWay      ElementType = "way"
	TypeRelation ElementType = "relation"
)

// order returns the dependency rank of the type: nodes carry no references,
// ways reference nodes, relations reference both. Creation walks this order
// ascending, deletion descending.
func (t ElementType) order() int {
	switch t {
	case TypeNode:
		return 0
	case TypeWay:
		return 1
	case TypeRelation:
		return 2
	default:
		return 3
	}
}

// Valid reports whether t is one of the three known element types.
func (t ElementType) Valid() bool {
	return t == TypeNode || t == TypeWay || t == TypeRelation
}

// Member is a single entry in a relation: a reference to another element
// together with the role it plays in the relation.
type Member struct {
	Type ElementType `json:"type"`
	Ref  int64       `json:"ref"`
	Role string      `json:"role"`
}

// Element is an OSM node, way, or relation as fetched from an API.
//
// Elements fetched from the sandbox carry the server-assigned ID and
// Version needed for deletion. Elements fetched from the production
// source carry only their own ID; the uploader renumbers them as the
// sandbox assigns new IDs during creation.
type Element struct {
	// Type is one of node, way, or relation.
	Type ElementType `json:"type"`

	// ID is the element identifier on the server it was fetched from.
	ID int64 `json:"id"`

	// Version is the element version, required by the API for deletion.
	Version int64 `json:"version"`

	// Lat and Lon are the coordinates of a node. They are meaningless
	// for ways and relations.
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`

	// Tags holds the element's key/value tags. Keys are unique.
	Tags map[string]string `json:"tags,omitempty"`

	// NodeRefs is the ordered list of node IDs a way passes through.
	// Only set for ways.
	NodeRefs []int64 `json:"node_refs,omitempty"`

	// Members is the ordered list of relation members.
	// Only set for relations.
	Members []Member `json:"members,omitempty"`
}

// SID returns a stable "type/id" string identifying the element across
// both servers, e.g. "node/42". It is used as a map key when merging
// fetch results and in error reports.
func (e *Element) SID() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// SortForCreate orders elements so that every element precedes anything
// that references it: nodes first, then ways, then relations, with IDs
// ascending within each type for determinism.
func SortForCreate(elements []*Element) {
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Type.order() != elements[j].Type.order() {
			return elements[i].Type.order() < elements[j].Type.order()
		}
		return elements[i].ID < elements[j].ID
	})
}

// SortForDelete orders elements so that every element precedes anything
// it references: relations first, then ways, then nodes. This way no node
// is submitted for deletion while a way or relation that still references
// it remains on the server.
func SortForDelete(elements []*Element) {
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Type.order() != elements[j].Type.order() {
			return elements[i].Type.order() > elements[j].Type.order()
		}
		return elements[i].ID > elements[j].ID
	})
}
