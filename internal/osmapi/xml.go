package osmapi

import (
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/osmsandbox/internal/model"
)

// osmTag is a single <tag k="..." v="..."/> entry.
type osmTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// osmNodeRef is a single <nd ref="..."/> entry inside a way.
type osmNodeRef struct {
	Ref int64 `xml:"ref,attr"`
}

// osmMember is a single <member .../> entry inside a relation.
type osmMember struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

// osmNode mirrors a <node> element in an OSM XML document. The same struct
// serves both parsing map responses and building create/delete payloads;
// builders fill only the attributes the API requires for the call.
type osmNode struct {
	XMLName   xml.Name   `xml:"node"`
	ID        int64      `xml:"id,attr,omitempty"`
	Version   int64      `xml:"version,attr,omitempty"`
	Changeset int64      `xml:"changeset,attr,omitempty"`
	Lat       *float64   `xml:"lat,attr,omitempty"`
	Lon       *float64   `xml:"lon,attr,omitempty"`
	Tags      []osmTag   `xml:"tag"`
}

// osmWay mirrors a <way> element.
type osmWay struct {
	XMLName   xml.Name     `xml:"way"`
	ID        int64        `xml:"id,attr,omitempty"`
	Version   int64        `xml:"version,attr,omitempty"`
	Changeset int64        `xml:"changeset,attr,omitempty"`
	NodeRefs  []osmNodeRef `xml:"nd"`
	Tags      []osmTag     `xml:"tag"`
}

// osmRelation mirrors a <relation> element.
type osmRelation struct {
	XMLName   xml.Name    `xml:"relation"`
	ID        int64       `xml:"id,attr,omitempty"`
	Version   int64       `xml:"version,attr,omitempty"`
	Changeset int64       `xml:"changeset,attr,omitempty"`
	Members   []osmMember `xml:"member"`
	Tags      []osmTag    `xml:"tag"`
}

// osmChangeset mirrors a <changeset> element in a changeset/create payload.
type osmChangeset struct {
	XMLName xml.Name `xml:"changeset"`
	Tags    []osmTag `xml:"tag"`
}

// osmDocument is the <osm> root of every API payload and response this
// client deals with.
type osmDocument struct {
	XMLName    xml.Name       `xml:"osm"`
	Version    string         `xml:"version,attr,omitempty"`
	Generator  string         `xml:"generator,attr,omitempty"`
	Nodes      []osmNode      `xml:"node"`
	Ways       []osmWay       `xml:"way"`
	Relations  []osmRelation  `xml:"relation"`
	Changesets []osmChangeset `xml:"changeset"`
}

// osmCapabilities mirrors the relevant slice of the capabilities response.
type osmCapabilities struct {
	XMLName xml.Name `xml:"osm"`
	API     struct {
		Changesets struct {
			MaximumElements int `xml:"maximum_elements,attr"`
		} `xml:"changesets"`
	} `xml:"api"`
}

// decodeOSM parses an OSM XML document from r. The decoder is charset
// aware because older planet extracts and third-party instances may
// declare non-UTF-8 encodings in the XML prolog.
func decodeOSM(r io.Reader, into any) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("%w: %v", ErrParsePayload, err)
	}
	return nil
}

// DecodeElements parses an OSM XML document into model elements. It is
// shared with the overpass package, whose responses use the same schema
// as the map endpoint.
func DecodeElements(r io.Reader) ([]*model.Element, error) {
	var doc osmDocument
	if err := decodeOSM(r, &doc); err != nil {
		return nil, err
	}
	return elementsFromDocument(&doc), nil
}

// elementsFromDocument converts a parsed map response into model elements.
func elementsFromDocument(doc *osmDocument) []*model.Element {
	elements := make([]*model.Element, 0, len(doc.Nodes)+len(doc.Ways)+len(doc.Relations))

	for _, n := range doc.Nodes {
		el := &model.Element{
			Type:    model.TypeNode,
			ID:      n.ID,
			Version: n.Version,
			Tags:    tagsToMap(n.Tags),
		}
		if n.Lat != nil {
			el.Lat = *n.Lat
		}
		if n.Lon != nil {
			el.Lon = *n.Lon
		}
		elements = append(elements, el)
	}

	for _, w := range doc.Ways {
		refs := make([]int64, 0, len(w.NodeRefs))
		for _, nd := range w.NodeRefs {
			refs = append(refs, nd.Ref)
		}
		elements = append(elements, &model.Element{
			Type:     model.TypeWay,
			ID:       w.ID,
			Version:  w.Version,
			Tags:     tagsToMap(w.Tags),
			NodeRefs: refs,
		})
	}

	for _, r := range doc.Relations {
		members := make([]model.Member, 0, len(r.Members))
		for _, m := range r.Members {
			members = append(members, model.Member{
				Type: model.ElementType(m.Type),
				Ref:  m.Ref,
				Role: m.Role,
			})
		}
		elements = append(elements, &model.Element{
			Type:    model.TypeRelation,
			ID:      r.ID,
			Version: r.Version,
			Tags:    tagsToMap(r.Tags),
			Members: members,
		})
	}

	return elements
}

// tagsToMap converts XML tag entries into the model's tag map.
// Keys are unique in valid OSM data; a duplicate key keeps the last value.
func tagsToMap(tags []osmTag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.K] = t.V
	}
	return m
}

// mapToTags converts the model's tag map into XML tag entries.
func mapToTags(tags map[string]string) []osmTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]osmTag, 0, len(tags))
	for k, v := range tags {
		out = append(out, osmTag{K: k, V: v})
	}
	return out
}

// createPayload builds the <osm> document for a {type}/create call.
// The element's references must already be remapped to sandbox IDs.
func createPayload(el *model.Element, changesetID int64) ([]byte, error) {
	doc := osmDocument{}

	switch el.Type {
	case model.TypeNode:
		lat, lon := el.Lat, el.Lon
		doc.Nodes = append(doc.Nodes, osmNode{
			Changeset: changesetID,
			Lat:       &lat,
			Lon:       &lon,
			Tags:      mapToTags(el.Tags),
		})
	case model.TypeWay:
		refs := make([]osmNodeRef, 0, len(el.NodeRefs))
		for _, ref := range el.NodeRefs {
			refs = append(refs, osmNodeRef{Ref: ref})
		}
		doc.Ways = append(doc.Ways, osmWay{
			Changeset: changesetID,
			NodeRefs:  refs,
			Tags:      mapToTags(el.Tags),
		})
	case model.TypeRelation:
		members := make([]osmMember, 0, len(el.Members))
		for _, m := range el.Members {
			members = append(members, osmMember{
				Type: string(m.Type),
				Ref:  m.Ref,
				Role: m.Role,
			})
		}
		doc.Relations = append(doc.Relations, osmRelation{
			Changeset: changesetID,
			Members:   members,
			Tags:      mapToTags(el.Tags),
		})
	default:
		return nil, fmt.Errorf("unknown element type %q", el.Type)
	}

	return xml.Marshal(doc)
}

// deletePayload builds the <osm> document for a DELETE {type}/{id} call.
// The API requires only the id, version, and owning changeset.
func deletePayload(el *model.Element, changesetID int64) ([]byte, error) {
	doc := osmDocument{}

	switch el.Type {
	case model.TypeNode:
		doc.Nodes = append(doc.Nodes, osmNode{
			ID:        el.ID,
			Version:   el.Version,
			Changeset: changesetID,
		})
	case model.TypeWay:
		doc.Ways = append(doc.Ways, osmWay{
			ID:        el.ID,
			Version:   el.Version,
			Changeset: changesetID,
		})
	case model.TypeRelation:
		doc.Relations = append(doc.Relations, osmRelation{
			ID:        el.ID,
			Version:   el.Version,
			Changeset: changesetID,
		})
	default:
		return nil, fmt.Errorf("unknown element type %q", el.Type)
	}

	return xml.Marshal(doc)
}

// changesetPayload builds the <osm> document for a changeset/create call.
func changesetPayload(comment, createdBy string) ([]byte, error) {
	doc := osmDocument{
		Changesets: []osmChangeset{{
			Tags: []osmTag{
				{K: "comment", V: comment},
				{K: "created_by", V: createdBy},
			},
		}},
	}
	return xml.Marshal(doc)
}
