package osmapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/osmsandbox/internal/model"
)

// testBBox is a small valid bounding box used across tests.
var testBBox = model.BoundingBox{MinLon: 1.2, MinLat: 3.4, MaxLon: 1.3, MaxLat: 3.5}

// sampleMapXML is a minimal map response with one element of each type.
const sampleMapXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="openstreetmap-cgimap">
  <bounds minlat="3.4" minlon="1.2" maxlat="3.5" maxlon="1.3"/>
  <node id="101" version="3" lat="3.45" lon="1.25">
    <tag k="amenity" v="bench"/>
  </node>
  <node id="102" version="1" lat="3.46" lon="1.26"/>
  <way id="201" version="2">
    <nd ref="101"/>
    <nd ref="102"/>
    <tag k="highway" v="footway"/>
  </way>
  <relation id="301" version="5">
    <member type="way" ref="201" role="outer"/>
    <member type="node" ref="101" role=""/>
    <tag k="type" v="multipolygon"/>
  </relation>
</osm>`

func TestClientMap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/map" {
			http.NotFound(w, r)
			return
		}
		if bbox := r.URL.Query().Get("bbox"); bbox != testBBox.String() {
			t.Errorf("unexpected bbox query: %q", bbox)
		}
		w.Header().Set("Content-Type", "application/xml")
		if _, err := io.WriteString(w, sampleMapXML); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	elements, err := client.Map(context.Background(), testBBox)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(elements) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(elements))
	}

	byID := make(map[string]*model.Element)
	for _, el := range elements {
		byID[el.SID()] = el
	}

	node, ok := byID["node/101"]
	if !ok {
		t.Fatal("expected node/101 in result")
	}
	if node.Version != 3 || node.Lat != 3.45 || node.Lon != 1.25 {
		t.Errorf("unexpected node fields: %+v", node)
	}
	if node.Tags["amenity"] != "bench" {
		t.Errorf("unexpected node tags: %v", node.Tags)
	}

	way, ok := byID["way/201"]
	if !ok {
		t.Fatal("expected way/201 in result")
	}
	if len(way.NodeRefs) != 2 || way.NodeRefs[0] != 101 || way.NodeRefs[1] != 102 {
		t.Errorf("unexpected way node refs: %v", way.NodeRefs)
	}

	rel, ok := byID["relation/301"]
	if !ok {
		t.Fatal("expected relation/301 in result")
	}
	if len(rel.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(rel.Members))
	}
	if rel.Members[0].Type != model.TypeWay || rel.Members[0].Ref != 201 || rel.Members[0].Role != "outer" {
		t.Errorf("unexpected first member: %+v", rel.Members[0])
	}
}

func TestClientMapServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "something broke", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	_, err := client.Map(context.Background(), testBBox)
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Endpoint, "map") {
		t.Errorf("expected endpoint in error, got %q", apiErr.Endpoint)
	}
}

func TestClientMapMalformedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, err := io.WriteString(w, "<osm><node id="); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	_, err := client.Map(context.Background(), testBBox)
	if !errors.Is(err, ErrParsePayload) {
		t.Errorf("expected ErrParsePayload, got %v", err)
	}
}

func TestClientMapSplitsOnAreaTooLarge(t *testing.T) {
	t.Parallel()

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bbox := r.URL.Query().Get("bbox")
		requests = append(requests, bbox)

		// Reject the full box, accept the quadrants. Every quadrant
		// returns the same node to exercise deduplication.
		if bbox == testBBox.String() {
			http.Error(w, "You requested too many nodes", http.StatusBadRequest)
			return
		}
		if _, err := io.WriteString(w, `<osm version="0.6"><node id="7" version="1" lat="3.45" lon="1.25"/></osm>`); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	elements, err := client.Map(context.Background(), testBBox)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 rejected full-box request plus 4 quadrant requests.
	if len(requests) != 5 {
		t.Errorf("expected 5 requests, got %d: %v", len(requests), requests)
	}
	if len(elements) != 1 {
		t.Errorf("expected the shared node to be deduplicated, got %d elements", len(elements))
	}
}

func TestClientMapBlocked(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(509)
		if _, err := io.WriteString(w, "bandwidth limit exceeded"); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	_, err := client.Map(context.Background(), testBBox)
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("expected ErrBlocked, got %v", err)
	}
}

func TestClientUserDetails(t *testing.T) {
	t.Parallel()

	t.Run("accepted credentials", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "mapper" || pass != "hunter2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if _, err := io.WriteString(w, `<osm><user id="1" display_name="mapper"/></osm>`); err != nil {
				t.Error(err)
			}
		}))
		defer server.Close()

		client := newClient(server.URL+"/",
			WithCredentials(model.Credentials{Username: "mapper", Password: "hunter2"}))

		if err := client.UserDetails(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := newClient(server.URL+"/",
			WithCredentials(model.Credentials{Username: "mapper", Password: "wrong"}))

		if err := client.UserDetails(context.Background()); !errors.Is(err, ErrAuthRejected) {
			t.Errorf("expected ErrAuthRejected, got %v", err)
		}
	})
}

func TestClientCreateChangeset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/changeset/create" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		if !strings.Contains(string(body), "copy test") {
			t.Errorf("expected comment tag in payload, got %s", body)
		}
		if !strings.Contains(string(body), "osmsandbox-test") {
			t.Errorf("expected created_by tag in payload, got %s", body)
		}
		if _, err := io.WriteString(w, "4213\n"); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	id, err := client.CreateChangeset(context.Background(), "copy test", "osmsandbox-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 4213 {
		t.Errorf("expected changeset id 4213, got %d", id)
	}
}

func TestClientCloseChangeset(t *testing.T) {
	t.Parallel()

	var closed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/changeset/4213/close" {
			closed = true
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	if err := client.CloseChangeset(context.Background(), 4213); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Error("expected close call to reach the server")
	}
}

func TestClientCreateElement(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/node/create" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		payload := string(body)
		if !strings.Contains(payload, `changeset="4213"`) {
			t.Errorf("expected changeset attribute in payload: %s", payload)
		}
		if !strings.Contains(payload, `lat="3.45"`) || !strings.Contains(payload, `lon="1.25"`) {
			t.Errorf("expected coordinates in payload: %s", payload)
		}
		if _, err := io.WriteString(w, "900001"); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	el := &model.Element{
		Type: model.TypeNode,
		ID:   101,
		Lat:  3.45,
		Lon:  1.25,
		Tags: map[string]string{"amenity": "bench"},
	}

	newID, err := client.CreateElement(context.Background(), el, 4213)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newID != 900001 {
		t.Errorf("expected new id 900001, got %d", newID)
	}
}

func TestClientDeleteElement(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/way/201" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		payload := string(body)
		if !strings.Contains(payload, `version="2"`) || !strings.Contains(payload, `changeset="4213"`) {
			t.Errorf("expected version and changeset in payload: %s", payload)
		}
		if _, err := io.WriteString(w, "3"); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL + "/")

	el := &model.Element{Type: model.TypeWay, ID: 201, Version: 2}
	if err := client.DeleteElement(context.Background(), el, 4213); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientChangesetLimit(t *testing.T) {
	t.Parallel()

	t.Run("parses capabilities", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/capabilities" {
				http.NotFound(w, r)
				return
			}
			if _, err := io.WriteString(w, `<osm><api><changesets maximum_elements="50000"/></api></osm>`); err != nil {
				t.Error(err)
			}
		}))
		defer server.Close()

		client := newClient(server.URL + "/")

		limit, err := client.ChangesetLimit(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if limit != 50000 {
			t.Errorf("expected limit 50000, got %d", limit)
		}
	})

	t.Run("falls back to default on missing attribute", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if _, err := io.WriteString(w, `<osm><api/></osm>`); err != nil {
				t.Error(err)
			}
		}))
		defer server.Close()

		client := newClient(server.URL + "/")

		limit, err := client.ChangesetLimit(context.Background())
		if err == nil {
			t.Error("expected error for missing changeset limit")
		}
		if limit != defaultChangesetLimit {
			t.Errorf("expected default limit %d, got %d", defaultChangesetLimit, limit)
		}
	})
}

func TestClientSendsUserAgent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent/9" {
			t.Errorf("expected User-Agent test-agent/9, got %q", ua)
		}
		if _, err := io.WriteString(w, `<osm version="0.6"/>`); err != nil {
			t.Error(err)
		}
	}))
	defer server.Close()

	client := newClient(server.URL+"/", WithUserAgent("test-agent/9"))

	if _, err := client.Map(context.Background(), testBBox); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFixedEndpoints(t *testing.T) {
	t.Parallel()

	if NewProduction().BaseURL() != ProductionBaseURL {
		t.Error("production client must use the fixed production endpoint")
	}
	if NewSandbox().BaseURL() != SandboxBaseURL {
		t.Error("sandbox client must use the fixed sandbox endpoint")
	}
}
