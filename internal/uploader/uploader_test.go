package uploader

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nao1215/osmsandbox/internal/model"
	"github.com/nao1215/osmsandbox/internal/osmapi"
)

var testBBox = model.BoundingBox{MinLon: 7.3, MinLat: 47.2, MaxLon: 7.4, MaxLat: 47.3}

// fakeAPI records every call in order and can be programmed to fail
// individual operations. Like the real client it refuses to issue a call
// on a dead context.
type fakeAPI struct {
	calls []string

	authErr      error
	openErr      error
	closeErr     error
	deleteErr    map[string]error
	createErr    map[string]error
	nextID       int64
	closeCount   int
	changesetIDs []int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		deleteErr: make(map[string]error),
		createErr: make(map[string]error),
		nextID:    100,
	}
}

func (f *fakeAPI) UserDetails(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.calls = append(f.calls, "user/details")
	return f.authErr
}

func (f *fakeAPI) CreateChangeset(ctx context.Context, _, _ string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.calls = append(f.calls, "changeset/create")
	if f.openErr != nil {
		return 0, f.openErr
	}
	return 42, nil
}

func (f *fakeAPI) CloseChangeset(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.calls = append(f.calls, "changeset/close")
	f.closeCount++
	f.changesetIDs = append(f.changesetIDs, id)
	return f.closeErr
}

func (f *fakeAPI) CreateElement(ctx context.Context, el *model.Element, _ int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.calls = append(f.calls, "create "+el.SID())
	if err := f.createErr[el.SID()]; err != nil {
		return 0, err
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAPI) DeleteElement(ctx context.Context, el *model.Element, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.calls = append(f.calls, "delete "+el.SID())
	return f.deleteErr[el.SID()]
}

// created returns the SIDs passed to CreateElement in call order.
func (f *fakeAPI) created() []string {
	var out []string
	for _, c := range f.calls {
		if len(c) > 7 && c[:7] == "create " {
			out = append(out, c[7:])
		}
	}
	return out
}

// deleted returns the SIDs passed to DeleteElement in call order.
func (f *fakeAPI) deleted() []string {
	var out []string
	for _, c := range f.calls {
		if len(c) > 7 && c[:7] == "delete " {
			out = append(out, c[7:])
		}
	}
	return out
}

func node(id int64) *model.Element {
	return &model.Element{Type: model.TypeNode, ID: id, Version: 1, Lat: 47.25, Lon: 7.35}
}

func way(id int64, refs ...int64) *model.Element {
	return &model.Element{Type: model.TypeWay, ID: id, Version: 1, NodeRefs: refs}
}

func relation(id int64, members ...model.Member) *model.Element {
	return &model.Element{Type: model.TypeRelation, ID: id, Version: 1, Members: members}
}

func TestUploaderRunDeleteOrder(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	u := NewUploader(api)

	toDelete := []*model.Element{node(1), way(2, 1), relation(3), node(4)}

	if _, err := u.Run(context.Background(), testBBox, toDelete, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"relation/3", "way/2", "node/4", "node/1"}
	got := api.deleted()
	if len(got) != len(want) {
		t.Fatalf("expected %d deletes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delete %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestUploaderRunCreateOrderAndRemap(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()

	n1, n2 := node(10), node(20)
	w := way(30, 10, 20)
	r := relation(40,
		model.Member{Type: model.TypeNode, Ref: 10, Role: "stop"},
		model.Member{Type: model.TypeWay, Ref: 30, Role: ""},
	)

	// The spy captures the way payload that actually went to the server
	// so the remapped references can be checked.
	var createdWay *model.Element
	spy := &spyAPI{fakeAPI: api, onCreate: func(el *model.Element) {
		if el.Type == model.TypeWay {
			createdWay = el
		}
	}}
	u := NewUploader(spy)

	summary, err := u.Run(context.Background(), testBBox, nil, []*model.Element{r, w, n2, n1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"node/10", "node/20", "way/30", "relation/40"}
	got := api.created()
	if len(got) != len(want) {
		t.Fatalf("expected %d creates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("create %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// node/10 got ID 101, node/20 got 102, way/30 got 103.
	if createdWay == nil {
		t.Fatal("way was not created")
	}
	if createdWay.NodeRefs[0] != 101 || createdWay.NodeRefs[1] != 102 {
		t.Errorf("expected way refs remapped to [101 102], got %v", createdWay.NodeRefs)
	}

	if summary.Created != 4 {
		t.Errorf("expected 4 created, got %d", summary.Created)
	}
	if !summary.Succeeded() {
		t.Error("expected the run to count as succeeded")
	}
}

// spyAPI forwards to fakeAPI and additionally inspects create payloads.
type spyAPI struct {
	*fakeAPI
	onCreate func(el *model.Element)
}

func (s *spyAPI) CreateElement(ctx context.Context, el *model.Element, changesetID int64) (int64, error) {
	if s.onCreate != nil {
		s.onCreate(el)
	}
	return s.fakeAPI.CreateElement(ctx, el, changesetID)
}

func TestUploaderRunDanglingReference(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	u := NewUploader(api)

	// way/30 references node/99 which is not part of the download.
	toCreate := []*model.Element{node(10), way(30, 10, 99)}

	summary, err := u.Run(context.Background(), testBBox, nil, toCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Created != 1 {
		t.Errorf("expected 1 created, got %d", summary.Created)
	}
	if summary.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", summary.Skipped)
	}
	dangling := summary.ErrorsOfKind(model.ErrorDanglingReference)
	if len(dangling) != 1 {
		t.Fatalf("expected 1 dangling reference error, got %d", len(dangling))
	}
	if dangling[0].ElementID != 30 {
		t.Errorf("expected the way to be reported, got %s/%d", dangling[0].ElementType, dangling[0].ElementID)
	}

	// No create call reached the server for the skipped way.
	for _, sid := range api.created() {
		if sid == "way/30" {
			t.Error("skipped way must not be submitted")
		}
	}
}

func TestUploaderRunContinuesAfterElementFailures(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.deleteErr["node/1"] = fmt.Errorf("precondition failed")
	api.createErr["node/10"] = fmt.Errorf("server error")
	u := NewUploader(api)

	summary, err := u.Run(context.Background(), testBBox,
		[]*model.Element{node(1), node(2)},
		[]*model.Element{node(10), node(20)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.DeleteAttempted != 2 || summary.Deleted != 1 {
		t.Errorf("expected 2 attempted / 1 deleted, got %d / %d",
			summary.DeleteAttempted, summary.Deleted)
	}
	if summary.CreateAttempted != 2 || summary.Created != 1 {
		t.Errorf("expected 2 attempted / 1 created, got %d / %d",
			summary.CreateAttempted, summary.Created)
	}
	if len(summary.ErrorsOfKind(model.ErrorDeleteFailed)) != 1 {
		t.Error("expected one delete failure recorded")
	}
	if len(summary.ErrorsOfKind(model.ErrorCreateFailed)) != 1 {
		t.Error("expected one create failure recorded")
	}
	if api.closeCount != 1 {
		t.Errorf("expected exactly one close call, got %d", api.closeCount)
	}
}

func TestUploaderRunAuthRejected(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.authErr = osmapi.ErrAuthRejected
	u := NewUploader(api)

	summary, err := u.Run(context.Background(), testBBox, nil, []*model.Element{node(1)})
	if !errors.Is(err, ErrAuthCheck) {
		t.Fatalf("expected ErrAuthCheck, got %v", err)
	}
	if summary.ChangesetID != 0 {
		t.Error("no changeset may be opened after a rejected login")
	}
	for _, c := range api.calls {
		if c == "changeset/create" {
			t.Error("changeset/create must not be called after a rejected login")
		}
	}
}

func TestUploaderRunChangesetOpenFails(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.openErr = fmt.Errorf("boom")
	u := NewUploader(api)

	_, err := u.Run(context.Background(), testBBox, nil, []*model.Element{node(1)})
	if !errors.Is(err, ErrChangesetOpen) {
		t.Fatalf("expected ErrChangesetOpen, got %v", err)
	}
	if api.closeCount != 0 {
		t.Error("a changeset that never opened must not be closed")
	}
}

func TestUploaderRunChangesetCloseFails(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.closeErr = fmt.Errorf("boom")
	u := NewUploader(api)

	summary, err := u.Run(context.Background(), testBBox, nil, []*model.Element{node(1)})
	if !errors.Is(err, ErrChangesetClose) {
		t.Fatalf("expected ErrChangesetClose, got %v", err)
	}
	if summary.Created != 1 {
		t.Errorf("expected the element work to complete, got %d created", summary.Created)
	}
}

// cancelingAPI cancels the run context on the first delete call, like an
// interrupt arriving while the delete pass is underway.
type cancelingAPI struct {
	*fakeAPI
	cancel context.CancelFunc
}

func (c *cancelingAPI) DeleteElement(ctx context.Context, el *model.Element, changesetID int64) error {
	c.cancel()
	return c.fakeAPI.DeleteElement(ctx, el, changesetID)
}

func TestUploaderRunClosesChangesetOnCancel(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u := NewUploader(&cancelingAPI{fakeAPI: api, cancel: cancel})

	_, err := u.Run(ctx, testBBox, []*model.Element{node(1), node(2)}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The fake refuses calls on a dead context, so the close succeeding
	// proves it was issued with a context that survives the cancel.
	if api.closeCount != 1 {
		t.Errorf("expected the changeset to be closed after cancellation, got %d close calls", api.closeCount)
	}
	if len(api.changesetIDs) != 1 || api.changesetIDs[0] != 42 {
		t.Errorf("expected changeset 42 to be closed, got %v", api.changesetIDs)
	}
}

func TestUploaderRunFullCopy(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	u := NewUploader(api)

	toDelete := []*model.Element{node(1), node(2)}
	toCreate := []*model.Element{
		node(10), node(11), node(12), node(13), node(14),
		way(20, 10, 11, 12, 13, 14),
	}

	summary, err := u.Run(context.Background(), testBBox, toDelete, toCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", summary.Deleted)
	}
	if summary.Created != 6 {
		t.Errorf("expected 6 created, got %d", summary.Created)
	}
	if summary.Skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", summary.Skipped)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("expected no errors, got %v", summary.Errors)
	}
	if summary.ChangesetID != 42 {
		t.Errorf("expected changeset 42, got %d", summary.ChangesetID)
	}
	if api.closeCount != 1 {
		t.Errorf("expected exactly one close call, got %d", api.closeCount)
	}
	if !summary.Succeeded() {
		t.Error("expected the run to count as succeeded")
	}
}
