package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/osmsandbox/internal/model"
	"github.com/nao1215/osmsandbox/internal/osmapi"
)

// SandboxAPI is the slice of the sandbox client the uploader needs.
// Accepting an interface keeps the changeset lifecycle testable without
// a network.
type SandboxAPI interface {
	// UserDetails verifies the credentials against the server.
	UserDetails(ctx context.Context) error
	// CreateChangeset opens a changeset and returns its ID.
	CreateChangeset(ctx context.Context, comment, createdBy string) (int64, error)
	// CloseChangeset closes the changeset with the given ID.
	CloseChangeset(ctx context.Context, id int64) error
	// CreateElement creates the element and returns the server-assigned ID.
	CreateElement(ctx context.Context, el *model.Element, changesetID int64) (int64, error)
	// DeleteElement deletes the element under the given changeset.
	DeleteElement(ctx context.Context, el *model.Element, changesetID int64) error
}

// Uploader clears the sandbox and recreates the downloaded elements
// inside a single changeset.
type Uploader struct {
	// api is the sandbox client.
	api SandboxAPI

	// comment is the changeset comment tag.
	comment string

	// createdBy is the changeset created_by tag.
	createdBy string

	// logger is used for structured progress logging.
	logger *slog.Logger
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithComment sets the changeset comment tag.
func WithComment(comment string) Option {
	return func(u *Uploader) {
		u.comment = comment
	}
}

// WithCreatedBy sets the changeset created_by tag.
func WithCreatedBy(createdBy string) Option {
	return func(u *Uploader) {
		u.createdBy = createdBy
	}
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// NewUploader creates an Uploader that talks to the given sandbox API.
func NewUploader(api SandboxAPI, opts ...Option) *Uploader {
	u := &Uploader{
		api:       api,
		comment:   "Copy production data into the sandbox",
		createdBy: "osmsandbox",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Run executes one copy: delete toDelete from the sandbox, then recreate
// toCreate with fresh server-assigned IDs, all inside a single changeset.
//
// Per-element failures are recorded in the summary and the run continues.
// The returned error is non-nil only for failures that end the run early:
// a rejected login, a changeset that will not open, or a canceled context.
// The summary is returned even alongside an error so the caller can report
// whatever work was completed.
func (u *Uploader) Run(ctx context.Context, bbox model.BoundingBox, toDelete, toCreate []*model.Element) (*model.UploadSummary, error) {
	summary := model.NewUploadSummary(bbox)

	if err := u.api.UserDetails(ctx); err != nil {
		if errors.Is(err, osmapi.ErrAuthRejected) {
			return summary, fmt.Errorf("%w: %v", ErrAuthCheck, err)
		}
		return summary, fmt.Errorf("credential check: %w", err)
	}

	changesetID, err := u.api.CreateChangeset(ctx, u.comment, u.createdBy)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrChangesetOpen, err)
	}
	summary.ChangesetID = changesetID
	u.logger.Info("changeset opened", "changeset", changesetID)

	runErr := u.runElements(ctx, changesetID, summary, toDelete, toCreate)

	// The changeset is closed no matter how the element work ended. The
	// close uses a context that survives cancellation: after a SIGINT the
	// run context is already dead, and a close issued with it would never
	// reach the server, leaving the changeset open until it times out.
	// A close failure is only surfaced when nothing worse happened first.
	closeCtx := context.WithoutCancel(ctx)
	if err := u.api.CloseChangeset(closeCtx, changesetID); err != nil {
		u.logger.Warn("failed to close changeset", "changeset", changesetID, "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("%w: %v", ErrChangesetClose, err)
		}
	} else {
		u.logger.Info("changeset closed", "changeset", changesetID)
	}

	return summary, runErr
}

// runElements performs the delete and create passes. It returns an error
// only when the context is canceled.
func (u *Uploader) runElements(ctx context.Context, changesetID int64, summary *model.UploadSummary, toDelete, toCreate []*model.Element) error {
	if err := u.deleteAll(ctx, changesetID, summary, toDelete); err != nil {
		return err
	}
	return u.createAll(ctx, changesetID, summary, toCreate)
}

// deleteAll removes the sandbox's current elements, relations first so no
// element is deleted while something that references it remains.
func (u *Uploader) deleteAll(ctx context.Context, changesetID int64, summary *model.UploadSummary, elements []*model.Element) error {
	ordered := make([]*model.Element, len(elements))
	copy(ordered, elements)
	model.SortForDelete(ordered)

	for _, el := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary.DeleteAttempted++
		if err := u.api.DeleteElement(ctx, el, changesetID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.AddError(model.ErrorDeleteFailed, el, err.Error())
			u.logger.Warn("delete failed", "element", el.SID(), "error", err)
			continue
		}
		summary.Deleted++
	}

	u.logger.Info("delete pass complete",
		"attempted", summary.DeleteAttempted, "deleted", summary.Deleted)
	return nil
}

// createAll recreates the downloaded elements, nodes first, renumbering
// references as the sandbox assigns new IDs. An element whose reference
// was not created earlier in the run is skipped, because submitting it
// would fail on the server anyway.
func (u *Uploader) createAll(ctx context.Context, changesetID int64, summary *model.UploadSummary, elements []*model.Element) error {
	ordered := make([]*model.Element, len(elements))
	copy(ordered, elements)
	model.SortForCreate(ordered)

	// idMap translates "type/oldID" into the sandbox-assigned ID.
	idMap := make(map[string]int64, len(ordered))

	for _, el := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}

		summary.CreateAttempted++

		remapped, missing := remapReferences(el, idMap)
		if missing != "" {
			summary.Skipped++
			summary.AddError(model.ErrorDanglingReference, el,
				fmt.Sprintf("references %s which was not created in this run", missing))
			u.logger.Warn("skipping element with dangling reference",
				"element", el.SID(), "missing", missing)
			continue
		}

		newID, err := u.api.CreateElement(ctx, remapped, changesetID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.AddError(model.ErrorCreateFailed, el, err.Error())
			u.logger.Warn("create failed", "element", el.SID(), "error", err)
			continue
		}

		idMap[el.SID()] = newID
		summary.Created++
	}

	u.logger.Info("create pass complete",
		"attempted", summary.CreateAttempted, "created", summary.Created,
		"skipped", summary.Skipped)
	return nil
}

// remapReferences returns a copy of el with every reference translated to
// its sandbox-assigned ID. When a reference has no entry in idMap the
// second return value names it and the copy is nil.
func remapReferences(el *model.Element, idMap map[string]int64) (*model.Element, string) {
	out := *el

	switch el.Type {
	case model.TypeWay:
		refs := make([]int64, len(el.NodeRefs))
		for i, ref := range el.NodeRefs {
			key := fmt.Sprintf("%s/%d", model.TypeNode, ref)
			newID, ok := idMap[key]
			if !ok {
				return nil, key
			}
			refs[i] = newID
		}
		out.NodeRefs = refs
	case model.TypeRelation:
		members := make([]model.Member, len(el.Members))
		for i, m := range el.Members {
			key := fmt.Sprintf("%s/%d", m.Type, m.Ref)
			newID, ok := idMap[key]
			if !ok {
				return nil, key
			}
			members[i] = model.Member{Type: m.Type, Ref: newID, Role: m.Role}
		}
		out.Members = members
	}

	return &out, ""
}
