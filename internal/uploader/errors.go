package uploader

import "errors"

var (
	// ErrAuthCheck is returned when the credential check against the
	// sandbox fails before any changeset is opened.
	// Design decision: a rejected login ends the run immediately with no
	// retry. Re-prompting in a loop hides typos in scripts and hammering
	// the auth endpoint helps nobody.
	ErrAuthCheck = errors.New("sandbox rejected the credentials")

	// ErrChangesetOpen is returned when the changeset cannot be created.
	// Nothing has been modified at that point, so the run aborts cleanly.
	ErrChangesetOpen = errors.New("failed to open changeset")

	// ErrChangesetClose is returned when closing the changeset fails after
	// the element work is done. The server closes idle changesets on its
	// own after an hour, so this is reported but the summary still counts.
	ErrChangesetClose = errors.New("failed to close changeset")
)
