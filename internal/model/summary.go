package model

import "time"

// ElementErrorKind classifies a recoverable per-element failure during
// the upload run. These failures are accumulated into the UploadSummary
// and never abort the run.
type ElementErrorKind string

// Per-element error kinds.
const (
	// ErrorDeleteFailed means the sandbox rejected a delete call, for
	// example because the element is already gone or still referenced.
	ErrorDeleteFailed ElementErrorKind = "delete_failed"

	// ErrorCreateFailed means the sandbox rejected a create call.
	ErrorCreateFailed ElementErrorKind = "create_failed"

	// ErrorDanglingReference means a way or relation references an
	// element that was not created earlier in the same run, so the
	// element was skipped without a create call.
	ErrorDanglingReference ElementErrorKind = "dangling_reference"
)

// ElementError records one recoverable per-element failure.
type ElementError struct {
	// Kind classifies the failure.
	Kind ElementErrorKind `json:"kind"`

	// ElementType is the type of the affected element.
	ElementType ElementType `json:"element_type"`

	// ElementID is the ID of the affected element on the server it was
	// fetched from (sandbox ID for deletes, production ID for creates).
	ElementID int64 `json:"element_id"`

	// Message is the human-readable failure detail.
	Message string `json:"message"`
}

// UploadSummary reports the outcome of one copy run. It is a result list,
// not a pass/fail boolean: the sandbox may already be in an inconsistent
// state from other users, so individual failures are expected and the
// summary records exactly what happened.
type UploadSummary struct {
	// BBox is the bounding box the run covered.
	BBox string `json:"bbox"`

	// ChangesetID is the sandbox changeset that grouped all operations.
	// Zero if the run failed before the changeset was opened.
	ChangesetID int64 `json:"changeset_id"`

	// Date is when the run started.
	Date time.Time `json:"date"`

	// DeleteAttempted is the number of delete calls issued.
	DeleteAttempted int `json:"delete_attempted"`

	// Deleted is the number of elements successfully deleted.
	Deleted int `json:"deleted"`

	// CreateAttempted is the number of elements considered for creation,
	// including ones skipped for dangling references.
	CreateAttempted int `json:"create_attempted"`

	// Created is the number of elements successfully created.
	Created int `json:"created"`

	// Skipped is the number of elements skipped because of dangling
	// references.
	Skipped int `json:"skipped"`

	// Errors lists every recoverable per-element failure in the order
	// it occurred.
	Errors []ElementError `json:"errors,omitempty"`
}

// NewUploadSummary creates an UploadSummary for the given bounding box
// with the start time set to now.
func NewUploadSummary(bbox BoundingBox) *UploadSummary {
	return &UploadSummary{
		BBox: bbox.String(),
		Date: time.Now(),
	}
}

// AddError appends a per-element failure to the summary.
func (s *UploadSummary) AddError(kind ElementErrorKind, el *Element, message string) {
	s.Errors = append(s.Errors, ElementError{
		Kind:        kind,
		ElementType: el.Type,
		ElementID:   el.ID,
		Message:     message,
	})
}

// Succeeded reports whether the run created at least one element.
// The CLI exit status is zero only for successful runs.
func (s *UploadSummary) Succeeded() bool {
	return s.Created > 0
}

// ErrorsOfKind returns the recorded errors matching the given kind.
func (s *UploadSummary) ErrorsOfKind(kind ElementErrorKind) []ElementError {
	var out []ElementError
	for _, e := range s.Errors {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
