package prompt

import "errors"

// ErrCanceled is returned when the user aborts at a prompt, either by
// submitting an empty login or by declining a confirmation.
// Design decision: an abort is an expected outcome, not a failure, so the
// caller matches this sentinel with errors.Is and exits quietly instead of
// printing an error trace.
var ErrCanceled = errors.New("canceled by user")
