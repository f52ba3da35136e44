// Package uploader drives the sandbox changeset lifecycle: verify the
// credentials, open a changeset, delete the sandbox's current contents,
// recreate the downloaded elements with fresh server-assigned IDs, and
// close the changeset.
//
// Element failures are collected rather than aborting the run, because a
// half-cleared sandbox is still better left consistent than abandoned
// mid-changeset. Only failures that make continuing pointless, like a
// rejected login or a changeset that will not open, end the run early.
// Once a changeset has been opened it is closed no matter how the run
// ends, so no changeset is left dangling on the server.
package uploader
