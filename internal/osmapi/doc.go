// Package osmapi implements the subset of the OSM API 0.6 that osmsandbox
// needs: bounded map downloads, the authenticated user details check,
// capabilities, changeset lifecycle, and per-element create/delete calls.
//
// # Fixed endpoints
//
// The production and sandbox base URLs are compile-time constants and the
// exported constructors accept no endpoint parameter. This is a safety
// property, not a configuration gap: the delete pass must never be pointed
// at the production server, so no flag, config file, or environment
// variable can change where a client talks to.
//
// # Politeness
//
// Every client carries a token-bucket rate limiter so that a run with many
// per-element calls does not hammer the public servers.
package osmapi
