// Package prompt reads the sandbox account credentials interactively.
//
// The login is read with normal terminal echo. The password is read with
// echo disabled when standard input is a terminal, and falls back to a
// plain line read otherwise so the tool stays scriptable in tests and
// pipelines. Credentials are held in memory only; nothing in this package
// writes them to disk or to the log.
package prompt
