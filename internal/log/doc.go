// Package log provides secure logging functionality with automatic
// sanitization of credentials, built on top of the standard slog package.
//
// osmsandbox holds the user's OSM sandbox username and password in memory
// for the duration of a run and must never write them to logs, even in
// verbose mode. The SecureHandler masks:
//   - Authorization headers (Basic and Bearer values)
//   - Password, token, and credential attributes by key name
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("request sent",
//	    "authorization", "Basic dXNlcjpwYXNz", // masked
//	    "url", "https://master.apis.dev.openstreetmap.org/api/0.6/map",
//	)
package log
