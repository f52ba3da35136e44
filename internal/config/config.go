package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to be polite to the public OSM infrastructure
// while matching the behavior of the original sandbox-copy workflow.
const (
	// DefaultTimeout is generous because a map download for a dense urban
	// bounding box can take the server tens of seconds to assemble, and
	// the sandbox can be slow under load. Individual element uploads are
	// fast, but they share the same client.
	DefaultTimeout = 300 * time.Second

	// DefaultOverpassBaseURL is the main public Overpass API instance.
	// Overpass is an optional alternative download source; users running
	// their own instance can override this via flag or config file.
	DefaultOverpassBaseURL = "https://overpass-api.de/api"

	// DefaultUserAgent identifies osmsandbox in HTTP requests.
	// The OSM API usage policy requires a descriptive User-Agent that
	// allows operators to identify the client.
	DefaultUserAgent = "osmsandbox/1.0 (+https://github.com/nao1215/osmsandbox)"

	// DefaultChangesetComment is the fixed descriptive comment attached
	// to the sandbox changeset that groups all deletes and creates.
	DefaultChangesetComment = "Copying an extract of real OSM data into the sandbox"

	// DefaultMaxArea is the largest bounding box area accepted, in square
	// degrees. 0.01 corresponds to roughly 10x10 km at the equator, which
	// keeps downloads and uploads at a size both APIs tolerate.
	DefaultMaxArea = 0.01

	// ConfirmThreshold is the number of existing sandbox elements above
	// which the tool asks for confirmation before deleting them. Other
	// users may be working in the same area of the sandbox.
	ConfirmThreshold = 10000

	// AppName is the application name used for XDG directory paths.
	AppName = "osmsandbox"
)

// Config holds all configuration options for osmsandbox.
// This struct is populated from CLI flags and the optional config file and
// passed through the application via dependency injection rather than
// global state.
type Config struct {
	// BBox is the raw bounding box argument in
	// "minLon,minLat,maxLon,maxLat" form. Parsing and validation happen
	// in the model package.
	BBox string

	// Timeout is the per-request timeout for all HTTP calls.
	Timeout time.Duration

	// UseOverpass selects the Overpass API as the production data source
	// instead of the OSM API map endpoint. Overpass handles large extracts
	// better but lags the live database by a few minutes.
	UseOverpass bool

	// OverpassBaseURL is the Overpass instance used when UseOverpass is
	// set. Unlike the OSM API endpoints this is configurable: Overpass is
	// read-only, so a wrong value cannot destroy anything.
	OverpassBaseURL string

	// UserAgent is the User-Agent header sent with all HTTP requests.
	UserAgent string

	// ChangesetComment is the comment tag attached to the changeset.
	ChangesetComment string

	// MaxArea is the largest accepted bounding box area in square degrees.
	MaxArea float64

	// AssumeYes skips the confirmation question asked before deleting a
	// large number of existing sandbox elements.
	AssumeYes bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the summary report.
	// When empty, the report is written to stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches the default locations (see FindConfigFile).
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeout, Overpass URL).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		OverpassBaseURL:  DefaultOverpassBaseURL,
		UserAgent:        DefaultUserAgent,
		ChangesetComment: DefaultChangesetComment,
		MaxArea:          DefaultMaxArea,
	}
}

// XDGConfigDir returns the XDG config directory for osmsandbox.
// On Linux: ~/.config/osmsandbox
// On macOS: ~/Library/Application Support/osmsandbox
// On Windows: %APPDATA%\osmsandbox
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.BBox == "" {
		return ErrNoBBox
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxArea <= 0 {
		return ErrInvalidMaxArea
	}

	if c.UseOverpass && c.OverpassBaseURL == "" {
		return ErrNoOverpassURL
	}

	return nil
}
