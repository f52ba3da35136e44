// Package main provides the entry point for the osmsandbox CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/osmsandbox/internal/config"
	"github.com/nao1215/osmsandbox/internal/prompt"
)

// NewRootCmd creates the root command for osmsandbox.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osmsandbox <minLon>,<minLat>,<maxLon>,<maxLat>",
		Short: "Copy real OpenStreetMap data into the public editing sandbox",
		Long: `osmsandbox downloads the OpenStreetMap data inside a bounding box from the
production database and copies it into the public editing sandbox at
master.apis.dev.openstreetmap.org.

The sandbox area is cleared first: everything currently stored there for
your account's visible world is deleted, then the downloaded elements are
recreated with fresh sandbox IDs inside a single changeset.

The production database is never modified. The servers this tool talks to
are fixed at build time and cannot be changed by flags or config files.

You need a sandbox account (registered at master.apis.dev.openstreetmap.org;
production accounts do not work there). The password is read interactively
and kept in memory only.

Examples:
  # Copy a small area of Bamberg, Germany into the sandbox
  osmsandbox 10.87,49.89,10.90,49.91

  # Use Overpass as the download source for bigger areas
  osmsandbox --overpass 10.87,49.89,10.90,49.91

  # Write a JSON summary to a file
  osmsandbox --json --output summary.json 10.87,49.89,10.90,49.91`,
		Args:          cobra.ExactArgs(1),
		RunE:          runCopyCmd,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Download source flags
	cmd.Flags().Bool("overpass", false,
		"Download from the Overpass API instead of the OSM map endpoint")
	cmd.Flags().String("overpass-url", config.DefaultOverpassBaseURL,
		"Overpass API instance used with --overpass")

	// Behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().BoolP("yes", "y", false,
		"Skip the confirmation asked before deleting a large sandbox area")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .osmsandbox in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the summary to the specified file path")

	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// A cancel at a prompt is the user choosing to do nothing.
		// Nothing was touched, so it is not a failure.
		if errors.Is(err, prompt.ErrCanceled) {
			fmt.Fprintln(os.Stderr, "aborted")
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
