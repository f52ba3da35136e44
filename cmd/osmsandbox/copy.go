package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/osmsandbox/internal/config"
	"github.com/nao1215/osmsandbox/internal/log"
	"github.com/nao1215/osmsandbox/internal/model"
	"github.com/nao1215/osmsandbox/internal/osmapi"
	"github.com/nao1215/osmsandbox/internal/overpass"
	"github.com/nao1215/osmsandbox/internal/prompt"
	"github.com/nao1215/osmsandbox/internal/report"
	"github.com/nao1215/osmsandbox/internal/uploader"
)

// errNothingCreated makes the exit status non-zero when the run finished
// without creating a single element. The sandbox may have been cleared by
// the delete pass, so the user must be told the copy did not take.
var errNothingCreated = errors.New("no elements were created in the sandbox")

// runCopyCmd executes the copy.
func runCopyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// The logger sanitizes credential-shaped attributes before they can
	// reach the terminal or a log file.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCopy(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags. The optional
// config file is applied first so explicit flags win over it.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.BBox = args[0]

	var err error

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.UseOverpass, err = cmd.Flags().GetBool("overpass")
	if err != nil {
		return nil, err
	}

	// Only an explicit flag overrides the config file value.
	if cmd.Flags().Changed("overpass-url") {
		cfg.OverpassBaseURL, err = cmd.Flags().GetString("overpass-url")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
		if err != nil {
			return nil, err
		}
	}

	cfg.AssumeYes, err = cmd.Flags().GetBool("yes")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCopy downloads the bounding box, clears the sandbox area, and
// recreates the downloaded elements there.
func runCopy(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	bbox, err := model.ParseBBox(cfg.BBox)
	if err != nil {
		return err
	}

	// The area guard protects the public servers, not the parser: a huge
	// box is a perfectly valid box, it is just not welcome here.
	if area := bbox.Area(); area > cfg.MaxArea {
		return fmt.Errorf("bounding box area %.4f deg² exceeds the limit of %.4f deg²; choose a smaller area", area, cfg.MaxArea)
	}

	toCreate, err := fetchProduction(ctx, cfg, logger, bbox)
	if err != nil {
		return fmt.Errorf("failed to download production data: %w", err)
	}
	fmt.Printf("Downloaded %d elements from the production database.\n", len(toCreate))

	sandboxRead := osmapi.NewSandbox(
		osmapi.WithTimeout(cfg.Timeout),
		osmapi.WithUserAgent(cfg.UserAgent),
		osmapi.WithLogger(logger),
	)

	toDelete, err := sandboxRead.Map(ctx, bbox)
	if err != nil {
		return fmt.Errorf("failed to read the sandbox area: %w", err)
	}
	fmt.Printf("The sandbox currently holds %d elements in this area.\n", len(toDelete))

	warnChangesetLimit(ctx, sandboxRead, logger, len(toDelete)+len(toCreate))

	prompter := prompt.NewPrompter()

	if len(toDelete) > config.ConfirmThreshold && !cfg.AssumeYes {
		question := fmt.Sprintf("About to delete %d elements from the sandbox. Continue?", len(toDelete))
		if err := prompter.Confirm(question); err != nil {
			return err
		}
	}

	creds, err := prompter.Credentials()
	if err != nil {
		return err
	}

	sandbox := osmapi.NewSandbox(
		osmapi.WithTimeout(cfg.Timeout),
		osmapi.WithUserAgent(cfg.UserAgent),
		osmapi.WithCredentials(creds),
		osmapi.WithLogger(logger),
	)

	up := uploader.NewUploader(sandbox,
		uploader.WithComment(cfg.ChangesetComment),
		uploader.WithCreatedBy("osmsandbox/"+getVersion()),
		uploader.WithLogger(logger),
	)

	fmt.Println("Uploading to the sandbox...")
	startTime := time.Now()

	summary, runErr := up.Run(ctx, bbox, toDelete, toCreate)

	fmt.Printf("Upload finished in %s.\n", time.Since(startTime).Round(time.Millisecond))

	// The summary is written even when the run failed partway, so the
	// user can see how far it got.
	if err := outputSummary(cfg, summary); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if !summary.Succeeded() {
		return errNothingCreated
	}
	return nil
}

// fetchProduction downloads the bounding box contents from the configured
// production source.
func fetchProduction(ctx context.Context, cfg *config.Config, logger *slog.Logger, bbox model.BoundingBox) ([]*model.Element, error) {
	if cfg.UseOverpass {
		fmt.Printf("Downloading %s via Overpass...\n", bbox)
		client := overpass.NewClient(cfg.OverpassBaseURL,
			overpass.WithUserAgent(cfg.UserAgent),
			overpass.WithLogger(logger),
		)
		return client.Fetch(ctx, bbox)
	}

	fmt.Printf("Downloading %s from the OSM API...\n", bbox)
	client := osmapi.NewProduction(
		osmapi.WithTimeout(cfg.Timeout),
		osmapi.WithUserAgent(cfg.UserAgent),
		osmapi.WithLogger(logger),
	)
	return client.Map(ctx, bbox)
}

// warnChangesetLimit warns when the planned work exceeds the sandbox's
// per-changeset element limit. The run still proceeds; the server will
// reject the overflowing elements and the summary will show them.
func warnChangesetLimit(ctx context.Context, client *osmapi.Client, logger *slog.Logger, planned int) {
	limit, err := client.ChangesetLimit(ctx)
	if err != nil {
		logger.Debug("could not read the sandbox changeset limit", "error", err)
	}
	if planned > limit {
		logger.Warn("planned work exceeds the sandbox changeset limit; the overflow will fail",
			"planned", planned, "limit", limit)
		fmt.Fprintf(os.Stderr,
			"Warning: %d operations planned but the sandbox allows %d per changeset.\n", planned, limit)
	}
}

// outputSummary writes the upload summary in the requested format.
func outputSummary(cfg *config.Config, summary *model.UploadSummary) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644) //nolint:gosec // Summary contains no secrets
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(summary)
	return err
}
