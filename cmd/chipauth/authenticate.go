package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chipauth/internal/docs"
	"chipauth/internal/engine"
	"chipauth/internal/ocr"
)

func newAuthenticateCommand(ctx *commandContext) *cobra.Command {
	var jobs int
	var jsonOut bool
	var docsURL string
	var docsTimeout time.Duration
	var noOrient bool

	cmd := &cobra.Command{
		Use:   "authenticate <image>...",
		Short: "Authenticate one or more component photographs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemes, err := ctx.ensureSchemes()
			if err != nil {
				return err
			}
			log := ctx.logger()

			recognizer, err := ocr.NewTesseract()
			if err != nil {
				return fmt.Errorf("cannot start OCR engine: %w", err)
			}
			defer recognizer.Close()

			var lookup docs.Lookup
			if docsURL != "" {
				client, err := docs.NewHTTPClient(docs.Config{
					BaseURL: docsURL,
					Timeout: docsTimeout,
				}, log)
				if err != nil {
					return err
				}
				lookup = client
			}

			opts := engine.DefaultOptions()
			opts.BatchWorkers = jobs
			opts.OrientationProbe = !noOrient

			eng, err := engine.New(recognizer, lookup, schemes, opts, log)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			items := eng.AuthenticateFiles(runCtx, args)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(batchOutput(args, items))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderResults(args, items))
			for _, item := range items {
				if item.Err != nil {
					return fmt.Errorf("%s: %w", args[item.Index], item.Err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 2, "Concurrent images in a batch")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON")
	cmd.Flags().StringVar(&docsURL, "docs-url", "", "Documentation lookup service base URL (empty disables lookup)")
	cmd.Flags().DurationVar(&docsTimeout, "docs-timeout", 5*time.Second, "Documentation lookup timeout")
	cmd.Flags().BoolVar(&noOrient, "no-orient", false, "Skip the orientation detection pass")

	return cmd
}

// batchEntry is the JSON output shape for one image.
type batchEntry struct {
	Image  string         `json:"image"`
	Error  string         `json:"error,omitempty"`
	Result *engine.Result `json:"result,omitempty"`
}

func batchOutput(paths []string, items []engine.BatchItem) []batchEntry {
	entries := make([]batchEntry, len(items))
	for i, item := range items {
		entries[i] = batchEntry{Image: paths[i], Result: item.Result}
		if item.Err != nil {
			entries[i].Error = item.Err.Error()
		}
	}
	return entries
}

func renderResults(paths []string, items []engine.BatchItem) string {
	headers := []string{"Image", "Verdict", "Confidence", "Part", "Date", "Issues"}
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		if item.Err != nil {
			rows = append(rows, []string{paths[i], "ERROR", "", "", "", item.Err.Error()})
			continue
		}
		r := item.Result

		var dates []string
		for _, dc := range r.Extracted.DateCodes {
			dates = append(dates, dc.Raw)
		}
		var issues []string
		for _, is := range r.Issues {
			issues = append(issues, fmt.Sprintf("%s %s", is.Severity, is.Code))
		}

		rows = append(rows, []string{
			paths[i],
			string(r.Verdict),
			fmt.Sprintf("%d", r.Confidence),
			r.Extracted.PartNumber(),
			strings.Join(dates, " "),
			strings.Join(issues, ", "),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft})
}
