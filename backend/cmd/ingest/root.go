package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pathfinder/backend/internal/app"
	"pathfinder/backend/internal/pipeline"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// buildFunc wires the application; dryRun asks for a throwaway store.
type buildFunc func(ctx context.Context, dryRun bool) (*app.Container, error)

type options struct {
	user        string
	dryRun      bool
	concurrency int
	output      string
}

// fileResult is one row of the summary.
type fileResult struct {
	File          string `json:"file"`
	UserID        string `json:"userId"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Failures      int    `json:"failures"`
	Error         string `json:"error,omitempty"`
}

func newRootCommand(build buildFunc, out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ingest [flags] FILE...",
		Short: "Compile survey JSON files into user knowledge graphs",
		Long: `Reads one survey JSON object per file, compiles it into a knowledge graph
and merges it into the owning user's scope.

The user id comes from --user, else the file's "userId" field, else the file
name without its extension. Files for distinct users are processed in
parallel; files for the same user are merged one at a time.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			if opts.output != "table" && opts.output != "json" {
				return fmt.Errorf("--output must be table or json")
			}

			ctx := cmd.Context()
			container, err := build(ctx, opts.dryRun)
			if err != nil {
				return err
			}
			defer container.Shutdown(context.Background())

			results, err := run(ctx, container.Pipeline, args, opts)
			if werr := write(out, results, opts.output); werr != nil && err == nil {
				err = werr
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Error != "" || r.Failures > 0 {
					return fmt.Errorf("%d of %d files did not ingest cleanly", countUnclean(results), len(results))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "user id for every file (overrides per-file ids)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "compile and report without writing to the store")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "files processed in parallel")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format (table, json)")
	return cmd
}

// run processes every file. A file that cannot be read or ingested is
// recorded in its row; only a cancelled context aborts the batch.
func run(ctx context.Context, svc *pipeline.Service, files []string, opts *options) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			r := ingestFile(gctx, svc, file, opts)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return gctx.Err()
		})
	}

	err := g.Wait()
	return results, err
}

func ingestFile(ctx context.Context, svc *pipeline.Service, file string, opts *options) fileResult {
	r := fileResult{File: file}

	raw, err := readSurvey(file)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.UserID = userFor(file, raw, opts.user)

	if opts.dryRun {
		g, err := svc.Preview(ctx, raw)
		if err != nil {
			r.Error = err.Error()
			return r
		}
		r.Nodes, r.Relationships = g.Count()
		return r
	}

	result, err := svc.IngestSurvey(ctx, r.UserID, raw)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Nodes = result.Report.NodesUpserted
	r.Relationships = result.Report.EdgesUpserted
	r.Failures = result.Report.NodeFailures + result.Report.EdgeFailures
	return r
}

func readSurvey(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: survey must be a JSON object: %w", file, err)
	}
	return raw, nil
}

func userFor(file string, raw map[string]any, override string) string {
	if override != "" {
		return override
	}
	for _, key := range []string{"userId", "user_id"} {
		if id, ok := raw[key].(string); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func write(out io.Writer, results []fileResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	sorted := append([]fileResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	table := tablewriter.NewWriter(out)
	table.Header("File", "User", "Nodes", "Relationships", "Failures", "Error")
	for _, r := range sorted {
		if err := table.Append(r.File, r.UserID, r.Nodes, r.Relationships, r.Failures, r.Error); err != nil {
			return err
		}
	}
	return table.Render()
}

func countUnclean(results []fileResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" || r.Failures > 0 {
			n++
		}
	}
	return n
}
