package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/inference"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/workflow"
)

// PipelineOptions holds the flags shared by the process and watch commands.
type PipelineOptions struct {
	*RootOptions
	InputDir     string
	OutputDir    string
	RulesPath    string
	InferenceURL string
	Parallel     int
}

func addPipelineFlags(cmd *cobra.Command, opts *PipelineOptions) {
	cmd.Flags().StringVar(&opts.InputDir, "input-dir", "./data/sorted", "directory holding sorted artwork")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "./data/processed", "directory for processed output")
	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "path to a YAML naming rules file (built-in rules when empty)")
	cmd.Flags().StringVar(&opts.InferenceURL, "inference-url", "", "base URL of the inference service (segment and gen_pbr steps fail when empty)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 4, "maximum concurrent files")
}

// newManager builds a workflow manager from the pipeline flags.
func newManager(opts *PipelineOptions) (*workflow.Manager, error) {
	resolver, err := workflow.NewResolverFromFile(opts.RulesPath)
	if err != nil {
		return nil, err
	}

	var client *inference.Client
	if opts.InferenceURL != "" {
		client = inference.NewClient(opts.InferenceURL)
	}

	return workflow.NewManager(opts.InputDir, opts.OutputDir, resolver, client, opts.Parallel)
}

// configureLogging routes slog to stderr so JSON output on stdout stays clean.
func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
