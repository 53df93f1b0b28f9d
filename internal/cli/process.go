package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/workflow"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	PipelineOptions
	Metadata bool
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{PipelineOptions: PipelineOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Process files through their naming-convention workflow",
		Long: `Process one or more files from the input directory through the
workflow their filename prefix resolves to, writing results to the
output directory.

Example:
  amberpipe process CHR_hero_idle_v01.png
  amberpipe process --rules rules.yaml --metadata ENV_rock_cliff_v02.png`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args, cmd)
		},
	}

	addPipelineFlags(cmd, &opts.PipelineOptions)
	cmd.Flags().BoolVar(&opts.Metadata, "metadata", false, "write a resource metadata manifest after processing")

	return cmd
}

func runProcess(opts *ProcessOptions, files []string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	manager, err := newManager(&opts.PipelineOptions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	results := make([]workflow.FileResult, 0, len(files))
	failures := 0

	for _, file := range files {
		result := manager.ProcessFile(cmd.Context(), filepath.Base(file))
		results = append(results, result)
		if result.Status != "completed" {
			failures++
		}

		if opts.Format == "text" {
			printResult(out, result)
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	}

	if opts.Metadata {
		_, path, err := manager.GenerateMetadata()
		if err != nil {
			return fmt.Errorf("generating metadata: %w", err)
		}
		if opts.Format == "text" {
			fmt.Fprintf(out, "metadata written to %s\n", path)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failures, len(files))
	}
	return nil
}

func printResult(out io.Writer, result workflow.FileResult) {
	mark := "✓"
	if result.Status != "completed" {
		mark = "✗"
	}
	fmt.Fprintf(out, "%s %s (%s)\n", mark, result.Filename, result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	for _, step := range result.Processes {
		line := fmt.Sprintf("  %-16s %s", step.Name, step.Status)
		if step.Error != "" {
			line += ": " + step.Error
		}
		fmt.Fprintln(out, line)
	}
	if result.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", result.Error)
	}
}
