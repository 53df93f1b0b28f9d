package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the input directory and process new files",
		Long: `Watch the input directory and run every new file through its
naming-convention workflow until interrupted.

Example:
  amberpipe watch --input-dir ./data/sorted --parallel 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	addPipelineFlags(cmd, opts)

	return cmd
}

func runWatch(opts *PipelineOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	manager, err := newManager(opts)
	if err != nil {
		return err
	}

	manager.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", opts.InputDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	manager.Stop()

	status := manager.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "processed %d file(s), %d failed\n",
		len(status.ProcessedFiles), len(status.FailedFiles))
	return nil
}
