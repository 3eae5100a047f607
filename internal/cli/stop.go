// Package cli — stop.go implements the "docpreview stop" command.
//
// stop force-removes the preview container, the same step the launcher
// runs before every start. Stopping a preview that is not running
// succeeds, so the command is safe in scripts and editor hooks.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpreview/internal/docker"
	"github.com/shinji-kodama/docpreview/internal/preview"
)

// NewStopCommand creates the "stop" cobra command.
func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop and remove the preview container",
		Long: `Stop and remove the preview container if one is running.

The container name comes from the project's config file, or defaults to
"docpreview". Nothing is reported as an error if no such container exists.

Examples:
  docpreview stop
  docpreview stop --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadProject()
			if err != nil {
				return err
			}
			launcher := &preview.Launcher{
				Runtime: docker.NewRuntime(logger),
				Log:     logger,
			}
			return runStop(cmd.Context(), cmd.OutOrStdout(), launcher, cfg.ContainerName)
		},
	}
}

// runStop removes the container and prints the result.
func runStop(ctx context.Context, w io.Writer, launcher *preview.Launcher, name string) error {
	VerboseLog("Removing container %q", name)
	if err := launcher.Stop(ctx, name); err != nil {
		return err
	}
	printStopResult(w, name)
	return nil
}

// printStopResult outputs the stop result in text or JSON format.
func printStopResult(w io.Writer, name string) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"name":   name,
			"action": "removed",
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Preview container %q removed\n", name)
}
