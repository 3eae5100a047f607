// Package cli — status.go implements the "docpreview status" command.
//
// status inspects the container holding the configured name and reports
// whether a preview is running, where it is published, and which
// directory it serves. With --all it lists every container that carries
// docpreview's labels, regardless of name.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpreview/internal/docker"
	"github.com/shinji-kodama/docpreview/internal/model"
)

// statusFlags holds the flag values for the status command.
type statusFlags struct {
	// all lists every managed preview instead of the configured one.
	all bool
}

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the preview container's state",
		Long: `Show whether the preview container is running, its published ports,
and the documentation directory it serves.

Examples:
  docpreview status
  docpreview status --all
  docpreview status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadProject()
			if err != nil {
				return err
			}

			cli, err := docker.NewClient()
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()

			if err := cli.Ping(cmd.Context()); err != nil {
				return err
			}
			VerboseLog("Connected to Docker daemon")

			var previews []model.PreviewInfo
			if flags.all {
				previews, err = docker.ListManagedPreviews(cmd.Context(), cli)
				if err != nil {
					return err
				}
			} else {
				info, err := docker.InspectPreview(cmd.Context(), cli, cfg.ContainerName)
				if err != nil {
					return err
				}
				previews = []model.PreviewInfo{*info}
			}

			printStatus(cmd.OutOrStdout(), previews)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "List every preview container started by docpreview")

	return cmd
}

// printStatus outputs previews in text or JSON format.
func printStatus(w io.Writer, previews []model.PreviewInfo) {
	if IsJSONOutput() {
		if previews == nil {
			previews = []model.PreviewInfo{}
		}
		data, _ := json.MarshalIndent(previews, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	printStatusText(w, previews)
}

// printStatusText renders a table; an empty list prints a single line.
func printStatusText(w io.Writer, previews []model.PreviewInfo) {
	if len(previews) == 0 {
		fmt.Fprintln(w, "No preview containers found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tURL\tDOCS")
	for _, p := range previews {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.ContainerName, p.Status, FormatURLs(p.Ports), orDash(p.DocsDir))
	}
	_ = tw.Flush()
}

// FormatURLs renders the browser URLs for tcp port mappings, sorted and
// comma-separated. No mappings renders as "-".
func FormatURLs(ports []model.PortMapping) string {
	urls := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.Protocol != "" && p.Protocol != "tcp" {
			continue
		}
		urls = append(urls, fmt.Sprintf("http://localhost:%d/", p.HostPort))
	}
	if len(urls) == 0 {
		return "-"
	}
	sort.Strings(urls)
	return strings.Join(urls, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
