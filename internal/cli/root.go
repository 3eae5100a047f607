// Package cli implements the cobra-based CLI commands for docpreview.
//
// The root command itself runs the preview launcher, so `docpreview` with
// no arguments behaves exactly like the shell wrapper it replaces. The
// stop and status subcommands are defined in their own files.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/docpreview/internal/config"
	"github.com/shinji-kodama/docpreview/internal/docker"
	"github.com/shinji-kodama/docpreview/internal/model"
	"github.com/shinji-kodama/docpreview/internal/port"
	"github.com/shinji-kodama/docpreview/internal/preview"
	"github.com/shinji-kodama/docpreview/internal/project"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput formats command output and errors as JSON.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// rootDir overrides project root detection.
	rootDir string

	// configPath points at an explicit config file.
	configPath string
)

// version, commit, and date are set at build time via ldflags.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// logger is the CLI-wide logger. It writes to stderr so stdout stays
// reserved for command output.
var logger = newLogger(os.Stderr)

// newLogger builds the text logger used by the CLI.
func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// launchFlags holds the flag values for the root (launch) command.
type launchFlags struct {
	// wait is how long to wait for the docs directory to appear.
	wait time.Duration
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	flags := &launchFlags{}

	rootCmd := &cobra.Command{
		Use:   "docpreview",
		Short: "Preview generated documentation in an nginx container",
		Long: `docpreview serves the generated documentation in target/doc through a
pinned nginx container on http://localhost:9090/.

Any previous preview container is removed first. The container runs in the
foreground; press Ctrl-C to stop it. docpreview exits with the container
runtime's exit status, or 1 if the documentation has not been built yet.
With --json the not-ready report is a JSON object; the container's own
output is never reformatted.`,

		// Positional arguments are not accepted; the launch takes no input.
		Args: cobra.NoArgs,

		// We print errors ourselves (text or JSON based on --json).
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: git top-level or current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: docpreview.yaml|yml|json in the project root)")

	rootCmd.Flags().DurationVar(&flags.wait, "wait", 0, "Wait up to this long for the documentation directory to appear")

	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewStatusCommand())

	return rootCmd
}

// runLaunch resolves the project and config, then hands off to the launcher.
func runLaunch(cmd *cobra.Command, flags *launchFlags) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}

	spec := cfg.Spec(root)
	VerboseLog("Project root: %s", root)
	if cfg.Source != "" {
		VerboseLog("Loaded config from %s", cfg.Source)
	}

	launcher := &preview.Launcher{
		Runtime: docker.NewRuntime(logger),
		Ports:   port.NewScanner(),
		Log:     logger,
		Out:     cmd.OutOrStdout(),
	}
	return launcher.Launch(cmd.Context(), spec, preview.Options{Wait: flags.wait, JSON: jsonOutput})
}

// loadProject resolves the project root and loads its configuration.
func loadProject() (string, *config.Config, error) {
	root, err := project.NewResolver().Resolve(rootDir)
	if err != nil {
		return "", nil, model.WrapCLIError(model.ExitGeneralError, "failed to resolve project root", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return "", nil, err
	}

	return root, cfg, nil
}

// Execute runs the root command and exits the process with the
// appropriate status. It is the entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	os.Exit(handleError(err, os.Stderr))
}

// handleError prints err (if any) to w and returns the exit status for it.
//
// ExitStatusError is passed through silently: the container runtime has
// already printed its diagnostics. CLIError carries its own code; other
// errors map to 1.
func handleError(err error, w io.Writer) int {
	if err == nil {
		return int(model.ExitSuccess)
	}

	var statusErr *model.ExitStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return int(cliErr.Code)
	}

	printError(w, err.Error(), nil)
	return int(model.ExitGeneralError)
}

// printError writes an error in text or JSON form, per --json.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"message": message,
		}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog logs a debug message; it is shown only with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
