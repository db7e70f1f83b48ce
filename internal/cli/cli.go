package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vk/flowgrid/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, a ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, a...)}
}

// Highlight applies the heading color to the formatted text.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// options are the flags shared by every subcommand.
type options struct {
	configPath          string
	manifestPaths       []string
	logLevel            string
	logFormat           string
	debounce            time.Duration
	proximityRadius     float64
	gridSize            int
	allowDuplicateLinks bool
}

// NewRootCommand builds the flowgrid command tree.
func NewRootCommand(ctx context.Context) *cobra.Command {
	opts := &options{}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "flowgrid",
		Short: "Edit stream flow graphs as text or through a remote canvas",
		Long: Highlight("flowgrid [global options] <command> [args]") + "\n\n" +
			"flowgrid keeps a flow graph and its textual form in sync, validates it\n" +
			"against element metadata and serves editing sessions to a remote UI.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.SetContext(ctx)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file.")
	flags.StringSliceVarP(&opts.manifestPaths, "manifest", "m", nil, "Element metadata file or directory. Repeatable.")
	flags.StringVar(&opts.logLevel, "log-level", def.LogLevel, "Logging level. One of: debug, info, warn, error.")
	flags.StringVar(&opts.logFormat, "log-format", def.LogFormat, "Log output format. One of: text, json.")
	flags.DurationVar(&opts.debounce, "debounce", def.Debounce, "Quiet period before text and graph are synchronised.")
	flags.Float64Var(&opts.proximityRadius, "proximity-radius", def.ProximityRadius, "Distance within which a dragged node snaps to a connector.")
	flags.IntVar(&opts.gridSize, "grid-size", def.GridSize, "Canvas grid size.")
	flags.BoolVar(&opts.allowDuplicateLinks, "allow-duplicate-links", false, "Permit several links between the same ports.")

	cmd.AddCommand(
		newFmtCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// load builds the effective configuration: defaults, then the config file,
// then every flag the user set explicitly.
func (o *options) load(cmd *cobra.Command, apply func(*config.Config)) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		if err := config.Load(o.configPath, &cfg); err != nil {
			return cfg, usageError("%v", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("manifest") {
		cfg.ManifestPaths = o.manifestPaths
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = strings.ToLower(o.logFormat)
	}
	if flags.Changed("debounce") {
		cfg.Debounce = o.debounce
	}
	if flags.Changed("proximity-radius") {
		cfg.ProximityRadius = o.proximityRadius
	}
	if flags.Changed("grid-size") {
		cfg.GridSize = o.gridSize
	}
	if flags.Changed("allow-duplicate-links") {
		cfg.AllowDuplicateLinks = o.allowDuplicateLinks
	}
	if apply != nil {
		apply(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, usageError("invalid configuration: %v", err)
	}
	return cfg, nil
}

// readInput reads the flow text from path, or from stdin when path is empty
// or "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", usageError("failed to read %s: %v", path, err)
	}
	return string(data), nil
}

// Execute runs the command line and returns an *ExitError for failures that
// need a specific exit code.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
	root := NewRootCommand(ctx)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)
	return root.Execute()
}
