package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk/flowgrid/internal/app"
	"github.com/vk/flowgrid/internal/config"
)

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= n {
			return nil
		}
		_ = cmd.Usage()
		return usageError("accepts at most %d argument(s), got %d", n, len(args))
	}
}

func newFmtCommand(opts *options) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt [FILE]",
		Short: "Print the canonical form of a flow",
		Long: Highlight("flowgrid fmt [FILE]") + "\n\n" +
			"Reads flow text from FILE or stdin, builds the graph and prints the text\n" +
			"generated back from it.\n",
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstArg(args)
			if write && (path == "" || path == "-") {
				return usageError("--write needs a file argument")
			}
			cfg, err := opts.load(cmd, nil)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			a := app.NewApp(cmd.ErrOrStderr(), cfg)
			out, err := a.Format(cmd.Context(), text)
			if err != nil {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%s: %v", displayName(path), err)}
			}
			if write {
				return os.WriteFile(path, []byte(out), 0o644)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to FILE.")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Report validation markers of a flow",
		Long: Highlight("flowgrid validate [FILE]") + "\n\n" +
			"Reads flow text from FILE or stdin and prints every error and warning.\n" +
			"Exits with status 1 when there is at least one error.\n",
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstArg(args)
			cfg, err := opts.load(cmd, nil)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			a := app.NewApp(cmd.ErrOrStderr(), cfg)
			markers, err := a.Validate(cmd.Context(), text)
			if err != nil {
				return err
			}
			renderMarkers(cmd.OutOrStdout(), displayName(path), markers)
			if markers.HasErrors() {
				return &ExitError{Code: 1, Message: "validation failed"}
			}
			return nil
		},
	}
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	var (
		textPath        string
		healthcheckPort int
		bridgeURL       string
		bridgeNamespace string
		readOnly        bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an editing session",
		Long: Highlight("flowgrid serve") + "\n\n" +
			"Keeps an editor session alive, saving the flow text on every change.\n" +
			"With --bridge-url the session is driven by a remote canvas over socket.io.\n",
		Args: maxArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			cfg, err := opts.load(cmd, func(c *config.Config) {
				if flags.Changed("text") {
					c.TextPath = textPath
				}
				if flags.Changed("healthcheck-port") {
					c.HealthcheckPort = healthcheckPort
				}
				if flags.Changed("bridge-url") {
					c.BridgeURL = bridgeURL
				}
				if flags.Changed("bridge-namespace") {
					c.BridgeNamespace = bridgeNamespace
				}
				if flags.Changed("read-only") {
					c.ReadOnly = readOnly
				}
			})
			if err != nil {
				return err
			}
			return app.NewApp(cmd.ErrOrStderr(), cfg).Serve(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&textPath, "text", "t", "", "Flow text file to load and save.")
	flags.IntVar(&healthcheckPort, "healthcheck-port", 0, "Port for /health and /metrics. 0 is disabled.")
	flags.StringVar(&bridgeURL, "bridge-url", "", "socket.io hub URL of the remote canvas.")
	flags.StringVar(&bridgeNamespace, "bridge-namespace", "/", "socket.io namespace.")
	flags.BoolVar(&readOnly, "read-only", false, "Refuse edits.")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "<stdin>"
	}
	return path
}
