package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhruvsoni1802/browser-webdriver/internal/session"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

const version = "1.0.0"

type options struct {
	URL     string
	Session string
	Timeout time.Duration
	Verbose bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		var perr *webdriver.ProtocolError
		if errors.As(err, &perr) {
			fmt.Fprintf(os.Stderr, "error: %s\n", perr.Code)
		}
		os.Exit(1)
	}
}

// newRootCmd builds the command tree; out receives command output
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "alertctl",
		Short: "Drive the user prompt of a running WebDriver session",
		Long: `alertctl attaches to an existing WebDriver session and reads,
accepts, dismisses or types into its open alert, confirm or prompt.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Session == "" {
				return fmt.Errorf("must provide --session")
			}
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.URL, "url", envOr("WEBDRIVER_URL", "http://localhost:4444"), "WebDriver remote end URL")
	root.PersistentFlags().StringVar(&opts.Session, "session", os.Getenv("WEBDRIVER_SESSION"), "WebDriver session id")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-command timeout (0 disables)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every request")

	root.AddCommand(
		&cobra.Command{
			Use:   "text",
			Short: "Print the text of the open prompt",
			Args:  cobra.NoArgs,
			RunE: run(opts, func(ctx context.Context, h *session.Handle, cmd *cobra.Command, args []string) error {
				text, err := h.GetAlertText(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "accept",
			Short: "Accept the open prompt",
			Args:  cobra.NoArgs,
			RunE: run(opts, func(ctx context.Context, h *session.Handle, cmd *cobra.Command, args []string) error {
				return h.AcceptAlert(ctx)
			}),
		},
		&cobra.Command{
			Use:   "dismiss",
			Short: "Dismiss the open prompt",
			Args:  cobra.NoArgs,
			RunE: run(opts, func(ctx context.Context, h *session.Handle, cmd *cobra.Command, args []string) error {
				return h.DismissAlert(ctx)
			}),
		},
		newSendCmd(opts),
	)

	return root
}

func newSendCmd(opts *options) *cobra.Command {
	var keyNames []string

	cmd := &cobra.Command{
		Use:   "send TEXT",
		Short: "Type text into the open prompt",
		Example: `  alertctl --session $ID send "selenium"
  alertctl --session $ID send --key control a`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringSliceVarP(&keyNames, "key", "k", nil, "named keys pressed before TEXT (control, shift, enter, ...)")

	cmd.RunE = run(opts, func(ctx context.Context, h *session.Handle, cmd *cobra.Command, args []string) error {
		data, err := typingData(keyNames, args[0])
		if err != nil {
			return err
		}
		return h.SendAlertText(ctx, data)
	})
	return cmd
}

func typingData(keyNames []string, text string) (webdriver.TypingData, error) {
	keys := make([]webdriver.Key, 0, len(keyNames))
	for _, name := range keyNames {
		k, ok := webdriver.ParseKey(name)
		if !ok {
			return webdriver.TypingData{}, fmt.Errorf("unknown key %q", name)
		}
		keys = append(keys, k)
	}
	return webdriver.Keys(keys...).AppendText(text), nil
}

type handleFunc func(ctx context.Context, h *session.Handle, cmd *cobra.Command, args []string) error

// run attaches a Handle to the session named by the flags and applies the timeout
func run(opts *options, fn handleFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if opts.Verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		invoker, err := webdriver.NewInvoker(opts.URL,
			webdriver.WithTimeout(opts.Timeout),
			webdriver.WithLogger(logger),
			webdriver.WithUserAgent("alertctl/"+version))
		if err != nil {
			return err
		}
		h, err := session.NewHandle(strings.TrimSpace(opts.Session), invoker)
		if err != nil {
			return err
		}

		// Zero means no deadline, matching webdriver.WithTimeout
		ctx := cmd.Context()
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		return fn(ctx, h, cmd, args)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
