package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
}

func main() {
	api.DisableConfigDir()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError("Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for bad
// configuration or input, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case common.IsCode(err, common.CodeConfig), common.IsCode(err, common.CodeInvalidInput):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "invoice-ocr",
		Short:         "Extract invoice fields from scanned PDFs and match vendors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./invoice-ocr.yaml if present)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging")

	root.AddCommand(
		newExtractCmd(opts),
		newWatchCmd(opts),
		newRemapCmd(opts),
		newResolveCmd(opts),
		newParseCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

// setup loads configuration and installs the JSON logger. Logs go to stderr
// and stdout carries command output.
func setup(opts *rootOptions) (*common.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
