package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	virtualhost "github.com/Someblueman/uni-virtual-host/internal/virtualhost"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type globalFlags struct {
	root       string
	pages      string
	configPath string
	ignore     []string
	verbose    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// A missing .env is the common case.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "error: %v\n", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 2
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "uni-virtual-host",
		Short:         "Add options.virtualHost to uni-app components",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.root, "root", "", "Source root (default: $UNI_INPUT_DIR or $INIT_CWD/src)")
	pf.StringVar(&flags.pages, "pages", "", "Page manifest (default: <root>/pages.json)")
	pf.StringVar(&flags.configPath, "config", "", "YAML config file")
	pf.StringArrayVar(&flags.ignore, "ignore", nil, "Ignore glob, repeatable (replaces the App.vue defaults)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newTransformCmd(flags),
		newApplyCmd(flags),
		newPagesCmd(flags),
		newWatchCmd(flags),
	)
	return root
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).Level(level)
}

// resolveOptions layers defaults, the config file and flags, in that order.
func resolveOptions(cmd *cobra.Command, flags *globalFlags) (virtualhost.Options, error) {
	opts := virtualhost.DefaultOptions()
	opts.Logger = newLogger(cmd.ErrOrStderr(), flags.verbose)

	if flags.configPath != "" {
		cfg, err := virtualhost.LoadConfigFile(flags.configPath)
		if err != nil {
			return opts, err
		}
		cfg.Apply(&opts, filepath.Dir(flags.configPath))
	}
	if flags.root != "" {
		opts.ProjectRoot = flags.root
	}
	if flags.pages != "" {
		opts.PagesPath = flags.pages
	}
	if len(flags.ignore) > 0 {
		opts.Ignore = flags.ignore
	}
	return opts, nil
}

func newEngine(cmd *cobra.Command, flags *globalFlags) (*virtualhost.Engine, virtualhost.Options, error) {
	opts, err := resolveOptions(cmd, flags)
	if err != nil {
		return nil, opts, err
	}
	engine, err := virtualhost.NewEngine(opts)
	if err != nil {
		return nil, opts, err
	}
	return engine, opts, nil
}

func newTransformCmd(flags *globalFlags) *cobra.Command {
	var mapPath string
	cmd := &cobra.Command{
		Use:   "transform FILE",
		Short: "Print the transformed component (or the original when it is not a component)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, opts, err := newEngine(cmd, flags)
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			res, err := engine.Transformer().Transform(path, string(data))
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				opts.Logger.Warn().Str("file", args[0]).Msg(w)
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), res.Code); err != nil {
				return err
			}
			if mapPath == "" || res.Map == nil {
				return nil
			}
			encoded, err := res.Map.JSON()
			if err != nil {
				return fmt.Errorf("encode source map: %w", err)
			}
			return os.WriteFile(mapPath, encoded, 0644)
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "Write the source map to this file when text was patched")
	return cmd
}

func newApplyCmd(flags *globalFlags) *cobra.Command {
	var (
		write       bool
		diff        bool
		check       bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Process every component under the root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				opts.Concurrency = concurrency
			}
			engine, err := virtualhost.NewEngine(opts)
			if err != nil {
				return err
			}

			mode := virtualhost.ModeCheck
			switch {
			case write:
				mode = virtualhost.ModeWrite
			case diff:
				mode = virtualhost.ModeDiff
			}
			report, err := engine.Run(cmd.Context(), mode)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), opts.Logger, report, mode, check)
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite files in place")
	cmd.Flags().BoolVar(&diff, "diff", false, "Print unified diffs")
	cmd.Flags().BoolVar(&check, "check", false, "Exit 1 when any component would change")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "Files processed in parallel")
	cmd.MarkFlagsMutuallyExclusive("write", "diff", "check")
	return cmd
}

func printReport(w io.Writer, log zerolog.Logger, report *virtualhost.Report, mode virtualhost.Mode, check bool) error {
	changed := report.Changed()
	for _, f := range changed {
		switch mode {
		case virtualhost.ModeDiff:
			fmt.Fprint(w, f.Diff)
		case virtualhost.ModeWrite:
			fmt.Fprintf(w, "updated %s\n", f.RelPath)
		default:
			fmt.Fprintf(w, "needs virtualHost: %s\n", f.RelPath)
		}
	}
	failed := report.Failed()
	for _, f := range failed {
		log.Error().Err(f.Err).Msg("transform failed")
	}
	log.Debug().
		Int("scanned", report.Scanned).
		Int("eligible", report.Eligible).
		Int("changed", len(changed)).
		Msg("summary")

	if len(failed) > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d component(s) failed", len(failed))}
	}
	if check && len(changed) > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func newPagesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "Print the resolved page list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := newEngine(cmd, flags)
			if err != nil {
				return err
			}
			for _, page := range engine.Pages().Pages() {
				fmt.Fprintln(cmd.OutOrStdout(), page)
			}
			return nil
		},
	}
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Apply once, then keep components up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, opts, err := newEngine(cmd, flags)
			if err != nil {
				return err
			}
			report, err := engine.Run(cmd.Context(), virtualhost.ModeWrite)
			if err != nil {
				return err
			}
			for _, f := range report.Failed() {
				opts.Logger.Error().Err(f.Err).Msg("transform failed")
			}
			return engine.Watch(cmd.Context())
		},
	}
}
