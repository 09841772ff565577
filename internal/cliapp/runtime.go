package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rf2boot/internal/core/app"
	"rf2boot/internal/core/config"
	"rf2boot/internal/core/errors"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/data/ledger"
	"rf2boot/internal/engine/graph"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/shared/observability"
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(runLoad)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if errors.IsCode(err, errors.CodeConfiguration) {
			return 2
		}
		return 1
	}
	return 0
}

func loadConfig(opts *cliOptions) (*config.Config, error) {
	if _, err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, err
	}
	path := opts.configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return config.Load(path)
}

// applyOptions copies the flags that were set on the command line over cfg.
func applyOptions(cmd *cobra.Command, opts *cliOptions, cfg *config.Config, mode rf2.Mode, effective bool, dirs []string) {
	flags := cmd.Flags()
	cfg.Load.Mode = mode.String()
	if len(dirs) > 0 {
		cfg.Load.Dirs = dirs
	}
	if effective {
		on := true
		cfg.Load.EffectiveFilter = &on
	}
	if opts.profile != "" {
		cfg.Load.Profile = opts.profile
	}
	if len(opts.modules) > 0 {
		cfg.Load.Modules = opts.modules
	}
	if flags.Changed("workers") {
		cfg.Import.Workers = opts.workers
	}
	if flags.Changed("sequential") {
		cfg.Import.Sequential = opts.sequential
	}
	if flags.Changed("ledger") {
		cfg.Ledger.Enabled = opts.ledger
	}
	if opts.metricsAddr != "" {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
}

func configureLogging(w io.Writer, cfg config.Log) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func runLoad(cmd *cobra.Command, opts *cliOptions, mode rf2.Mode, effective bool, dirs []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	applyOptions(cmd, opts, cfg, mode, effective, dirs)
	configureLogging(cmd.ErrOrStderr(), cfg.Log)
	slog.Debug("configuration loaded", "config", cfg.String())

	if cfg.Observability.Tracing && cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	var server *observability.Server
	if cfg.Observability.MetricsAddr != "" {
		server = observability.NewServer(cfg.Observability.MetricsAddr)
		if err := server.Start(ctx); err != nil {
			return errors.Wrap(err, errors.CodeConfiguration, "start observability server")
		}
		defer server.Stop(context.Background())
		server.SetStage("loading")
	}

	profile, err := cfg.Profile()
	if err != nil {
		return err
	}
	loadMode, err := cfg.Mode()
	if err != nil {
		return err
	}

	var store *ledger.Store
	if cfg.Ledger.Enabled {
		store, err = ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "open ledger"), errors.CtxPath, cfg.Ledger.Path)
		}
		defer store.Close()
		times, err := store.ModuleTimes()
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "read ledger")
		}
		if len(times) > 0 {
			slog.Info("skipping content already imported", "modules", len(times))
			profile = profile.With(config.WithModuleEffectiveTimes(times))
		}
	}

	importer, err := app.NewImporterFromConfig(cfg.Import)
	if err != nil {
		return err
	}
	graphStore := graph.NewStore()
	loader := graph.NewLoader(graphStore, profile)
	var consumer ports.Consumer = loader
	var recorder *ledger.Recorder
	if store != nil {
		recorder = ledger.NewRecorder(loader, store)
		consumer = recorder
	}

	res, err := importer.Load(ctx, app.Request{Dirs: cfg.Load.Dirs, Mode: loadMode, Profile: profile, Consumer: consumer})
	if err != nil {
		if server != nil {
			server.Fail()
		}
		return err
	}
	if server != nil {
		server.SetStage("loaded")
	}
	if store != nil {
		if err := store.RecordImport(ledger.Import{
			Mode:    loadMode.String(),
			Dirs:    cfg.Load.Dirs,
			Modules: len(recorder.ModuleTimes()),
		}); err != nil {
			slog.Warn("failed to record import", "error", err)
		}
	}

	form := graph.Inferred
	if opts.stated {
		form = graph.Stated
	}
	return printSummary(cmd.OutOrStdout(), res, graphStore, opts.ancestors, opts.pathTo, form)
}

func printSummary(w io.Writer, res app.Result, store *graph.Store, ancestors []string, pathTo string, form graph.Form) error {
	fmt.Fprintf(w, "files:     %d (%s)\n", res.Files.Count(), res.Files.String())
	fmt.Fprintf(w, "concepts:  %d\n", store.Len())
	if len(res.Versions) > 0 {
		fmt.Fprintf(w, "versions:  %s\n", strings.Join(res.Versions, ", "))
	}
	if len(res.Rules) > 0 {
		fmt.Fprintf(w, "filters:   %s\n", strings.Join(res.Rules, ", "))
	}
	fmt.Fprintf(w, "duration:  %s\n", res.Duration.Round(time.Millisecond))

	for _, id := range ancestors {
		ids, err := store.Ancestors(id, form)
		if errors.IsCode(err, errors.CodeCycleDetected) {
			printCycles(w, store, form)
		}
		if err != nil {
			return err
		}
		name := id
		if c := store.Get(id); c != nil && c.FSN() != "" {
			name = id + " |" + c.FSN() + "|"
		}
		fmt.Fprintf(w, "%s ancestors of %s: %d\n", form, name, len(ids))
		for _, a := range ids {
			fmt.Fprintf(w, "  %s\t%s\n", a, store.Get(a).FSN())
		}
		if pathTo != "" {
			if path, ok := store.IsAPath(id, pathTo, form); ok {
				fmt.Fprintf(w, "path to %s: %s\n", pathTo, strings.Join(path, " -> "))
			} else {
				fmt.Fprintf(w, "path to %s: none\n", pathTo)
			}
		}
	}
	return nil
}

func printCycles(w io.Writer, store *graph.Store, form graph.Form) {
	cycles := store.DetectCycles(form)
	fmt.Fprintf(w, "%s is-a cycles: %d\n", form, len(cycles))
	for _, c := range cycles {
		fmt.Fprintf(w, "  %s\n", strings.Join(c, " -> "))
	}
}
