package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rf2boot/internal/core/config"
	"rf2boot/internal/core/errors"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/dispatch"
	"rf2boot/internal/engine/filter"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/shared/observability"
	"rf2boot/internal/shared/util"
)

// Importer reads release directories and feeds their rows to a Consumer.
// An Importer holds only settings and may run several loads at once.
type Importer struct {
	workers    int
	sequential bool
	exclude    []glob.Glob
}

type ImporterOption func(*Importer) error

// WithWorkers bounds the number of file groups read at the same time.
func WithWorkers(n int) ImporterOption {
	return func(im *Importer) error {
		if n < 1 {
			return errors.Newf(errors.CodeConfiguration, "workers must be at least 1, got %d", n)
		}
		im.workers = n
		return nil
	}
}

// WithSequential reads every file group on the calling goroutine.
func WithSequential(on bool) ImporterOption {
	return func(im *Importer) error {
		im.sequential = on
		return nil
	}
}

// WithExcludeDirs skips directories whose name matches one of patterns.
func WithExcludeDirs(patterns ...string) ImporterOption {
	return func(im *Importer) error {
		globs, err := rf2.CompileGlobs(patterns)
		if err != nil {
			return err
		}
		im.exclude = append(im.exclude, globs...)
		return nil
	}
}

func NewImporter(opts ...ImporterOption) (*Importer, error) {
	im := &Importer{workers: runtime.NumCPU()}
	for _, opt := range opts {
		if err := opt(im); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// NewImporterFromConfig builds an Importer from the [import] table.
func NewImporterFromConfig(cfg config.Import) (*Importer, error) {
	opts := []ImporterOption{WithSequential(cfg.Sequential), WithExcludeDirs(cfg.ExcludeDirs...)}
	if cfg.Workers > 0 {
		opts = append(opts, WithWorkers(cfg.Workers))
	}
	return NewImporter(opts...)
}

// Request describes one load.
type Request struct {
	Dirs     []string
	Mode     rf2.Mode
	Profile  config.Profile
	Consumer ports.Consumer
}

// Result summarizes a successful load.
type Result struct {
	Files    rf2.ReleaseFiles
	Versions []string
	Rules    []string
	Duration time.Duration
}

func (im *Importer) LoadSnapshot(ctx context.Context, dirs []string, profile config.Profile, consumer ports.Consumer) (Result, error) {
	return im.Load(ctx, Request{Dirs: dirs, Mode: rf2.ModeSnapshot, Profile: profile, Consumer: consumer})
}

func (im *Importer) LoadDelta(ctx context.Context, dirs []string, profile config.Profile, consumer ports.Consumer) (Result, error) {
	return im.Load(ctx, Request{Dirs: dirs, Mode: rf2.ModeDelta, Profile: profile, Consumer: consumer})
}

// LoadFull replays a full release one version at a time, oldest first.
func (im *Importer) LoadFull(ctx context.Context, dirs []string, profile config.Profile, consumer ports.HistoryConsumer) (Result, error) {
	return im.Load(ctx, Request{Dirs: dirs, Mode: rf2.ModeFull, Profile: profile, Consumer: consumer})
}

// LoadEffectiveSnapshot loads several snapshots, possibly overlapping, and
// forwards only the latest version of each component.
func (im *Importer) LoadEffectiveSnapshot(ctx context.Context, dirs []string, profile config.Profile, consumer ports.Consumer) (Result, error) {
	return im.Load(ctx, Request{
		Dirs:     dirs,
		Mode:     rf2.ModeSnapshot,
		Profile:  profile.With(config.WithEffectiveFilter(true)),
		Consumer: consumer,
	})
}

// LoadEffectiveSnapshotAndDelta is LoadEffectiveSnapshot over both the
// snapshot and the delta files of dirs.
func (im *Importer) LoadEffectiveSnapshotAndDelta(ctx context.Context, dirs []string, profile config.Profile, consumer ports.Consumer) (Result, error) {
	return im.Load(ctx, Request{
		Dirs:     dirs,
		Mode:     rf2.ModeSnapshotAndDelta,
		Profile:  profile.With(config.WithEffectiveFilter(true)),
		Consumer: consumer,
	})
}

func validate(req Request) error {
	if req.Consumer == nil {
		return errors.New(errors.CodeConfiguration, "a consumer is required")
	}
	if len(req.Dirs) == 0 {
		return errors.New(errors.CodeConfiguration, "at least one release directory is required")
	}
	if req.Profile.EffectiveFilter() && (req.Mode == rf2.ModeDelta || req.Mode == rf2.ModeFull) {
		return errors.AddContext(
			errors.New(errors.CodeConfiguration, "the effective component filter can only be used when loading snapshots, or snapshots and deltas"),
			errors.CtxOperation, req.Mode.String())
	}
	if req.Mode == rf2.ModeFull {
		if _, ok := req.Consumer.(ports.HistoryConsumer); !ok {
			return errors.New(errors.CodeConfiguration, "loading a full release needs a consumer that follows versions")
		}
	}
	return nil
}

// Load runs one import. Configuration errors are returned before any file is
// opened. Task errors do not stop sibling tasks; they are collected and
// returned together once every task has finished, and FinishLoading is then
// not called.
func (im *Importer) Load(ctx context.Context, req Request) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "Importer.Load", trace.WithAttributes(
		attribute.String("mode", req.Mode.String()),
		attribute.StringSlice("dirs", req.Dirs),
	))
	defer span.End()
	started := time.Now()

	result, err := im.load(ctx, req)
	result.Duration = time.Since(started)
	observability.StageDuration.WithLabelValues("total").Observe(result.Duration.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	slog.Info("release files read",
		"mode", req.Mode,
		"files", result.Files.Count(),
		"duration", result.Duration.Round(time.Millisecond),
		"heap_mb", util.HeapAllocMB())
	return result, nil
}

func (im *Importer) load(ctx context.Context, req Request) (Result, error) {
	var result Result
	if err := validate(req); err != nil {
		return result, err
	}
	profile := req.Profile

	stage := time.Now()
	files, err := rf2.Find(req.Dirs, req.Mode, profile.Requirements(), im.exclude)
	if err != nil {
		return result, err
	}
	observability.StageDuration.WithLabelValues("discover").Observe(time.Since(stage).Seconds())
	result.Files = files
	slog.Info("loading release files", "mode", req.Mode, "files", files.String(), "profile", profile)

	var rules []filter.Rule
	if ids := profile.ModuleIDs(); len(ids) > 0 {
		rules = append(rules, filter.ModuleRule(ids...))
	}
	if cutoffs := profile.ModuleEffectiveTimes(); len(cutoffs) > 0 {
		rules = append(rules, filter.ModuleTimeRule(cutoffs))
	}
	if profile.EffectiveFilter() {
		ledger, err := im.prepass(ctx, files, profile, req.Consumer)
		if err != nil {
			return result, err
		}
		rules = append(rules, filter.EffectiveRule(ledger))
	}

	consumer := req.Consumer
	if len(rules) > 0 {
		chain := filter.Wrap(consumer, rules...)
		result.Rules = chain.Rules()
		consumer = chain
	}

	consumer.StartLoading()

	var failures *multierror.Error
	if req.Mode == rf2.ModeFull {
		history := consumer.(ports.HistoryConsumer)
		versions, err := rf2.GatherVersions(ctx, files)
		if err != nil {
			return result, err
		}
		result.Versions = versions
		for _, v := range versions {
			history.StartVersion(v)
			slog.Info("loading release version", "version", v)
			failures = multierror.Append(failures,
				im.loadAll(ctx, files, profile, consumer, rf2.ReadOptions{Version: v, Versioned: true}, im.sequential))
			history.FinishVersion(v)
		}
	} else {
		failures = multierror.Append(failures, im.loadAll(ctx, files, profile, consumer, rf2.ReadOptions{}, im.sequential))
	}

	if err := aggregate(failures); err != nil {
		return result, err
	}
	if err := consumer.FinishLoading(); err != nil {
		return result, errors.AddContext(err, errors.CtxOperation, "finish_loading")
	}
	return result, nil
}

// prepass records the latest effective time of every component over the
// unfiltered files, inactive rows included, so the forwarding pass can tell
// which row is current.
func (im *Importer) prepass(ctx context.Context, files rf2.ReleaseFiles, profile config.Profile, consumer ports.Consumer) (*filter.Ledger, error) {
	ctx, span := observability.Tracer.Start(ctx, "Importer.prepass")
	defer span.End()
	started := time.Now()

	slog.Info("gathering effective times for effective component filtering")
	consumer.Preprocessing()

	ledger := filter.NewLedger()
	pp := profile.With(
		config.WithInactiveComponents(),
		config.WithInactiveRefsetMembers(true),
	)
	// The ledger is a plain map; the pre-pass always runs on one goroutine.
	if err := aggregate(im.loadAll(ctx, files, pp, ledger, rf2.ReadOptions{}, true)); err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "effective_prepass")
	}
	ledger.Seal()
	observability.StageDuration.WithLabelValues("prepass").Observe(time.Since(started).Seconds())
	return ledger, nil
}

func aggregate(failures *multierror.Error) error {
	if failures == nil || len(failures.Errors) == 0 {
		return nil
	}
	first := failures.Errors[0]
	n := len(failures.Errors)
	if n > 1 {
		slog.Error("release loading failed", "errors", n, "detail", failures.Error())
	}
	err := errors.Wrap(first, errors.CodeTaskFailure,
		fmt.Sprintf("failed to load release files, %d exceptions caught in tasks", n))
	return errors.AddContext(err, errors.CtxCount, n)
}

// task reads a group of files with one handler. A group stops at its first
// failing file.
type task struct {
	name     string
	category rf2.Category
	paths    []string
	handle   func(rf2.Line)
}

func (t task) run(ctx context.Context, opts rf2.ReadOptions) error {
	ctx, span := observability.Tracer.Start(ctx, "task."+t.name, trace.WithAttributes(
		attribute.Int("files", len(t.paths)),
	))
	defer span.End()

	for _, path := range t.paths {
		n, err := rf2.ReadFile(ctx, path, t.category.Family(), opts, t.handle)
		if err != nil {
			observability.TaskFailures.Inc()
			span.RecordError(err)
			slog.Error("failed to read or process lines", "task", t.name, "path", path, "error", err)
			return err
		}
		slog.Debug("file read", "task", t.name, "path", path, "lines", n, "version", opts.Version)
	}
	return nil
}

// loadAll reads every file group of files once. Concepts are read first on
// the calling goroutine, then the other core groups, then the refset files.
// It returns the errors of every failed task.
func (im *Importer) loadAll(ctx context.Context, files rf2.ReleaseFiles, profile config.Profile, consumer ports.Consumer, opts rf2.ReadOptions, sequential bool) *multierror.Error {
	d := dispatch.New(profile, consumer)
	var failures *multierror.Error

	if !profile.JustRefsets() {
		stage := time.Now()
		if profile.Concepts() {
			concepts := task{name: "concepts", category: rf2.CategoryConcept, paths: files.Concepts, handle: d.Concept}
			if err := concepts.run(ctx, opts); err != nil {
				failures = multierror.Append(failures, err)
			}
		}
		observability.StageDuration.WithLabelValues("concepts").Observe(time.Since(stage).Seconds())

		var core []task
		if profile.Relationships() {
			core = append(core,
				task{name: "relationships", category: rf2.CategoryRelationship, paths: files.Relationships},
				task{name: "concrete_relationships", category: rf2.CategoryConcreteRelationship, paths: files.ConcreteRelationships})
		}
		if profile.Identifiers() {
			core = append(core, task{name: "identifiers", category: rf2.CategoryIdentifier, paths: files.Identifiers})
		}
		if profile.StatedRelationships() && len(files.StatedRelationships) > 0 {
			core = append(core, task{name: "stated_relationships", category: rf2.CategoryStatedRelationship, paths: files.StatedRelationships})
		}
		if profile.Descriptions() {
			core = append(core, task{name: "descriptions", category: rf2.CategoryDescription, paths: files.Descriptions})
		}
		if profile.TextDefinitions() && len(files.TextDefinitions) > 0 {
			core = append(core, task{name: "text_definitions", category: rf2.CategoryTextDefinition, paths: files.TextDefinitions})
		}
		for i := range core {
			core[i].handle = d.Handler(core[i].category)
		}

		stage = time.Now()
		failures = multierror.Append(failures, im.runTasks(ctx, core, opts, sequential))
		observability.StageDuration.WithLabelValues("core").Observe(time.Since(stage).Seconds())
	}

	if profile.LoadsRefsets() {
		refsets, err := refsetTasks(files.Refsets, profile, d)
		if err != nil {
			return multierror.Append(failures, err)
		}
		stage := time.Now()
		failures = multierror.Append(failures, im.runTasks(ctx, refsets, opts, sequential))
		observability.StageDuration.WithLabelValues("refsets").Observe(time.Since(stage).Seconds())
	}
	return failures
}

// refsetTasks builds one task per refset file. When filename patterns are
// set only matching files are read, and every member of a matching file is
// admitted.
func refsetTasks(paths []string, profile config.Profile, d *dispatch.Dispatcher) ([]task, error) {
	patterns := profile.RefsetFilenamePatterns()
	globs, err := rf2.CompileGlobs(patterns)
	if err != nil {
		return nil, err
	}
	if len(patterns) > 0 {
		slog.Info("refset filename patterns", "patterns", patterns)
	}

	var tasks []task
	matched := make(map[string]struct{})
	for _, path := range paths {
		name := filepath.Base(path)
		if len(globs) == 0 {
			tasks = append(tasks, task{name: "refset", category: rf2.CategoryRefset, paths: []string{path}, handle: d.RefsetMembers(false)})
			continue
		}
		hit := false
		for i, g := range globs {
			if g.Match(name) {
				slog.Info("refset file matches pattern", "file", name, "pattern", patterns[i])
				hit = true
				break
			}
		}
		if !hit {
			slog.Debug("refset file does not match any pattern", "file", name)
			continue
		}
		matched[name] = struct{}{}
		tasks = append(tasks, task{name: "refset", category: rf2.CategoryRefset, paths: []string{path}, handle: d.RefsetMembers(true)})
	}
	if len(patterns) > len(matched) {
		slog.Warn("fewer refset files matched than patterns were given",
			"patterns", len(patterns), "matches", len(matched), "matched", util.SortedKeys(matched))
	}
	return tasks, nil
}

// runTasks runs tasks on a bounded pool. A failing task never cancels its
// siblings.
func (im *Importer) runTasks(ctx context.Context, tasks []task, opts rf2.ReadOptions, sequential bool) *multierror.Error {
	var (
		mu       sync.Mutex
		failures *multierror.Error
	)
	record := func(err error) {
		mu.Lock()
		failures = multierror.Append(failures, err)
		mu.Unlock()
	}

	if sequential {
		for _, t := range tasks {
			if err := t.run(ctx, opts); err != nil {
				record(err)
			}
		}
		return failures
	}

	var g errgroup.Group
	g.SetLimit(im.workers)
	for _, t := range tasks {
		g.Go(func() error {
			if err := t.run(ctx, opts); err != nil {
				record(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}
