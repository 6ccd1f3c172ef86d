package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/casegen/config"
	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/model"
	generationorchestrator "github.com/c360studio/casegen/processor/generation-orchestrator"
	requirementextractor "github.com/c360studio/casegen/processor/requirement-extractor"
	suiteanalyzer "github.com/c360studio/casegen/processor/suite-analyzer"
	testcaseassistant "github.com/c360studio/casegen/processor/testcase-assistant"
	testcasegenerator "github.com/c360studio/casegen/processor/testcase-generator"
	"github.com/c360studio/casegen/source"
	"github.com/c360studio/casegen/source/parser"
	"github.com/c360studio/casegen/source/watcher"
	"github.com/c360studio/casegen/storage"
	"github.com/c360studio/casegen/workflow"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App wires configuration, storage and the pipeline services together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// Storage
	store    storage.Store
	natsConn *nats.Conn

	// Pipeline
	documents    *source.Extractor
	extractor    *requirementextractor.Extractor
	generator    *testcasegenerator.Generator
	assistant    *testcaseassistant.Assistant
	analyzer     *suiteanalyzer.Analyzer
	orchestrator *generationorchestrator.Orchestrator
}

// NewApp opens the configured store and builds the completion stack from
// the model registry.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	registry := model.NewDefaultRegistry()
	if cfg.Model.Registry != "" {
		loaded, err := model.LoadFromFile(cfg.Model.Registry)
		if err != nil {
			return nil, fmt.Errorf("load model registry: %w", err)
		}
		registry = loaded
	}

	app := &App{cfg: cfg, logger: logger}
	if err := app.openStore(ctx); err != nil {
		return nil, err
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Model.MaxAttempts
	client := llm.NewClient(registry,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
		llm.WithRetryConfig(retry),
		llm.WithFallback(cfg.Model.Fallback),
		llm.WithLogger(logger),
		llm.WithCallRecorder(app.store),
	)
	app.wire(client)
	return app, nil
}

// newApp builds an App over an already open store. Tests use it with a
// scripted completer.
func newApp(cfg *config.Config, logger *slog.Logger, store storage.Store, completer llm.Completer) *App {
	app := &App{cfg: cfg, logger: logger, store: store}
	app.wire(completer)
	return app
}

func (a *App) wire(completer llm.Completer) {
	gen := a.cfg.Generation
	gateway := llm.NewGateway(completer,
		llm.WithGatewayLogger(a.logger),
		llm.WithRateLimit(gen.RateLimit, gen.Burst),
		llm.WithDefaultTemperature(a.cfg.Model.Temperature),
	)

	a.documents = source.NewExtractor(parser.NewRegistry(), source.WithLogger(a.logger))
	a.extractor = requirementextractor.New(gateway,
		requirementextractor.WithLogger(a.logger),
		requirementextractor.WithConfig(gen.Extractor))
	a.generator = testcasegenerator.New(gateway,
		testcasegenerator.WithLogger(a.logger),
		testcasegenerator.WithConfig(gen.Generator))
	a.assistant = testcaseassistant.New(gateway,
		testcaseassistant.WithLogger(a.logger),
		testcaseassistant.WithConfig(gen.Assistant))
	a.analyzer = suiteanalyzer.New(gateway,
		suiteanalyzer.WithLogger(a.logger),
		suiteanalyzer.WithConfig(gen.Analyzer),
		suiteanalyzer.WithHealer(a.assistant))
	a.orchestrator = generationorchestrator.New(a.extractor, a.generator,
		generationorchestrator.WithLogger(a.logger),
		generationorchestrator.WithPacing(gen.Pacing))
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case "nats":
		a.logger.Info("Connecting to NATS", "url", a.cfg.Storage.NATSURL)
		conn, err := nats.Connect(a.cfg.Storage.NATSURL,
			nats.Name("casegen"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second))
		if err != nil {
			return wrapNATSError(err, a.cfg.Storage.NATSURL)
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return fmt.Errorf("create JetStream context: %w", err)
		}
		bucket := a.cfg.Storage.Bucket
		if bucket == "" {
			bucket = storage.DefaultBucket
		}
		store, err := storage.NewKVStore(ctx, js, bucket, storage.WithKVLogger(a.logger))
		if err != nil {
			conn.Close()
			return fmt.Errorf("open workspace bucket: %w", err)
		}
		a.natsConn = conn
		a.store = store
	default:
		path := a.cfg.StoragePath()
		store, err := storage.OpenSQLite(path, storage.WithSQLiteLogger(a.logger))
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		a.logger.Debug("Opened workspace", "path", path)
		a.store = store
	}
	return nil
}

// wrapNATSError adds guidance when the server cannot be reached.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server with JetStream enabled (nats-server -js), or set
storage.backend to sqlite.`, err, url)
	}
	return fmt.Errorf("NATS connection failed: %w", err)
}

// Close releases the store and any NATS connection.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	return err
}

// GenerateInput selects the requirement text for a run.
type GenerateInput struct {
	// Text is literal requirement text, placed before any file content.
	Text string
	// Patterns are files, directories or globs to read.
	Patterns []string
	// Source overrides the provenance label.
	Source string
	// Analyze runs the pre-generation review first.
	Analyze bool
}

// GenerateOutput is what a generate run prints.
type GenerateOutput struct {
	Files       []string                       `json:"files,omitempty"`
	Unsupported []string                       `json:"unsupported,omitempty"`
	Analysis    *workflow.Analysis             `json:"analysis,omitempty"`
	Result      *generationorchestrator.Result `json:"result"`
}

// Generate runs the pipeline over the selected input and commits the result.
func (a *App) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	out := &GenerateOutput{}
	text, declared, err := a.collectInput(ctx, in, out)
	if err != nil {
		return nil, err
	}

	src, err := chooseSource(in.Source, declared, len(out.Files) > 0)
	if err != nil {
		return nil, err
	}

	if in.Analyze && strings.TrimSpace(text) != "" {
		analysis, err := a.extractor.Analyze(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("analyze requirements: %w", err)
		}
		out.Analysis = analysis
	}

	result, err := a.orchestrator.Run(ctx, generationorchestrator.Input{Text: text, Source: src}, a.logProgress)
	if err != nil {
		return nil, err
	}
	if err := a.rekey(ctx, result); err != nil {
		return nil, err
	}
	if err := a.store.Commit(ctx, result.Requirements, result.TestCases); err != nil {
		return nil, fmt.Errorf("commit run %s: %w", result.RunID, err)
	}
	out.Result = result
	return out, nil
}

// rekey renames run ids that are already in the workspace. Extraction
// numbers requirements from REQ-001 on every run.
func (a *App) rekey(ctx context.Context, result *generationorchestrator.Result) error {
	existingReqs, err := a.store.Requirements(ctx)
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}
	existingCases, err := a.store.TestCases(ctx)
	if err != nil {
		return fmt.Errorf("load test cases: %w", err)
	}
	if len(existingReqs) == 0 && len(existingCases) == 0 {
		return nil
	}

	reqIDs := make([]string, len(existingReqs))
	for i, r := range existingReqs {
		reqIDs[i] = r.ID
	}
	caseIDs := make([]string, len(existingCases))
	for i, tc := range existingCases {
		caseIDs[i] = tc.ID
	}
	result.Requirements, result.TestCases = workflow.RekeyRun(reqIDs, caseIDs, result.Requirements, result.TestCases)
	result.Traceability = workflow.BuildTraceability(result.Requirements, result.TestCases)
	return nil
}

func (a *App) collectInput(ctx context.Context, in GenerateInput, out *GenerateOutput) (string, workflow.Source, error) {
	parts := []string{}
	if strings.TrimSpace(in.Text) != "" {
		parts = append(parts, in.Text)
	}

	var declared workflow.Source
	if len(in.Patterns) > 0 {
		files, err := source.ResolveFiles(in.Patterns, a.cfg.Ingest.Extensions)
		if err != nil {
			return "", "", err
		}
		if len(files) == 0 {
			return "", "", fmt.Errorf("no documents match %s", strings.Join(in.Patterns, ", "))
		}
		extraction, err := a.documents.ExtractFiles(ctx, files)
		if err != nil {
			return "", "", err
		}
		out.Files = files
		out.Unsupported = extraction.Unsupported
		declared = extraction.Source
		parts = append(parts, extraction.Text)
	}
	return strings.Join(parts, source.DocumentSeparator), declared, nil
}

// chooseSource picks the provenance label: an explicit flag, then a label
// every document declared, then the default for the input kind.
func chooseSource(flag string, declared workflow.Source, fromFiles bool) (workflow.Source, error) {
	switch {
	case flag != "":
		return workflow.ParseSource(flag)
	case declared != "":
		return declared, nil
	case fromFiles:
		return workflow.SourceDocumentUpload, nil
	default:
		return workflow.SourceManualEntry, nil
	}
}

func (a *App) logProgress(p workflow.Progress) {
	a.logger.Info("Generation progress",
		"step", p.Step,
		"progress", p.Progress,
		"state", p.State,
		"message", p.Message)
}

// Trace builds the traceability report for the stored workspace.
func (a *App) Trace(ctx context.Context) (*workflow.Traceability, error) {
	reqs, err := a.store.Requirements(ctx)
	if err != nil {
		return nil, err
	}
	cases, err := a.store.TestCases(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.BuildTraceability(reqs, cases), nil
}

// Suggestion is an improvement proposal for one test case.
type Suggestion struct {
	TestCaseID string                 `json:"testCaseId"`
	Fields     []string               `json:"fields"`
	Patch      workflow.TestCasePatch `json:"patch"`
	Applied    bool                   `json:"applied"`
	TestCase   workflow.TestCase      `json:"testCase"`
}

// Improve asks for improvements to a stored test case. With apply the
// patch is saved; otherwise TestCase shows the result without storing it.
func (a *App) Improve(ctx context.Context, id string, apply bool) (*Suggestion, error) {
	tc, err := a.store.TestCase(ctx, id)
	if err != nil {
		return nil, err
	}
	patch, err := a.assistant.Improve(ctx, *tc)
	if err != nil {
		return nil, err
	}

	s := &Suggestion{TestCaseID: id, Fields: patch.Fields(), Patch: patch, TestCase: patch.Apply(*tc)}
	if apply && !patch.IsEmpty() {
		updated, err := a.store.PatchTestCase(ctx, id, patch)
		if err != nil {
			return nil, err
		}
		s.Applied = true
		s.TestCase = *updated
	}
	return s, nil
}

// Automate returns an automation script for a stored test case.
func (a *App) Automate(ctx context.Context, id string) (string, error) {
	tc, err := a.store.TestCase(ctx, id)
	if err != nil {
		return "", err
	}
	return a.assistant.Automate(ctx, *tc)
}

// DuplicateReport lists duplicate pairs and, after a merge, the removed ids.
type DuplicateReport struct {
	Pairs   []workflow.DuplicatePair `json:"pairs"`
	Removed []string                 `json:"removed,omitempty"`
}

// Duplicates detects duplicate pairs. Merging keeps the first case of each
// pair and deletes the second.
func (a *App) Duplicates(ctx context.Context, merge bool) (*DuplicateReport, error) {
	cases, err := a.store.TestCases(ctx)
	if err != nil {
		return nil, err
	}
	pairs, err := a.analyzer.DetectDuplicates(ctx, cases)
	if err != nil {
		return nil, err
	}

	report := &DuplicateReport{Pairs: pairs}
	if !merge {
		return report, nil
	}
	removed := map[string]bool{}
	for _, pair := range pairs {
		if removed[pair.TestCase1ID] || removed[pair.TestCase2ID] {
			continue
		}
		if err := a.store.DeleteTestCase(ctx, pair.TestCase2ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("merge %s into %s: %w", pair.TestCase2ID, pair.TestCase1ID, err)
		}
		removed[pair.TestCase2ID] = true
		report.Removed = append(report.Removed, pair.TestCase2ID)
	}
	return report, nil
}

// Impact ranks stored test cases affected by change.
func (a *App) Impact(ctx context.Context, change string) ([]workflow.ImpactResult, error) {
	cases, err := a.store.TestCases(ctx)
	if err != nil {
		return nil, err
	}
	return a.analyzer.AnalyzeImpact(ctx, change, cases)
}

// Heal rewrites one stored test case for change and saves the result.
func (a *App) Heal(ctx context.Context, id, change, rationale string) (*workflow.TestCase, error) {
	tc, err := a.store.TestCase(ctx, id)
	if err != nil {
		return nil, err
	}
	patch, err := a.assistant.Heal(ctx, *tc, change, rationale)
	if err != nil {
		return nil, err
	}
	return a.store.PatchTestCase(ctx, id, patch)
}

// HealImpacted analyzes change and heals every case needing an update.
func (a *App) HealImpacted(ctx context.Context, change string) ([]suiteanalyzer.HealOutcome, error) {
	cases, err := a.store.TestCases(ctx)
	if err != nil {
		return nil, err
	}
	impacts, err := a.analyzer.AnalyzeImpact(ctx, change, cases)
	if err != nil {
		return nil, err
	}
	outcomes, err := a.analyzer.HealImpacted(ctx, change, cases, impacts)
	if err != nil {
		return nil, err
	}
	for i, outcome := range outcomes {
		updated, err := a.store.PatchTestCase(ctx, outcome.TestCaseID, outcome.Patch)
		if err != nil {
			return nil, err
		}
		outcomes[i].TestCase = *updated
	}
	return outcomes, nil
}

// BulkEdit applies update to the listed test cases.
func (a *App) BulkEdit(ctx context.Context, ids []string, update workflow.BulkUpdate) ([]workflow.TestCase, error) {
	if len(ids) == 0 {
		return nil, errors.New("no test case ids given")
	}
	return a.store.BulkUpdate(ctx, ids, update)
}

// Usage returns token usage per intent when the store records it.
func (a *App) Usage(ctx context.Context) (map[string]llm.TokenUsage, error) {
	reporter, ok := a.store.(interface {
		CallUsage(ctx context.Context) (map[string]llm.TokenUsage, error)
	})
	if !ok {
		return nil, fmt.Errorf("storage backend %q does not report usage", a.cfg.Storage.Backend)
	}
	return reporter.CallUsage(ctx)
}

// Watch regenerates the workspace from every document under dir whenever
// the set changes. It runs until ctx is cancelled.
func (a *App) Watch(ctx context.Context, dir string, initial bool) error {
	w, err := watcher.New(dir, watcher.Config{
		Debounce:    a.cfg.Ingest.Debounce,
		Extensions:  a.cfg.Ingest.Extensions,
		Include:     a.cfg.Ingest.Include,
		ExcludeDirs: a.cfg.Ingest.ExcludeDirs,
	}, watcher.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	if a.cfg.Metrics.Addr != "" {
		stop := a.serveMetrics(a.cfg.Metrics.Addr)
		defer stop()
	}

	if initial {
		a.regenerate(ctx, w.Snapshot())
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			a.logger.Info("Documents changed", "changes", len(batch), "dropped_batches", w.Dropped())
			a.regenerate(ctx, w.Snapshot())
		}
	}
}

// regenerate replaces the workspace with a fresh run over files. Failures
// are logged and the previous workspace is kept.
func (a *App) regenerate(ctx context.Context, files []string) {
	if len(files) == 0 {
		a.logger.Warn("No documents to generate from")
		return
	}
	extraction, err := a.documents.ExtractFiles(ctx, files)
	if err != nil {
		a.logger.Error("Document extraction failed", "error", err)
		return
	}
	src := extraction.Source
	if src == "" {
		src = workflow.SourceDocumentUpload
	}

	result, err := a.orchestrator.Run(ctx, generationorchestrator.Input{Text: extraction.Text, Source: src}, a.logProgress)
	if err != nil {
		a.logger.Error("Regeneration failed, keeping previous workspace", "error", err)
		return
	}
	if err := a.store.Replace(ctx, result.Requirements, result.TestCases); err != nil {
		a.logger.Error("Workspace replace failed", "run_id", result.RunID, "error", err)
		return
	}
	a.logger.Info("Workspace regenerated",
		"run_id", result.RunID,
		"documents", len(files),
		"requirements", len(result.Requirements),
		"test_cases", len(result.TestCases))
}

// serveMetrics exposes Prometheus metrics on addr until the returned
// function is called.
func (a *App) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
