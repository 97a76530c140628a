package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finance-datagen/internal/config"
	"github.com/dvloznov/finance-datagen/internal/export"
	"github.com/dvloznov/finance-datagen/internal/gcs"
	"github.com/dvloznov/finance-datagen/internal/logger"
	"github.com/dvloznov/finance-datagen/internal/metrics"
	"github.com/dvloznov/finance-datagen/internal/pipeline"
	"github.com/dvloznov/finance-datagen/internal/source"
)

// MockStorageService is a mock implementation of gcs.StorageService for testing.
type MockStorageService struct {
	UploadFileFunc   func(ctx context.Context, bucketName, objectName, filePath string) error
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, bucketName, objectName, filePath)
	}
	return nil
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, gcs.ErrNotFound
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return filepath.Base(uri)
}

// MockStep records its execution and optionally fails.
type MockStep struct {
	name     string
	err      error
	executed *[]string
}

func (m *MockStep) Name() string { return m.name }

func (m *MockStep) Execute(ctx context.Context, state *pipeline.PipelineState) error {
	*m.executed = append(*m.executed, m.name)
	return m.err
}

var fixedNow = func() time.Time { return time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Generation.Population = 50
	cfg.Generation.Seed = 2024
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(&bytes.Buffer{}))
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	var executed []string
	boom := errors.New("boom")
	p := pipeline.NewPipeline(
		&MockStep{name: "first", executed: &executed},
		&MockStep{name: "second", err: boom, executed: &executed},
		&MockStep{name: "third", executed: &executed},
	)

	err := p.Execute(quietContext(), &pipeline.PipelineState{})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "pipeline step 2 (second) failed") {
		t.Errorf("error message = %q", err.Error())
	}
	if strings.Join(executed, ",") != "first,second" {
		t.Errorf("executed = %v", executed)
	}
}

func TestPipelineHonorsCancellation(t *testing.T) {
	var executed []string
	ctx, cancel := context.WithCancel(quietContext())
	cancel()

	err := pipeline.NewPipeline(&MockStep{name: "only", executed: &executed}).Execute(ctx, &pipeline.PipelineState{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if len(executed) != 0 {
		t.Errorf("executed = %v, want none", executed)
	}
}

func TestGeneratePipelineSteps(t *testing.T) {
	want := []string{
		pipeline.StepInit, pipeline.StepAssignPersonas, pipeline.StepSynthesizeAccounts,
		pipeline.StepSynthesizeTransactions, pipeline.StepReplay, pipeline.StepWriteOutputs,
		pipeline.StepWriteMetrics, pipeline.StepUpload,
	}
	if got := pipeline.NewGeneratePipeline(pipeline.Deps{}).Steps(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Steps() = %v, want %v", got, want)
	}
}

func TestGeneratePipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.MetricsFile = "datagen.prom"
	cfg.Storage.Bucket = "fixtures"
	cfg.Storage.Prefix = "nightly"

	var uploaded []string
	storage := &MockStorageService{
		UploadFileFunc: func(ctx context.Context, bucketName, objectName, filePath string) error {
			uploaded = append(uploaded, objectName)
			return nil
		},
	}
	collector := metrics.NewCollector()
	state := &pipeline.PipelineState{Config: cfg}

	p := pipeline.NewGeneratePipeline(pipeline.Deps{Storage: storage, Metrics: collector, Now: fixedNow})
	if err := p.Execute(quietContext(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(state.Households) != 50 {
		t.Errorf("households = %d, want 50", len(state.Households))
	}
	if len(state.Rows) != len(state.Transactions) || len(state.Rows) == 0 {
		t.Errorf("rows = %d, transactions = %d", len(state.Rows), len(state.Transactions))
	}
	two := 0
	for _, h := range state.Households {
		if len(h.Accounts) == 2 {
			two++
		}
	}
	if two != 2 {
		t.Errorf("two-account households = %d, want 2", two)
	}

	for _, name := range []string{export.TransactionsFile, export.UsersFile, export.AccountsFile, export.LiabilitiesFile, "datagen.prom"} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if len(uploaded) != 5 || uploaded[0] != "nightly/"+export.TransactionsFile {
		t.Errorf("uploaded = %v", uploaded)
	}
	if len(state.UploadedURIs) != 5 || state.UploadedURIs[0] != "gs://fixtures/nightly/"+export.TransactionsFile {
		t.Errorf("uploaded uris = %v", state.UploadedURIs)
	}
}

func TestGeneratePipelineIndependentOfWorkers(t *testing.T) {
	run := func(workers int) []byte {
		cfg := testConfig(t)
		cfg.Generation.Workers = workers
		state := &pipeline.PipelineState{Config: cfg}
		if err := pipeline.NewGeneratePipeline(pipeline.Deps{Now: fixedNow}).Execute(quietContext(), state); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, export.TransactionsFile))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	if !bytes.Equal(run(1), run(8)) {
		t.Error("transactions.csv differs between 1 and 8 workers")
	}
}

func TestGeneratePipelineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Population = 0
	state := &pipeline.PipelineState{Config: cfg}

	err := pipeline.NewGeneratePipeline(pipeline.Deps{Now: fixedNow}).Execute(quietContext(), state)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("Execute() error = %v, want config.ErrInvalid", err)
	}
	entries, _ := os.ReadDir(cfg.Output.Dir)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}

func TestReplayPipelineFromLocalSource(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "export.csv")
	body := "date,merchant,amount,category\n" +
		"2025-05-01,Corner Cafe,-4.50,Food and Drink\n" +
		"2025-05-02,Hardware Store,-82.10,Shops\n" +
		"2025-05-03,ACME PAYROLL,2100.00,Payroll\n" +
		"2025-05-04,Bookshop,-19.99,Shops\n"
	if err := os.WriteFile(src, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Source.Path = src
	cfg.Source.SampleSize = 3

	state := &pipeline.PipelineState{Config: cfg}
	if err := pipeline.NewReplayPipeline(pipeline.Deps{Now: fixedNow}).Execute(quietContext(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(state.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(state.Rows))
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, export.TransactionsFile)); err != nil {
		t.Errorf("transactions.csv not written: %v", err)
	}
}

func TestReplayPipelineMissingSource(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"no path", ""},
		{"local file", "/nonexistent/export.csv"},
		{"bucket object", "gs://fixtures/missing.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Source.Path = tt.path
			state := &pipeline.PipelineState{Config: cfg}

			err := pipeline.NewReplayPipeline(pipeline.Deps{Storage: &MockStorageService{}, Now: fixedNow}).
				Execute(quietContext(), state)
			if !errors.Is(err, source.ErrSourceNotFound) {
				t.Fatalf("Execute() error = %v, want source.ErrSourceNotFound", err)
			}
			entries, _ := os.ReadDir(cfg.Output.Dir)
			if len(entries) != 0 {
				t.Errorf("output written despite missing source: %d entries", len(entries))
			}
		})
	}
}

func TestUploadStepWithoutBucketIsNoop(t *testing.T) {
	cfg := testConfig(t)
	state := &pipeline.PipelineState{Config: cfg, OutputPaths: []string{"a.csv"}}
	called := false
	step := &pipeline.UploadStep{Storage: &MockStorageService{
		UploadFileFunc: func(ctx context.Context, bucketName, objectName, filePath string) error {
			called = true
			return nil
		},
	}}
	if err := step.Execute(quietContext(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if called {
		t.Error("UploadFile called without a bucket")
	}
}

func TestReplayStepWarnsOnOverdrawnSource(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "export.csv")
	body := "date,merchant,amount\n" +
		"2025-05-01,Car Dealer,-50000.00\n" +
		"2025-05-02,Car Dealer,-50000.00\n"
	if err := os.WriteFile(src, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Source.Path = src

	var logs bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs))
	state := &pipeline.PipelineState{Config: cfg}
	if err := pipeline.NewReplayPipeline(pipeline.Deps{Now: fixedNow}).Execute(ctx, state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "balances replayed") {
		t.Errorf("missing replay summary in logs:\n%s", out)
	}
	if !strings.Contains(out, "depository accounts end the window overdrawn") {
		t.Errorf("missing overdrawn warning in logs:\n%s", out)
	}
}

func TestGeneratePipelineLeavesNoOverdrawnAccounts(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs))
	state := &pipeline.PipelineState{Config: cfg}
	if err := pipeline.NewGeneratePipeline(pipeline.Deps{Now: fixedNow}).Execute(ctx, state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Contains(logs.String(), "overdrawn") {
		t.Errorf("synthesized run reported overdrawn accounts:\n%s", logs.String())
	}
}
