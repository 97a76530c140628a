package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/export"
	"github.com/dvloznov/finance-datagen/internal/gcs"
	"github.com/dvloznov/finance-datagen/internal/gcsuploader"
	"github.com/dvloznov/finance-datagen/internal/generator"
	"github.com/dvloznov/finance-datagen/internal/logger"
	"github.com/dvloznov/finance-datagen/internal/metrics"
	"github.com/dvloznov/finance-datagen/internal/persona"
	"github.com/dvloznov/finance-datagen/internal/source"
)

// sourceStream separates the source sampling generator from the per-user ones.
const sourceStream = 1 << 62

var errNoConfig = errors.New("pipeline state has no config")

// Step 1: InitGenerationStep resolves policies, weights and the window and
// creates the GenerationContext.
type InitGenerationStep struct {
	Recorder generator.Recorder
	Now      func() time.Time
}

func (s *InitGenerationStep) Name() string { return StepInit }

func (s *InitGenerationStep) Execute(ctx context.Context, state *PipelineState) error {
	cfg := state.Config
	if cfg == nil {
		return errNoConfig
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	asOf, err := cfg.AsOfDate(now())
	if err != nil {
		return err
	}
	policies, err := cfg.PolicyTable()
	if err != nil {
		return err
	}
	weights, err := cfg.PersonaWeights()
	if err != nil {
		return err
	}

	g, err := generator.New(generator.Options{
		Population:   cfg.Generation.Population,
		Seed:         cfg.Generation.Seed,
		WindowDays:   cfg.Generation.WindowDays,
		AsOf:         asOf,
		Policies:     policies,
		LowRiskQuota: cfg.Generation.LowRiskQuota,
		Recorder:     s.Recorder,
	})
	if err != nil {
		return err
	}

	state.Policies = policies
	state.Weights = weights
	state.Generator = g

	logger.FromContext(ctx).Info().
		Int("population", cfg.Generation.Population).
		Uint64("seed", cfg.Generation.Seed).
		Time("as_of", asOf).
		Int("window_days", g.Window().Days).
		Msg("generation initialized")
	return nil
}

// Step 2: AssignPersonasStep labels every user.
type AssignPersonasStep struct{}

func (s *AssignPersonasStep) Name() string { return StepAssignPersonas }

func (s *AssignPersonasStep) Execute(ctx context.Context, state *PipelineState) error {
	g := state.Generator
	state.Labels = persona.Assign(g.Rand(), g.Population(), state.Weights)

	tally := persona.Tally(state.Labels)
	ev := logger.FromContext(ctx).Info()
	for _, p := range persona.All {
		ev = ev.Int(p.String(), tally[p])
	}
	ev.Msg("personas assigned")
	return nil
}

// Step 3: SynthesizeAccountsStep creates households sequentially. Income
// quotas and the low-risk carve-out are consumed in user order here.
type SynthesizeAccountsStep struct{}

func (s *SynthesizeAccountsStep) Name() string { return StepSynthesizeAccounts }

func (s *SynthesizeAccountsStep) Execute(ctx context.Context, state *PipelineState) error {
	g := state.Generator
	state.Households = make([]generator.Household, len(state.Labels))
	for i, p := range state.Labels {
		state.Households[i] = g.NewHousehold(i, p)
	}

	low, middle, high := g.IncomeCounts()
	logger.FromContext(ctx).Info().
		Int("households", len(state.Households)).
		Int("low_risk", g.LowRiskAssigned()).
		Int("income_low", low).
		Int("income_middle", middle).
		Int("income_high", high).
		Msg("accounts synthesized")

	if g.LowRiskAssigned() < g.LowRiskQuota() {
		logger.FromContext(ctx).Warn().
			Int("assigned", g.LowRiskAssigned()).
			Int("quota", g.LowRiskQuota()).
			Msg("not enough savings_builder or balanced_stable users to fill the low-risk carve-out")
	}
	return nil
}

// Step 4: SynthesizeTransactionsStep generates every household's history on
// a bounded worker pool. Each household draws from its own generator and
// writes into its own slot, so the result does not depend on scheduling.
type SynthesizeTransactionsStep struct{}

func (s *SynthesizeTransactionsStep) Name() string { return StepSynthesizeTransactions }

func (s *SynthesizeTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	g := state.Generator
	syn := g.Synthesizer()
	perUser := make([][]domain.Transaction, len(state.Households))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers(state))
	for i := range state.Households {
		h := state.Households[i]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perUser[i] = syn.ForHousehold(g.UserRand(h.Index), h, state.Policies)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	state.Transactions = state.Transactions[:0]
	for _, txns := range perUser {
		state.Transactions = append(state.Transactions, txns...)
	}
	logger.FromContext(ctx).Info().
		Int("transactions", len(state.Transactions)).
		Int("workers", workers(state)).
		Msg("transactions synthesized")
	return nil
}

func workers(state *PipelineState) int {
	if n := state.Config.Generation.Workers; n > 0 {
		return n
	}
	return 1
}

// LoadSourceStep replaces synthesis with rows sampled from an external table.
type LoadSourceStep struct {
	Fetcher source.Fetcher
}

func (s *LoadSourceStep) Name() string { return StepLoadSource }

func (s *LoadSourceStep) Execute(ctx context.Context, state *PipelineState) error {
	cfg := state.Config
	if cfg.Source.Path == "" {
		return fmt.Errorf("source.path is required in replay mode: %w", source.ErrSourceNotFound)
	}

	records, err := source.Load(ctx, cfg.Source.Path, s.Fetcher)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(cfg.Generation.Seed, sourceStream))
	sampled := source.Sample(rng, records, cfg.Source.SampleSize)

	txns, err := source.Distribute(sampled, state.Accounts())
	if err != nil {
		return err
	}
	state.Transactions = txns

	logger.FromContext(ctx).Info().
		Str("source", cfg.Source.Path).
		Int("rows", len(records)).
		Int("sampled", len(sampled)).
		Msg("source transactions loaded")
	return nil
}

// Step 5: ReplayStep computes running balances and the export rows.
type ReplayStep struct{}

func (s *ReplayStep) Name() string { return StepReplay }

func (s *ReplayStep) Execute(ctx context.Context, state *PipelineState) error {
	accounts := state.Accounts()
	rows, err := export.Replay(accounts, state.Transactions, export.CustomerIDs(state.Users()))
	if err != nil {
		return err
	}
	state.Rows = rows

	final := export.FinalBalances(rows)
	overdrawn := 0
	for _, a := range accounts {
		if b, ok := final[a.ID]; ok && a.Type == domain.TypeDepository && b.IsNegative() {
			overdrawn++
		}
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("rows", len(rows)).
		Int("accounts", len(final)).
		Msg("balances replayed")
	if overdrawn > 0 {
		// Only sourced rows can do this; synthesized debits are fitted to the balance.
		log.Warn().Int("accounts", overdrawn).Msg("depository accounts end the window overdrawn")
	}
	return nil
}

// Step 6: WriteOutputsStep writes the CSV files.
type WriteOutputsStep struct{}

func (s *WriteOutputsStep) Name() string { return StepWriteOutputs }

func (s *WriteOutputsStep) Execute(ctx context.Context, state *PipelineState) error {
	paths, err := export.WriteDir(state.Config.Output.Dir, export.Dataset{
		Users:       state.Users(),
		Accounts:    state.Accounts(),
		Liabilities: state.Liabilities(),
		Rows:        state.Rows,
	})
	if err != nil {
		return err
	}
	state.OutputPaths = append(state.OutputPaths, paths...)

	logger.FromContext(ctx).Info().
		Str("dir", state.Config.Output.Dir).
		Int("rows", len(state.Rows)).
		Msg("outputs written")
	return nil
}

// Step 7: WriteMetricsStep writes the textfile when output.metrics_file is
// set. A relative path is placed in the output directory so it is uploaded
// with the CSVs.
type WriteMetricsStep struct {
	Metrics *metrics.Collector
}

func (s *WriteMetricsStep) Name() string { return StepWriteMetrics }

func (s *WriteMetricsStep) Execute(ctx context.Context, state *PipelineState) error {
	name := state.Config.Output.MetricsFile
	if s.Metrics == nil || name == "" {
		return nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(state.Config.Output.Dir, name)
	}

	s.Metrics.MarkFinished(time.Now())
	if err := s.Metrics.WriteTextfile(path); err != nil {
		return err
	}
	state.OutputPaths = append(state.OutputPaths, path)
	return nil
}

// Step 8: UploadStep copies the outputs to storage.bucket when one is set.
type UploadStep struct {
	Storage gcs.StorageService
}

func (s *UploadStep) Name() string { return StepUpload }

func (s *UploadStep) Execute(ctx context.Context, state *PipelineState) error {
	bucket := state.Config.Storage.Bucket
	if bucket == "" {
		return nil
	}
	if s.Storage == nil {
		return fmt.Errorf("storage.bucket %q set but no storage service configured", bucket)
	}

	uris, err := gcsuploader.UploadOutputs(ctx, s.Storage, bucket, state.Config.Storage.Prefix, state.OutputPaths)
	state.UploadedURIs = uris
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info().
		Str("bucket", bucket).
		Int("files", len(uris)).
		Msg("outputs uploaded")
	return nil
}
