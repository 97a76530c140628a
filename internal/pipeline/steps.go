package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-datagen/internal/config"
	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/export"
	"github.com/dvloznov/finance-datagen/internal/generator"
	"github.com/dvloznov/finance-datagen/internal/logger"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

// PipelineStep represents a single step in a generation run.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Config *config.Config

	Policies  persona.Table
	Weights   persona.Weights
	Generator *generator.GenerationContext

	Labels       []persona.Persona
	Households   []generator.Household
	Transactions []domain.Transaction
	Rows         []export.Row

	OutputPaths  []string
	UploadedURIs []string
}

// Users returns the users of every household in processing order.
func (s *PipelineState) Users() []domain.User {
	users := make([]domain.User, len(s.Households))
	for i, h := range s.Households {
		users[i] = h.User
	}
	return users
}

// Accounts returns all accounts in processing order.
func (s *PipelineState) Accounts() []domain.Account {
	var out []domain.Account
	for _, h := range s.Households {
		out = append(out, h.Accounts...)
	}
	return out
}

// Liabilities returns all liabilities in processing order.
func (s *PipelineState) Liabilities() []domain.Liability {
	var out []domain.Liability
	for _, h := range s.Households {
		out = append(out, h.Liabilities...)
	}
	return out
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps    []PipelineStep
	observer StepObserver
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// WithObserver reports every successful step duration to o.
func (p *Pipeline) WithObserver(o StepObserver) *Pipeline {
	p.observer = o
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially and stops at the first
// failure or cancellation.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}

		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
		elapsed := time.Since(start)

		if p.observer != nil {
			p.observer.ObserveStep(step.Name(), elapsed)
		}
		log.Debug().
			Int("step", i+1).
			Str("name", step.Name()).
			Dur("elapsed", elapsed).
			Msg("pipeline step finished")
	}
	return nil
}

// NewGeneratePipeline builds the full synthetic generation run.
func NewGeneratePipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&InitGenerationStep{Recorder: deps.recorder(), Now: deps.Now},
		&AssignPersonasStep{},
		&SynthesizeAccountsStep{},
		&SynthesizeTransactionsStep{},
		&ReplayStep{},
		&WriteOutputsStep{},
		&WriteMetricsStep{Metrics: deps.Metrics},
		&UploadStep{Storage: deps.Storage},
	).WithObserver(deps.observer())
}

// NewReplayPipeline builds the alternate source run: users and accounts are
// synthesized as usual, but transactions come from the configured source
// table instead of the synthesizer.
func NewReplayPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&InitGenerationStep{Recorder: deps.recorder(), Now: deps.Now},
		&AssignPersonasStep{},
		&SynthesizeAccountsStep{},
		&LoadSourceStep{Fetcher: deps.Storage},
		&ReplayStep{},
		&WriteOutputsStep{},
		&WriteMetricsStep{Metrics: deps.Metrics},
		&UploadStep{Storage: deps.Storage},
	).WithObserver(deps.observer())
}
