// Package generator fabricates users, accounts, liabilities and transaction
// histories whose derived metrics land each user in a pre-assigned persona.
//
// All generation-wide mutable state lives on GenerationContext and is threaded
// explicitly through account synthesis in user-processing order. Transaction
// synthesis draws from a per-user generator so it can run on several workers
// without changing the output.
package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-datagen/internal/domain"
	"github.com/dvloznov/finance-datagen/internal/persona"
)

const (
	// DefaultWindowDays is the length of the generated history.
	DefaultWindowDays = 180
	// DefaultLowRiskQuota is the number of checking+savings-only users.
	DefaultLowRiskQuota = 2

	lowIncomeShare    = 0.15
	middleIncomeShare = 0.70
)

// Options configures a GenerationContext.
type Options struct {
	Population   int
	Seed         uint64
	WindowDays   int
	AsOf         time.Time
	Policies     persona.Table
	LowRiskQuota int
	Recorder     Recorder
}

// Window is the closed time range covered by generated transactions.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow returns the window of days ending at end.
func NewWindow(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end, Days: days}
}

// Contains reports whether ts lies inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}

// At returns the timestamp day days after Start at the given clock time.
func (w Window) At(day, hour, minute, second int) time.Time {
	d := w.Start.AddDate(0, 0, day)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, second, 0, d.Location())
}

// incomeQuota counts brackets handed out so far across the whole population.
type incomeQuota struct {
	low    int
	middle int
	high   int
}

// GenerationContext carries the seeded generator, the income-bracket quota
// counters and the low-risk carve-out counter for one run. It is not safe for
// concurrent use; households must be created in processing order.
type GenerationContext struct {
	rng        *rand.Rand
	seed       uint64
	population int
	policies   persona.Table
	window     Window
	ids        idSpace
	recorder   Recorder

	income       incomeQuota
	lowRisk      int
	lowRiskQuota int
}

// New validates the policies and returns a fresh context.
func New(opts Options) (*GenerationContext, error) {
	if opts.Population <= 0 {
		return nil, fmt.Errorf("generator: population must be positive, got %d", opts.Population)
	}
	if opts.Policies == nil {
		opts.Policies = persona.DefaultTable()
	}
	if err := opts.Policies.Validate(); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.AsOf.IsZero() {
		opts.AsOf = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if opts.LowRiskQuota < 0 {
		opts.LowRiskQuota = 0
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}

	return &GenerationContext{
		rng:          rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5DEECE66D)),
		seed:         opts.Seed,
		population:   opts.Population,
		policies:     opts.Policies,
		window:       NewWindow(opts.AsOf, opts.WindowDays),
		ids:          newIDSpace(opts.Seed),
		recorder:     opts.Recorder,
		lowRiskQuota: opts.LowRiskQuota,
	}, nil
}

// Rand exposes the run-level generator used for persona assignment and
// account synthesis.
func (g *GenerationContext) Rand() *rand.Rand { return g.rng }

// Window returns the transaction window of the run.
func (g *GenerationContext) Window() Window { return g.window }

// Policies returns the validated persona table.
func (g *GenerationContext) Policies() persona.Table { return g.policies }

// Population returns the target population size.
func (g *GenerationContext) Population() int { return g.population }

// LowRiskAssigned returns how many carve-out users have been produced.
func (g *GenerationContext) LowRiskAssigned() int { return g.lowRisk }

// LowRiskQuota returns the configured carve-out size.
func (g *GenerationContext) LowRiskQuota() int { return g.lowRiskQuota }

// UserRand returns the generator dedicated to the user at index. It depends
// only on the seed and the index, so users can be synthesized in any order.
func (g *GenerationContext) UserRand(index int) *rand.Rand {
	return rand.New(rand.NewPCG(g.seed, uint64(index)+1))
}

// Synthesizer returns a transaction synthesizer bound to the run window.
func (g *GenerationContext) Synthesizer() *Synthesizer {
	return &Synthesizer{window: g.window, ids: g.ids, recorder: g.recorder}
}

// idSpace derives stable identifiers from the seed so that repeated runs
// produce byte-identical output.
type idSpace struct {
	ns uuid.UUID
}

func newIDSpace(seed uint64) idSpace {
	return idSpace{ns: uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("finance-datagen/%d", seed)))}
}

func (s idSpace) make(kind string, parts ...any) string {
	fields := make([]string, 0, len(parts)+1)
	fields = append(fields, kind)
	for _, p := range parts {
		fields = append(fields, fmt.Sprint(p))
	}
	return uuid.NewSHA1(s.ns, []byte(strings.Join(fields, ":"))).String()
}

// Recorder receives generation events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	UserGenerated(p persona.Persona, bracket domain.IncomeBracket)
	AccountGenerated(subtype domain.AccountSubtype)
	TransactionsGenerated(stream domain.Stream, n int)
	ExpenseClamped()
	ExpenseSkipped()
	ChargeDeclined()
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) UserGenerated(persona.Persona, domain.IncomeBracket) {}
func (NopRecorder) AccountGenerated(domain.AccountSubtype)              {}
func (NopRecorder) TransactionsGenerated(domain.Stream, int)            {}
func (NopRecorder) ExpenseClamped()                                     {}
func (NopRecorder) ExpenseSkipped()                                     {}
func (NopRecorder) ChargeDeclined()                                     {}
