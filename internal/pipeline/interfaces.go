package pipeline

import (
	"time"

	"github.com/dvloznov/finance-datagen/internal/gcs"
	"github.com/dvloznov/finance-datagen/internal/generator"
	"github.com/dvloznov/finance-datagen/internal/metrics"
)

// StepObserver receives the wall time of each finished step.
type StepObserver interface {
	ObserveStep(step string, d time.Duration)
}

// Deps are the collaborators the standard pipelines are built from. Storage
// and Metrics are optional.
type Deps struct {
	Storage gcs.StorageService
	Metrics *metrics.Collector
	// Now is used when the configuration leaves as_of empty.
	Now func() time.Time
}

func (d Deps) recorder() generator.Recorder {
	if d.Metrics == nil {
		return generator.NopRecorder{}
	}
	return d.Metrics
}

func (d Deps) observer() StepObserver {
	if d.Metrics == nil {
		return nil
	}
	return d.Metrics
}
