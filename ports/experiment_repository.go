package ports

import (
	"context"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/domain/experiment"
)

// ExperimentRepository stores experiments with their scores and metric grid
type ExperimentRepository interface {
	// Create writes the experiment row and its samples in one transaction
	Create(ctx context.Context, exp *experiment.Experiment, samples []attack.ScoredSample, metrics []attack.MetricSample) error
	GetByID(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error)
	Latest(ctx context.Context) (*experiment.Experiment, error)
	List(ctx context.Context, limit, offset int) ([]*experiment.Experiment, error)
	Delete(ctx context.Context, id core.ExperimentID) error

	Samples(ctx context.Context, id core.ExperimentID) ([]attack.ScoredSample, error)
	Metrics(ctx context.Context, id core.ExperimentID) ([]attack.MetricSample, error)
}
