package ports

import (
	"context"

	"gounlearn/domain/attack"
)

// DatasetSource yields the inputs of one visualization. Samples and Metrics
// are independent reads and may run concurrently.
type DatasetSource interface {
	// Name identifies the source in logs and dataset titles
	Name() string
	Samples(ctx context.Context) ([]attack.ScoredSample, error)
	// Metrics returns nil without error when the source carries no grid
	Metrics(ctx context.Context) ([]attack.MetricSample, error)
}
