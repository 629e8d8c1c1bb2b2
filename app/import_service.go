package app

import (
	"context"
	"log"
	"sync"

	"gounlearn/domain/experiment"
	"gounlearn/internal/errors"
	"gounlearn/ports"

	"golang.org/x/sync/semaphore"
)

// ImportResult reports one source of a bulk import
type ImportResult struct {
	Source     string                 `json:"source"`
	Experiment *experiment.Experiment `json:"experiment,omitempty"`
	Err        error                  `json:"-"`
}

// Import stores a source as a new experiment
func (s *DatasetService) Import(ctx context.Context, src ports.DatasetSource, kind experiment.Source) (*experiment.Experiment, error) {
	if s.repo == nil {
		return nil, errors.ConfigInvalid("experiment store is not configured")
	}
	ds, err := s.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	exp := experiment.New(ds.Name, kind)
	exp.Fingerprint = ds.Fingerprint().String()
	exp.SampleCount, exp.MetricCount = len(ds.Samples), len(ds.Metrics)
	if err := s.repo.Create(ctx, exp, ds.Samples, ds.Metrics); err != nil {
		return nil, errors.DatabaseError("failed to store experiment", err)
	}
	log.Printf("[DatasetService] Imported %q as experiment %s (%s)", exp.Name, exp.ID, ds.Fingerprint().Short())
	return exp, nil
}

// ImportAll imports sources with at most parallel imports in flight.
// Results keep the order of sources; one failure does not stop the rest.
func (s *DatasetService) ImportAll(ctx context.Context, sources []ports.DatasetSource, kind experiment.Source, parallel int64) []ImportResult {
	if parallel < 1 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(parallel)
	results := make([]ImportResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		results[i].Source = src.Name()
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Err = err
			continue
		}
		wg.Add(1)
		go func(i int, src ports.DatasetSource) {
			defer wg.Done()
			defer sem.Release(1)
			results[i].Experiment, results[i].Err = s.Import(ctx, src, kind)
		}(i, src)
	}
	wg.Wait()
	return results
}
