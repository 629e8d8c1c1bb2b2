package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"gounlearn/adapters/excel"
	"gounlearn/adapters/resultfile"
	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/domain/experiment"
	"gounlearn/internal/config"
	"gounlearn/internal/errors"
	"gounlearn/internal/testkit"
	"gounlearn/internal/viewmodel"
	"gounlearn/ports"

	"golang.org/x/sync/errgroup"
)

// DatasetService turns dataset sources into loadable visualization datasets
type DatasetService struct {
	repo ports.ExperimentRepository // nil when no store is configured
}

// NewDatasetService creates a dataset service. repo may be nil.
func NewDatasetService(repo ports.ExperimentRepository) *DatasetService {
	return &DatasetService{repo: repo}
}

// identified is implemented by sources with a stable experiment ID
type identified interface {
	ExperimentID() core.ExperimentID
}

// Load reads a source's samples and metric grid concurrently
func (s *DatasetService) Load(ctx context.Context, src ports.DatasetSource) (viewmodel.Dataset, error) {
	start := time.Now()
	var (
		samples []attack.ScoredSample
		metrics []attack.MetricSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		samples, err = src.Samples(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = src.Metrics(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return viewmodel.Dataset{}, errors.Wrapf(err, "failed to load dataset %q", src.Name())
	}

	id := core.NewExperimentID()
	if ided, ok := src.(identified); ok {
		id = ided.ExperimentID()
	}
	ds := viewmodel.Dataset{ID: id, Name: src.Name(), Samples: samples, Metrics: metrics}
	log.Printf("[DatasetService] Loaded %q: %d samples, %d metric rows in %s",
		ds.Name, len(samples), len(metrics), time.Since(start).Round(time.Millisecond))
	return ds, nil
}

// Resolve picks the configured source: a stored experiment by ID, then a
// result file, then a workbook, then the newest stored experiment, and
// finally a synthetic run.
func (s *DatasetService) Resolve(ctx context.Context, data config.DataConfig) (ports.DatasetSource, error) {
	switch {
	case data.ExperimentID != "":
		id, err := core.ParseExperimentID(data.ExperimentID)
		if err != nil {
			return nil, errors.InvalidInput(err.Error())
		}
		return s.Experiment(ctx, id)
	case data.ResultsFile != "":
		return resultfile.NewResultReader(resultfile.DefaultResultConfig(data.ResultsFile)), nil
	case data.ExcelFile != "":
		return excel.NewDataReader(excel.DefaultExcelConfig(data.ExcelFile)), nil
	case s.repo != nil:
		exp, err := s.repo.Latest(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "no dataset configured and no stored experiment")
		}
		return &ExperimentSource{repo: s.repo, exp: exp}, nil
	}
	log.Printf("[DatasetService] No dataset configured, using synthetic scores (seed %d)", data.SyntheticSeed)
	cfg := testkit.DefaultScoreConfig()
	cfg.Seed = data.SyntheticSeed
	return testkit.NewScoreGenerator(cfg), nil
}

// SourceFor picks a reader by location. URLs and .json files are result
// files; anything else is read as a workbook or CSV.
func SourceFor(location string) (ports.DatasetSource, experiment.Source) {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || filepath.Ext(lower) == ".json" {
		return resultfile.NewResultReader(resultfile.DefaultResultConfig(location)), experiment.SourceResultFile
	}
	return excel.NewDataReader(excel.DefaultExcelConfig(location)), experiment.SourceWorkbook
}

// Experiment returns a source backed by a stored experiment
func (s *DatasetService) Experiment(ctx context.Context, id core.ExperimentID) (*ExperimentSource, error) {
	if s.repo == nil {
		return nil, errors.ConfigInvalid("experiment store is not configured")
	}
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open experiment %s", id)
	}
	return &ExperimentSource{repo: s.repo, exp: exp}, nil
}

// Experiments lists stored experiments, newest first
func (s *DatasetService) Experiments(ctx context.Context, limit, offset int) ([]*experiment.Experiment, error) {
	if s.repo == nil {
		return nil, errors.ConfigInvalid("experiment store is not configured")
	}
	return s.repo.List(ctx, limit, offset)
}

// ExperimentSource reads a stored experiment
type ExperimentSource struct {
	repo ports.ExperimentRepository
	exp  *experiment.Experiment
}

var _ ports.DatasetSource = (*ExperimentSource)(nil)

func (e *ExperimentSource) Name() string                    { return e.exp.Name }
func (e *ExperimentSource) ExperimentID() core.ExperimentID { return e.exp.ID }

func (e *ExperimentSource) Samples(ctx context.Context) ([]attack.ScoredSample, error) {
	return e.repo.Samples(ctx, e.exp.ID)
}

func (e *ExperimentSource) Metrics(ctx context.Context) ([]attack.MetricSample, error) {
	metrics, err := e.repo.Metrics(ctx, e.exp.ID)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", e.exp.ID, err)
	}
	return metrics, nil
}
