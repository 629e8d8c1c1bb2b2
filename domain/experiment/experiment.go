// Package experiment describes a stored unlearning experiment: the scores
// of the two subpopulations and the attack-metric grid swept over them.
package experiment

import (
	"time"

	"gounlearn/domain/core"
)

// Source records where an experiment was imported from
type Source string

const (
	SourceWorkbook   Source = "workbook"
	SourceResultFile Source = "result_file"
	SourceGenerated  Source = "generated"
	SourceManual     Source = "manual"
)

// Experiment is the metadata row of a stored experiment
type Experiment struct {
	ID          core.ExperimentID `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description,omitempty" db:"description"`
	Source      Source            `json:"source" db:"source"`
	Fingerprint string            `json:"fingerprint" db:"fingerprint"` // hash of scores and metrics
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`

	// Populated by list queries
	SampleCount int `json:"sample_count" db:"sample_count"`
	MetricCount int `json:"metric_count" db:"metric_count"`
}

// New returns an experiment with a fresh ID and creation time
func New(name string, source Source) *Experiment {
	return &Experiment{
		ID:        core.NewExperimentID(),
		Name:      name,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
