package resultfile

import "time"

// ResultConfig locates a JSON result document and the paths inside it
type ResultConfig struct {
	// Location is a file path or an http(s) URL
	Location string `json:"location"`

	NamePath    string `json:"name_path"`    // experiment title
	ScoresPath  string `json:"scores_path"`  // object keyed by group, or array of {group, score}
	MetricsPath string `json:"metrics_path"` // array of rows, or object of parallel columns

	AuthToken string        `json:"-"` // bearer token for URL locations
	Timeout   time.Duration `json:"timeout"`
}

// DefaultResultConfig returns the layout written by the evaluation scripts
func DefaultResultConfig(location string) ResultConfig {
	return ResultConfig{
		Location:    location,
		NamePath:    "name",
		ScoresPath:  "scores",
		MetricsPath: "metrics",
		Timeout:     30 * time.Second,
	}
}
