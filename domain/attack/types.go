package attack

import (
	"fmt"
	"strings"

	"gounlearn/domain/core"
)

// ============================================================================
// SAMPLES AND BINS
// ============================================================================

// Group identifies which subpopulation a sample belongs to
type Group string

const (
	GroupA Group = "A" // e.g. retrained model outputs
	GroupB Group = "B" // e.g. comparison (unlearned) model outputs
)

// Groups lists every group in draw order (A on the left wing, B on the right)
var Groups = []Group{GroupA, GroupB}

// Opposite returns the other subpopulation
func (g Group) Opposite() Group {
	if g == GroupA {
		return GroupB
	}
	return GroupA
}

// ParseGroup accepts "A"/"B" and the domain aliases used in result files.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "retrain", "retrained":
		return GroupA, nil
	case "b", "unlearn", "unlearned", "comparison", "ul":
		return GroupB, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownGroup, s)
}

// ScoredSample is one per-sample score. Immutable once loaded.
type ScoredSample struct {
	Score float64 `json:"score"` // unbounded; observed range roughly [-2, 10]
	Group Group   `json:"group"`
}

// Bin is a fixed-width bucket of samples of a single group.
// INVARIANTS:
// - Index == floor(member.Score / width) for every member
// - LowerBound == Index * width
// - Members keep insertion order (stacking order in the histogram)
type Bin struct {
	Index      int            `json:"bin_index"`
	LowerBound float64        `json:"lower_bound"`
	Members    []ScoredSample `json:"members"`
}

// Count returns the full number of members, truncated or not
func (b Bin) Count() int {
	return len(b.Members)
}

// Center returns the midpoint of the bin for a given width
func (b Bin) Center(width float64) float64 {
	return b.LowerBound + width/2
}

// ============================================================================
// METRIC CURVES
// ============================================================================

// MetricSample is one precomputed grid point of the three derived metrics
type MetricSample struct {
	Threshold         float64 `json:"threshold"`
	AttackScore       float64 `json:"attack_score"`
	FalsePositiveRate float64 `json:"fpr"`
	FalseNegativeRate float64 `json:"fnr"`
}

// Curve names one of the three derived metric curves
type Curve string

const (
	AttackScore       Curve = "attack"
	FalsePositiveRate Curve = "fpr"
	FalseNegativeRate Curve = "fnr"
)

// Curves lists every curve in legend order
var Curves = []Curve{AttackScore, FalsePositiveRate, FalseNegativeRate}

// ParseCurve resolves a curve name
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attack", "attack_score", "attackscore":
		return AttackScore, nil
	case "fpr", "false_positive_rate":
		return FalsePositiveRate, nil
	case "fnr", "false_negative_rate":
		return FalseNegativeRate, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownCurve, s)
}

// Label is the human readout label
func (c Curve) Label() string {
	switch c {
	case AttackScore:
		return "Attack Score"
	case FalsePositiveRate:
		return "False Positive Rate"
	case FalseNegativeRate:
		return "False Negative Rate"
	}
	return string(c)
}

// Value extracts the curve's metric from a sample
func (c Curve) Value(m MetricSample) float64 {
	switch c {
	case FalsePositiveRate:
		return m.FalsePositiveRate
	case FalseNegativeRate:
		return m.FalseNegativeRate
	default:
		return m.AttackScore
	}
}

// Point is a location in a view's local space: domain units or pixels,
// depending on which operation produced it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ============================================================================
// PARTITIONING
// ============================================================================

// Side is the position of an element relative to the threshold line
type Side string

const (
	Above Side = "above"
	Below Side = "below"
)

// Opposite returns the other side of the line
func (s Side) Opposite() Side {
	if s == Above {
		return Below
	}
	return Above
}

// Emphasis is the visual weight of an element
type Emphasis string

const (
	Full Emphasis = "full"
	Dim  Emphasis = "dim"
)

// Classification is the transient visual state of one element. Never stored
// on the sample itself.
type Classification struct {
	Side     Side     `json:"side"`
	Emphasis Emphasis `json:"emphasis"`
	Opacity  float64  `json:"opacity"`
}
