package attack

// DefaultDimOpacity is the opacity of de-emphasized elements
const DefaultDimOpacity = 0.3

// Classifier partitions scored elements by their position relative to the
// threshold line in a view. Sides are decided in view space: an element is
// Above when its pixel Y is smaller than the threshold's pixel Y. Both views
// apply the same rule, so they always agree on a score's side.
type Classifier struct {
	Scale          Scale   // the view's score-axis scale
	EmphasizedSide Side    // side the decision in force treats as positive
	DimOpacity     float64 // opacity of the other side
}

// NewClassifier builds a classifier for a view scale, emphasizing Above
func NewClassifier(scale Scale) Classifier {
	return Classifier{Scale: scale, EmphasizedSide: Above, DimOpacity: DefaultDimOpacity}
}

// Side returns the side of score relative to threshold. A score exactly on
// the line is Below.
func (c Classifier) Side(score, threshold float64) Side {
	if degenerate(c.Scale) {
		// conventional chart orientation: larger scores drawn higher
		if score > threshold {
			return Above
		}
		return Below
	}
	if c.Scale.Map(score) < c.Scale.Map(threshold) {
		return Above
	}
	return Below
}

// Classify returns side and emphasis for a bare score
func (c Classifier) Classify(score, threshold float64) Classification {
	side := c.Side(score, threshold)
	return c.decorate(side, c.emphasized())
}

// ClassifySample is the group-aware variant: group A is emphasized on the
// emphasized side and group B on the opposite one, so samples the attack
// assigns to their own group are drawn at full weight.
func (c Classifier) ClassifySample(s ScoredSample, threshold float64) Classification {
	side := c.Side(s.Score, threshold)
	target := c.emphasized()
	if s.Group == GroupB {
		target = target.Opposite()
	}
	return c.decorate(side, target)
}

func (c Classifier) decorate(side, emphasized Side) Classification {
	if side == emphasized {
		return Classification{Side: side, Emphasis: Full, Opacity: 1}
	}
	return Classification{Side: side, Emphasis: Dim, Opacity: c.dimOpacity()}
}

func (c Classifier) emphasized() Side {
	if c.EmphasizedSide == Below {
		return Below
	}
	return Above
}

func (c Classifier) dimOpacity() float64 {
	if c.DimOpacity <= 0 || c.DimOpacity > 1 {
		return DefaultDimOpacity
	}
	return c.DimOpacity
}

func degenerate(s Scale) bool {
	return s.Domain[0] == s.Domain[1] || s.Range[0] == s.Range[1]
}
