package viewmodel

import (
	"fmt"
	"math"

	"gounlearn/domain/attack"
)

// Dot is the static position of one sample in the butterfly histogram
type Dot struct {
	Group attack.Group `json:"group"`
	Score float64      `json:"score"`
	Bin   int          `json:"bin"`
	Slot  int          `json:"slot"` // stacking position away from the axis
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
}

// OverflowLabel marks a bin whose members do not all fit laterally
type OverflowLabel struct {
	Group  attack.Group `json:"group"`
	Bin    int          `json:"bin"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Hidden int          `json:"hidden"`
	Text   string       `json:"text"`
}

// ButterflyLayout places group A on the left wing and group B on the right
type ButterflyLayout struct {
	Dots     []Dot           `json:"dots"`
	Overflow []OverflowLabel `json:"overflow"`
	Capacity int             `json:"capacity"` // dots per bin per side
	Lateral  attack.Scale    `json:"lateral"`  // slot offset -> pixel X
}

// Truncate splits a bin into the members drawn directly and the count of
// hidden ones. hidden is always total - len(shown).
func Truncate(b attack.Bin, capacity int) (shown []attack.ScoredSample, hidden int) {
	capacity = max(capacity, 0)
	if b.Count() <= capacity {
		return b.Members, 0
	}
	return b.Members[:capacity], b.Count() - capacity
}

// LayoutButterfly computes dot positions. It depends only on the bins and
// the viewport, never on the threshold, so it is built once per load.
func LayoutButterfly(bins *attack.BinSet, y attack.Scale, vp Viewport, dotSize float64) ButterflyLayout {
	capacity := 0
	if dotSize > 0 && vp.Width > 0 {
		capacity = int(math.Floor(vp.Width / 2 / dotSize))
	}
	extent := float64(max(capacity, 1))
	layout := ButterflyLayout{
		Dots:     []Dot{},
		Overflow: []OverflowLabel{},
		Capacity: capacity,
		Lateral:  attack.NewScale(-extent, extent, 0, vp.Width),
	}
	if bins == nil {
		return layout
	}

	for _, g := range attack.Groups {
		sign := 1.0
		if g == attack.GroupA {
			sign = -1
		}
		for _, b := range bins.Bins(g) {
			py := y.Map(b.Center(bins.Width))
			shown, hidden := Truncate(b, capacity)
			for slot, m := range shown {
				layout.Dots = append(layout.Dots, Dot{
					Group: g,
					Score: m.Score,
					Bin:   b.Index,
					Slot:  slot,
					X:     layout.Lateral.Map(sign * (float64(slot) + 0.5)),
					Y:     py,
				})
			}
			if hidden > 0 {
				layout.Overflow = append(layout.Overflow, OverflowLabel{
					Group:  g,
					Bin:    b.Index,
					X:      layout.Lateral.Map(sign * (float64(len(shown)) + 0.5)),
					Y:      py,
					Hidden: hidden,
					Text:   fmt.Sprintf("+%d", hidden),
				})
			}
		}
	}
	return layout
}
