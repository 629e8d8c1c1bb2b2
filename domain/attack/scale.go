package attack

// Scale is a linear mapping from a domain interval onto a pixel range.
// Screen Y grows downward, so a conventional vertical axis uses a range
// of [height, 0] (larger values drawn higher up).
type Scale struct {
	Domain [2]float64 `json:"domain"`
	Range  [2]float64 `json:"range"`
}

// NewScale builds a linear scale
func NewScale(d0, d1, r0, r1 float64) Scale {
	return Scale{Domain: [2]float64{d0, d1}, Range: [2]float64{r0, r1}}
}

// Map projects a domain value to pixels
func (s Scale) Map(v float64) float64 {
	span := s.Domain[1] - s.Domain[0]
	if span == 0 {
		return s.Range[0]
	}
	t := (v - s.Domain[0]) / span
	return s.Range[0] + t*(s.Range[1]-s.Range[0])
}

// Invert projects a pixel position back into the domain. No clamping:
// the threshold state clamps.
func (s Scale) Invert(px float64) float64 {
	span := s.Range[1] - s.Range[0]
	if span == 0 {
		return s.Domain[0]
	}
	t := (px - s.Range[0]) / span
	return s.Domain[0] + t*(s.Domain[1]-s.Domain[0])
}

// Inverted reports whether larger domain values map to smaller pixel values
func (s Scale) Inverted() bool {
	return (s.Domain[1]-s.Domain[0])*(s.Range[1]-s.Range[0]) < 0
}

// PixelMin and PixelMax return the range bounds in ascending pixel order
func (s Scale) PixelMin() float64 {
	return min(s.Range[0], s.Range[1])
}

func (s Scale) PixelMax() float64 {
	return max(s.Range[0], s.Range[1])
}
