package viewmodel

import (
	"math"
)

// PointerDown starts a drag when px (the pointer's pixel Y in view) lands on
// the threshold handle. It returns the view's resulting drag state.
func (c *Coordinator) PointerDown(view ViewID, px float64) (DragState, error) {
	if _, err := ParseViewID(string(view)); err != nil {
		return Idle, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return Idle, err
	}

	line := c.model.scaleFor(view).Map(c.threshold.Value())
	if tol := c.opts.HandleTolerance; tol > 0 && !(math.Abs(px-line) <= tol) {
		return c.drags[view], nil
	}
	c.setDragLocked(view, Dragging)
	return Dragging, nil
}

// PointerMove runs the full invert/quantize/clamp/recompute cycle while view
// is dragging; moves over an idle view are ignored. changed reports whether
// a new frame was published. A drag in either view updates both.
func (c *Coordinator) PointerMove(view ViewID, px float64) (frame Frame, changed bool, err error) {
	if _, err := ParseViewID(string(view)); err != nil {
		return Frame{}, false, err
	}

	_, changed, err = c.apply(func() float64 {
		if c.drags[view] != Dragging {
			return c.threshold.Value()
		}
		return c.model.scaleFor(view).Invert(px)
	})
	if err != nil {
		return Frame{}, false, err
	}
	frame, err = c.Frame()
	return frame, changed, err
}

// PointerUp ends a drag, freezing the threshold at its last value
func (c *Coordinator) PointerUp(view ViewID) error {
	return c.release(view)
}

// PointerLeave ends a drag like PointerUp
func (c *Coordinator) PointerLeave(view ViewID) error {
	return c.release(view)
}

// DragState returns the drag state of a view
func (c *Coordinator) DragState(view ViewID) DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return orIdle(c.drags[view])
}

func (c *Coordinator) release(view ViewID) error {
	if _, err := ParseViewID(string(view)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return err
	}
	c.setDragLocked(view, Idle)
	return nil
}

// setDragLocked records the state and patches the current frame; drag state
// alone never triggers a recompute
func (c *Coordinator) setDragLocked(view ViewID, state DragState) {
	c.drags[view] = state
	switch view {
	case HistogramView:
		c.frame.Histogram.Drag = state
	case CurveView:
		c.frame.Curves.Drag = state
	}
}
