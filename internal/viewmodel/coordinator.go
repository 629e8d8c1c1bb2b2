package viewmodel

import (
	"fmt"
	"log"
	"sync"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
)

// Coordinator owns the single threshold shared by the histogram and curve
// views. Every accepted threshold change rebuilds one Frame for both views
// inside a single critical section, so no observer can see the views at
// different thresholds.
type Coordinator struct {
	mu        sync.Mutex
	opts      Options
	lifecycle Lifecycle
	model     *model
	threshold *attack.ThresholdState
	drags     map[ViewID]DragState
	seq       uint64
	frame     Frame

	subscribers map[int]func(Frame)
	nextSub     int
	pending     []delivery // published frames not yet handed to subscribers
	draining    bool
}

// delivery is one frame and the subscribers registered when it was built
type delivery struct {
	subs  []func(Frame)
	frame Frame
}

// NewCoordinator returns an Uninitialized coordinator
func NewCoordinator(opts Options) *Coordinator {
	return &Coordinator{
		opts:        opts,
		lifecycle:   Uninitialized,
		drags:       map[ViewID]DragState{HistogramView: Idle, CurveView: Idle},
		subscribers: make(map[int]func(Frame)),
	}
}

// Lifecycle reports the current lifecycle state
func (c *Coordinator) Lifecycle() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

// Options returns the configuration the coordinator was built with
func (c *Coordinator) Options() Options {
	return c.opts
}

// Load binds a dataset and moves to Ready. Bins, layout and curve paths are
// computed here once; the threshold restarts at its configured initial
// value. Loading again replaces the previous dataset.
func (c *Coordinator) Load(ds Dataset) (Frame, error) {
	c.mu.Lock()
	if c.lifecycle == Closed {
		c.mu.Unlock()
		return Frame{}, core.ErrClosed
	}

	c.model = newModel(ds, c.opts)
	c.threshold = attack.NewThresholdState(c.opts.Threshold)
	c.drags = map[ViewID]DragState{HistogramView: Idle, CurveView: Idle}
	c.lifecycle = Ready
	frame := c.rebuildLocked()
	drain := c.publishLocked(frame)
	bins, gridLen := c.model.bins, c.model.curves.Len()
	c.mu.Unlock()

	log.Printf("[Coordinator] Loaded dataset %q (%s): A=%d B=%d skipped=%d grid=%d",
		ds.Name, frame.Fingerprint, bins.Count(attack.GroupA), bins.Count(attack.GroupB), bins.Skipped, gridLen)
	if drain {
		c.deliver()
	}
	return frame, nil
}

// Close tears the visualization down. Every later call fails with ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lifecycle = Closed
	c.model = nil
	c.threshold = nil
	c.subscribers = make(map[int]func(Frame))
	c.pending = nil
}

// Subscribe registers fn to receive every new frame. Callbacks run after the
// coordinator lock is released, one frame at a time in Seq order; the order
// among subscribers of one frame is unspecified.
func (c *Coordinator) Subscribe(fn func(Frame)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Bins returns the memoized bins of a group
func (c *Coordinator) Bins(g attack.Group) ([]attack.Bin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return nil, err
	}
	return c.model.bins.Bins(g), nil
}

// BinSet returns the memoized bin set
func (c *Coordinator) BinSet() (*attack.BinSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return nil, err
	}
	return c.model.bins, nil
}

// Summaries returns per-group score statistics of the loaded dataset
func (c *Coordinator) Summaries() ([]attack.GroupSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return nil, err
	}
	return attack.Summarize(c.model.dataset.Samples), nil
}

// Threshold returns the current threshold
func (c *Coordinator) Threshold() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return 0, err
	}
	return c.threshold.Value(), nil
}

// SetThreshold quantizes and clamps candidate, and when the accepted value
// differs from the current one rebuilds and publishes a frame. It returns
// the accepted value.
func (c *Coordinator) SetThreshold(candidate float64) (float64, error) {
	accepted, _, err := c.apply(func() float64 { return candidate })
	return accepted, err
}

// Classify partitions a score against the current threshold in the
// histogram view's space. It also returns the threshold it classified
// against.
func (c *Coordinator) Classify(score float64) (attack.Classification, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return attack.Classification{}, 0, err
	}
	th := c.threshold.Value()
	return c.model.histCls.Classify(score, th), th, nil
}

// ValueAt returns the metric sample nearest to threshold. ok is false when
// the dataset has no metric grid.
func (c *Coordinator) ValueAt(threshold float64) (sample attack.MetricSample, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return attack.MetricSample{}, false, err
	}
	sample, ok = c.model.curves.ValueAt(threshold)
	return sample, ok, nil
}

// Intersections returns a curve's crossings at threshold in the curve
// view's domain units (X = metric value, Y = threshold)
func (c *Coordinator) Intersections(curve attack.Curve, threshold float64) ([]attack.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return nil, err
	}
	return c.model.curves.Intersections(curve, threshold), nil
}

// Frame returns the latest frame
func (c *Coordinator) Frame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return Frame{}, err
	}
	return c.frame, nil
}

// Dataset returns the loaded dataset
func (c *Coordinator) Dataset() (Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.readyLocked(); err != nil {
		return Dataset{}, err
	}
	return c.model.dataset, nil
}

// apply runs the quantize/clamp/recompute cycle for a candidate computed
// under the lock
func (c *Coordinator) apply(candidate func() float64) (float64, bool, error) {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return 0, false, err
	}
	accepted, changed := c.threshold.Set(candidate())
	if !changed {
		c.mu.Unlock()
		return accepted, false, nil
	}
	frame := c.rebuildLocked()
	drain := c.publishLocked(frame)
	c.mu.Unlock()

	if drain {
		c.deliver()
	}
	return accepted, true, nil
}

func (c *Coordinator) rebuildLocked() Frame {
	c.seq++
	c.frame = c.model.frame(c.seq, c.threshold.Value(), c.opts, c.drags)
	return c.frame
}

func (c *Coordinator) readyLocked() error {
	switch c.lifecycle {
	case Ready:
		return nil
	case Closed:
		return core.ErrClosed
	default:
		return core.ErrNotReady
	}
}

func (c *Coordinator) subscribersLocked() []func(Frame) {
	subs := make([]func(Frame), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// publishLocked queues frame for delivery. It reports whether the caller
// must drain the queue; false means another goroutine is already draining
// and will deliver this frame after the ones queued before it.
func (c *Coordinator) publishLocked(frame Frame) bool {
	c.pending = append(c.pending, delivery{subs: c.subscribersLocked(), frame: frame})
	if c.draining {
		return false
	}
	c.draining = true
	return true
}

// deliver hands queued frames to subscribers without holding the lock, so
// callbacks may call back into the coordinator.
func (c *Coordinator) deliver() {
	c.mu.Lock()
	for len(c.pending) > 0 {
		d := c.pending[0]
		c.pending[0] = delivery{}
		c.pending = c.pending[1:]
		c.mu.Unlock()
		notify(d.subs, d.frame)
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func notify(subs []func(Frame), frame Frame) {
	for _, fn := range subs {
		fn(frame)
	}
}

func (c *Coordinator) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.threshold == nil {
		return fmt.Sprintf("Coordinator(%s)", c.lifecycle)
	}
	return fmt.Sprintf("Coordinator(%s, threshold=%g, seq=%d)", c.lifecycle, c.threshold.Value(), c.seq)
}
