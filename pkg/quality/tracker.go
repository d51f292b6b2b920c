// Package quality keeps rolling latency and loss statistics for one
// connection and turns them into a coarse rating.
package quality

import (
	"sync"
	"time"
)

const DefaultCapacity = 100

type Rating uint8

const (
	Rating_Unknown Rating = iota
	Rating_Excellent
	Rating_Good
	Rating_Fair
	Rating_Poor
)

func (r Rating) String() string {
	switch r {
	case Rating_Excellent:
		return "Excellent"
	case Rating_Good:
		return "Good"
	case Rating_Fair:
		return "Fair"
	case Rating_Poor:
		return "Poor"
	}
	return "Unknown"
}

// Threshold is the upper bound (exclusive) of one rating band.
type Threshold struct {
	MaxLatency time.Duration
	MaxLoss    float64
}

type Thresholds struct {
	Excellent Threshold
	Good      Threshold
	Fair      Threshold
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Excellent: Threshold{MaxLatency: 50 * time.Millisecond, MaxLoss: 0.01},
		Good:      Threshold{MaxLatency: 100 * time.Millisecond, MaxLoss: 0.03},
		Fair:      Threshold{MaxLatency: 200 * time.Millisecond, MaxLoss: 0.08},
	}
}

type TrackerParams struct {
	Capacity   int
	Thresholds *Thresholds
}

// Snapshot is a copy of the derived statistics at one point in time.
type Snapshot struct {
	CurrentLatency time.Duration
	AverageLatency time.Duration
	Jitter         time.Duration
	PacketLoss     float64
	Rating         Rating
	LatencySamples int
	LossSamples    int
}

// Tracker is goroutine-safe so diagnostics can read it while the client ticks.
type Tracker struct {
	capacity   int
	thresholds Thresholds

	mut_samples sync.RWMutex
	latencies   []time.Duration
	latencySum  time.Duration
	losses      []float64
	lossSum     float64
	current     time.Duration
	jitter      time.Duration
}

func CreateTracker(params TrackerParams) *Tracker {
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	thresholds := DefaultThresholds()
	if params.Thresholds != nil {
		thresholds = *params.Thresholds
	}

	return &Tracker{
		capacity:   capacity,
		thresholds: thresholds,
		latencies:  make([]time.Duration, 0, capacity),
		losses:     make([]float64, 0, capacity),
	}
}

func (t *Tracker) AddLatencySample(d time.Duration) {
	if d < 0 {
		d = 0
	}

	t.mut_samples.Lock()
	defer t.mut_samples.Unlock()

	if len(t.latencies) > 0 {
		t.jitter = absDuration(d - t.current)
	} else {
		t.jitter = 0
	}
	t.current = d

	if len(t.latencies) == t.capacity {
		t.latencySum -= t.latencies[0]
		t.latencies = append(t.latencies[:0], t.latencies[1:]...)
	}
	t.latencies = append(t.latencies, d)
	t.latencySum += d
}

// AddLossSample records a loss rate in [0, 1]. Values outside are clamped.
func (t *Tracker) AddLossSample(rate float64) {
	if rate < 0 {
		rate = 0
	} else if rate > 1 {
		rate = 1
	}

	t.mut_samples.Lock()
	defer t.mut_samples.Unlock()

	if len(t.losses) == t.capacity {
		t.lossSum -= t.losses[0]
		t.losses = append(t.losses[:0], t.losses[1:]...)
	}
	t.losses = append(t.losses, rate)
	t.lossSum += rate
}

func (t *Tracker) CurrentLatency() time.Duration {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()
	return t.current
}

func (t *Tracker) AverageLatency() time.Duration {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()
	return t.averageLatency()
}

func (t *Tracker) Jitter() time.Duration {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()
	return t.jitter
}

func (t *Tracker) PacketLoss() float64 {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()
	return t.packetLoss()
}

func (t *Tracker) Rating() Rating {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()
	return t.rating()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mut_samples.RLock()
	defer t.mut_samples.RUnlock()

	return Snapshot{
		CurrentLatency: t.current,
		AverageLatency: t.averageLatency(),
		Jitter:         t.jitter,
		PacketLoss:     t.packetLoss(),
		Rating:         t.rating(),
		LatencySamples: len(t.latencies),
		LossSamples:    len(t.losses),
	}
}

func (t *Tracker) Reset() {
	t.mut_samples.Lock()
	defer t.mut_samples.Unlock()

	t.latencies = t.latencies[:0]
	t.latencySum = 0
	t.losses = t.losses[:0]
	t.lossSum = 0
	t.current = 0
	t.jitter = 0
}

func (t *Tracker) averageLatency() time.Duration {
	if len(t.latencies) == 0 {
		return 0
	}
	return t.latencySum / time.Duration(len(t.latencies))
}

func (t *Tracker) packetLoss() float64 {
	if len(t.losses) == 0 {
		return 0
	}
	return t.lossSum / float64(len(t.losses))
}

func (t *Tracker) rating() Rating {
	if len(t.latencies) == 0 && len(t.losses) == 0 {
		return Rating_Unknown
	}

	avg := t.averageLatency()
	loss := t.packetLoss()
	switch {
	case avg < t.thresholds.Excellent.MaxLatency && loss < t.thresholds.Excellent.MaxLoss:
		return Rating_Excellent
	case avg < t.thresholds.Good.MaxLatency && loss < t.thresholds.Good.MaxLoss:
		return Rating_Good
	case avg < t.thresholds.Fair.MaxLatency && loss < t.thresholds.Fair.MaxLoss:
		return Rating_Fair
	}
	return Rating_Poor
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
