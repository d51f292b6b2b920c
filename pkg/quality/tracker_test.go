package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_JitterAndAverage(t *testing.T) {
	tracker := CreateTracker(TrackerParams{})

	tracker.AddLatencySample(50 * time.Millisecond)
	assert.Equal(t, time.Duration(0), tracker.Jitter())

	tracker.AddLatencySample(80 * time.Millisecond)
	assert.Equal(t, 80*time.Millisecond, tracker.CurrentLatency())
	assert.Equal(t, 30*time.Millisecond, tracker.Jitter())
	assert.Equal(t, 65*time.Millisecond, tracker.AverageLatency())

	tracker.AddLatencySample(60 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, tracker.Jitter())
}

func TestTracker_WindowIsBounded(t *testing.T) {
	tracker := CreateTracker(TrackerParams{Capacity: 3})

	for _, ms := range []int{10, 20, 30, 40, 50} {
		tracker.AddLatencySample(time.Duration(ms) * time.Millisecond)
	}

	snap := tracker.Snapshot()
	assert.Equal(t, 3, snap.LatencySamples)
	assert.Equal(t, 40*time.Millisecond, snap.AverageLatency)
}

func TestTracker_PacketLossAveraged(t *testing.T) {
	tracker := CreateTracker(TrackerParams{Capacity: 4})
	for _, rate := range []float64{0, 1, 0, 0} {
		tracker.AddLossSample(rate)
	}
	assert.InDelta(t, 0.25, tracker.PacketLoss(), 1e-9)

	tracker.AddLossSample(0)
	assert.InDelta(t, 0.25, tracker.PacketLoss(), 1e-9)
	tracker.AddLossSample(0)
	assert.InDelta(t, 0.0, tracker.PacketLoss(), 1e-9)

	tracker.AddLossSample(7)
	assert.InDelta(t, 0.25, tracker.PacketLoss(), 1e-9)
}

func TestTracker_Rating(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
		loss    float64
		want    Rating
	}{
		{name: "excellent", latency: 20 * time.Millisecond, loss: 0, want: Rating_Excellent},
		{name: "good by latency", latency: 70 * time.Millisecond, loss: 0, want: Rating_Good},
		{name: "good by loss", latency: 20 * time.Millisecond, loss: 0.02, want: Rating_Good},
		{name: "fair", latency: 150 * time.Millisecond, loss: 0.05, want: Rating_Fair},
		{name: "poor by latency", latency: 250 * time.Millisecond, loss: 0, want: Rating_Poor},
		{name: "poor by loss", latency: 10 * time.Millisecond, loss: 0.5, want: Rating_Poor},
		{name: "boundary is exclusive", latency: 50 * time.Millisecond, loss: 0, want: Rating_Good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := CreateTracker(TrackerParams{})
			tracker.AddLatencySample(tt.latency)
			tracker.AddLossSample(tt.loss)
			assert.Equal(t, tt.want, tracker.Rating())
		})
	}
}

func TestTracker_CustomThresholds(t *testing.T) {
	tracker := CreateTracker(TrackerParams{
		Thresholds: &Thresholds{
			Excellent: Threshold{MaxLatency: 500 * time.Millisecond, MaxLoss: 1},
		},
	})
	tracker.AddLatencySample(300 * time.Millisecond)
	assert.Equal(t, Rating_Excellent, tracker.Rating())
}

func TestTracker_UnknownAndReset(t *testing.T) {
	tracker := CreateTracker(TrackerParams{})
	assert.Equal(t, Rating_Unknown, tracker.Rating())

	tracker.AddLatencySample(30 * time.Millisecond)
	tracker.AddLossSample(0)
	assert.Equal(t, Rating_Excellent, tracker.Rating())

	tracker.Reset()
	assert.Equal(t, Rating_Unknown, tracker.Rating())
	assert.Equal(t, Snapshot{Rating: Rating_Unknown}, tracker.Snapshot())

	tracker.AddLatencySample(90 * time.Millisecond)
	assert.Equal(t, time.Duration(0), tracker.Jitter())
}
