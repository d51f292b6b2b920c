package client

import (
	goerrs "errors"
	"time"

	"github.com/sessamekesh/turnlink/internal"
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.uber.org/zap"
)

func (c *Client) sendHeartbeat(now time.Time) {
	if !c.lastHeartbeat.IsZero() && now.Sub(c.lastHeartbeat) < c.params.HeartbeatInterval {
		return
	}
	c.lastHeartbeat = now

	evicted, err := c.pings.Record(now)
	if err != nil {
		var dup *internal.DuplicatePingError
		if goerrs.As(err, &dup) {
			return
		}
		c.log.Warn("Failed to record ping", zap.Error(err))
		return
	}
	c.recordLoss(evicted)

	c.send(&message.Ping{SentAt: now.UnixNano()})
}

func (c *Client) onPong(pong *message.Pong) {
	rtt, err := c.pings.Resolve(pong.PingSentAt, c.now())
	if err != nil {
		c.log.Debug("Ignoring pong for unknown ping", zap.Error(err))
		return
	}

	c.quality.AddLatencySample(rtt)
	c.quality.AddLossSample(0)
	c.metrics.ObserveRoundTrip(rtt.Seconds())
	c.metrics.ObserveQuality(c.quality.Snapshot())
}

func (c *Client) expirePings(now time.Time) {
	c.recordLoss(c.pings.ExpireBefore(now.Add(-c.params.PingTimeout)))
}

func (c *Client) recordLoss(lost int) {
	if lost == 0 {
		return
	}
	for i := 0; i < lost; i++ {
		c.quality.AddLossSample(1)
	}
	c.log.Debug("Pings lost", zap.Int("count", lost))
	c.metrics.ObserveQuality(c.quality.Snapshot())
}

func (c *Client) emitQueueProgress(now time.Time) {
	if c.state != ConnectionState_InMatchmaking || c.queue == nil {
		return
	}
	if now.Sub(c.queue.lastProgress) < c.params.QueueProgressInterval {
		return
	}
	c.queue.lastProgress = now
	c.emit(QueueProgress{Elapsed: now.Sub(c.queue.startedAt)})
}
