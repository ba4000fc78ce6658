package aggregator

import (
	"time"

	"github.com/rs/zerolog"
)

// DegradationEvent describes an NLP capability call whose failure was
// absorbed into an empty result.
type DegradationEvent struct {
	Capability string
	ChannelID  string
	MessageID  string
	Err        error
	Duration   time.Duration
}

// EventSink receives degradation events. Implementations must be safe for
// concurrent use; the two capability calls of one aggregation report in parallel.
type EventSink interface {
	CapabilityDegraded(ev DegradationEvent)
}

// LogSink writes degradation events as structured log entries.
type LogSink struct {
	Logger zerolog.Logger
}

// CapabilityDegraded logs the event at warn level.
func (s LogSink) CapabilityDegraded(ev DegradationEvent) {
	s.Logger.Warn().
		Str("event", "capability_degraded").
		Str("capability", ev.Capability).
		Str("channel_id", ev.ChannelID).
		Str("message_id", ev.MessageID).
		Dur("duration", ev.Duration).
		Err(ev.Err).
		Msg("nlp capability failed, continuing with empty result")
}
