package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"envhttpd/bus"
	"envhttpd/services/hal"
	"envhttpd/types"
	"envhttpd/x/timex"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const defaultInterval = 30 * time.Second

type Service struct {
	log     *slog.Logger
	started time.Time

	last  *types.Snapshot
	state string
}

func New(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log.With("component", "heartbeat"), state: "unknown"}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	snapSub := conn.Subscribe(hal.TopicSnapshot)
	stateSub := conn.Subscribe(hal.TopicState)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(snapSub)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and bus messages
	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			s.beat()
		case msg := <-cfgSub.Channel():
			if c, ok := msg.Payload.(types.HeartbeatConfig); ok && c.Interval > 0 {
				tick.Reset(c.Interval)
				s.log.Info("heartbeat interval set", "interval", c.Interval)
			}
		case msg := <-snapSub.Channel():
			if snap, ok := msg.Payload.(types.Snapshot); ok {
				s.last = &snap
			}
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.HALState); ok {
				s.state = st.Level
			}
		}
	}
}

// beat logs uptime, the station state and the last published reading.
func (s *Service) beat() {
	attrs := []any{
		"uptime", time.Since(s.started).Round(time.Second),
		"hal", s.state,
	}
	if s.last == nil {
		s.log.Info("heartbeat", append(attrs, "reading", "none")...)
		return
	}
	env := s.last.Combined.Value.Env()
	attrs = append(attrs,
		"temperature", env.Temperature.String(),
		"pressure", env.Pressure.String(),
		"humidity", env.Humidity.String(),
		"precision", s.last.Precision.Temperature().String(),
		"age_ms", timex.SinceMs(s.last.TS),
	)
	s.log.Info("heartbeat", attrs...)
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.started = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
