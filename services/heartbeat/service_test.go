package heartbeat

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"envhttpd/bus"
	"envhttpd/services/hal"
	"envhttpd/types"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("log never contained %q:\n%s", want, out.String())
}

func TestHeartbeatLogsLastReading(t *testing.T) {
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, nil))

	b := bus.NewBus(4)
	conn := b.NewConnection("heartbeat")
	pub := b.NewConnection("test")
	pub.Publish(&bus.Message{Topic: topicConfigHeartbeat, Payload: types.HeartbeatConfig{Interval: 10 * time.Millisecond}, Retained: true})
	pub.Publish(&bus.Message{Topic: hal.TopicState, Payload: types.HALState{Level: "ready"}, Retained: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(log)
	if err := s.Start(ctx, conn); err != nil {
		t.Fatal(err)
	}

	waitFor(t, out, "heartbeat interval set")
	waitFor(t, out, "reading=none")

	pub.Publish(&bus.Message{Topic: hal.TopicSnapshot, Payload: types.Snapshot{
		Combined:  types.CombinedReading{Value: types.CombinedValue{TemperatureC: 21.5, PressureHPa: 1013.25, HumidityPct: 40}},
		Precision: types.PrecisionReading{Raw: 2752, TemperatureC: 21.5},
		TS:        time.Now().UnixMilli(),
	}})
	waitFor(t, out, "precision=")
	waitFor(t, out, "hal=ready")

	cancel()
	waitFor(t, out, "heartbeat service stopping")
}

func TestIgnoresBadConfig(t *testing.T) {
	out := &syncBuffer{}
	b := bus.NewBus(4)
	conn := b.NewConnection("heartbeat")
	pub := b.NewConnection("test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = New(slog.New(slog.NewTextHandler(out, nil))).Start(ctx, conn)

	pub.Publish(&bus.Message{Topic: topicConfigHeartbeat, Payload: map[string]any{"interval": 1.0}})
	pub.Publish(&bus.Message{Topic: topicConfigHeartbeat, Payload: types.HeartbeatConfig{}})
	time.Sleep(50 * time.Millisecond)
	if strings.Contains(out.String(), "interval set") {
		t.Fatalf("unexpected reconfiguration:\n%s", out.String())
	}
}
