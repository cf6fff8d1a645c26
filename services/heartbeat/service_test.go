package heartbeat

import (
	"context"
	"testing"
	"time"

	"nrfbsp-go/bus"
	"nrfbsp-go/types"
	"nrfbsp-go/x/timex"
)

type countLED struct{ n int }

func (c *countLED) Toggle(int) error { c.n++; return nil }

func TestPollBeatsOnInterval(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	led := &countLED{}
	s := New(conn, led, 0, 1000)

	for now := uint32(10); now <= 3000; now += 10 {
		s.Poll(now)
	}
	if s.Ticks() != 3 || led.n != 3 {
		t.Fatalf("ticks=%d toggles=%d", s.Ticks(), led.n)
	}

	sub := conn.Subscribe(TopicUptime)
	m := <-sub.Channel()
	up, ok := m.Payload.(types.Uptime)
	if !ok || up.Ms != 3000 || up.Ticks != 3 {
		t.Fatalf("uptime %#v", m.Payload)
	}
}

func TestConfigChangesInterval(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	s := New(conn, nil, 0, 1000)

	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"), types.HeartbeatConfig{IntervalMs: 250}, true))
	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"), "junk", false))
	s.Poll(0)
	if s.Interval() != 250 {
		t.Fatalf("interval=%d", s.Interval())
	}
	for now := uint32(10); now <= 1000; now += 10 {
		s.Poll(now)
	}
	if s.Ticks() != 4 {
		t.Fatalf("ticks=%d", s.Ticks())
	}
}

func TestStartLoop(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	led := &countLED{}
	s := New(conn, led, 0, 20)
	watch := b.NewConnection("watch").Subscribe(TopicUptime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, timex.NewSysClock())

	select {
	case <-watch.Channel():
	case <-time.After(time.Second):
		t.Fatal("no heartbeat published")
	}
}

func TestStartLoopEndsWhenConnectionCloses(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	s := New(conn, nil, 0, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, timex.NewSysClock())
	conn.Disconnect()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("loop still running after disconnect")
	}
}

func TestPollAfterDisconnectKeepsBeating(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	led := &countLED{}
	s := New(conn, led, 0, 100)
	conn.Disconnect()

	for now := uint32(10); now <= 300; now += 10 {
		s.Poll(now)
	}
	if s.Ticks() != 3 || s.Interval() != 100 {
		t.Fatalf("ticks=%d interval=%d", s.Ticks(), s.Interval())
	}
}
