package heartbeat

import (
	"context"
	"time"

	"nrfbsp-go/bus"
	"nrfbsp-go/types"
	"nrfbsp-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicUptime          = bus.T("sys", "uptime")
)

// Toggler is the status LED.
type Toggler interface {
	Toggle(id int) error
}

type Service struct {
	conn     *bus.Connection
	cfgSub   *bus.Subscription
	led      Toggler
	ledID    int
	interval uint32
	last     uint32
	ticks    uint32
	stopped  chan struct{}
}

// New subscribes to config/heartbeat. led may be nil.
func New(conn *bus.Connection, led Toggler, ledID int, intervalMs uint32) *Service {
	if intervalMs == 0 {
		intervalMs = 1000
	}
	return &Service{
		conn:     conn,
		cfgSub:   conn.Subscribe(topicConfigHeartbeat),
		led:      led,
		ledID:    ledID,
		interval: intervalMs,
	}
}

func (s *Service) Interval() uint32 { return s.interval }
func (s *Service) Ticks() uint32    { return s.ticks }

func (s *Service) apply(msg *bus.Message) {
	hb, ok := msg.Payload.(types.HeartbeatConfig)
	if !ok || hb.IntervalMs == 0 {
		println("[heartbeat] ignoring config payload")
		return
	}
	s.interval = hb.IntervalMs
}

func (s *Service) beat(now uint32) {
	s.ticks++
	s.last = now
	if s.led != nil {
		_ = s.led.Toggle(s.ledID)
	}
	s.conn.Publish(s.conn.NewMessage(TopicUptime, types.Uptime{Ms: now, Ticks: s.ticks}, true))
}

// Poll applies pending config and beats when the interval has elapsed.
// Call it from the main loop at a finer period than the interval.
func (s *Service) Poll(now uint32) {
drain:
	for {
		select {
		case msg, ok := <-s.cfgSub.Channel():
			if !ok {
				// Connection closed: keep the last interval.
				break drain
			}
			s.apply(msg)
		default:
			break drain
		}
	}
	if timex.Due(now, s.last, s.interval) {
		s.beat(now)
	}
}

func (s *Service) serviceLoop(ctx context.Context, clock timex.Clock) {
	defer close(s.stopped)
	defer s.conn.Unsubscribe(s.cfgSub)

	tick := time.NewTicker(time.Duration(s.interval) * time.Millisecond)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case <-tick.C:
			s.beat(clock.NowMs())
		case msg, ok := <-s.cfgSub.Channel():
			if !ok {
				println("[heartbeat] config subscription closed")
				return
			}
			s.apply(msg)
			tick.Reset(time.Duration(s.interval) * time.Millisecond)
		}
	}
}

// Start runs the heartbeat on its own goroutine instead of Poll.
func (s *Service) Start(ctx context.Context, clock timex.Clock) error {
	s.stopped = make(chan struct{})
	go s.serviceLoop(ctx, clock)
	return nil
}
