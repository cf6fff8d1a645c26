package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

// Board topics used across these tests.
var (
	btnPressed  = func(n int) Topic { return T("btn", n, "pressed") }
	btnReleased = func(n int) Topic { return T("btn", n, "released") }
	bleEvent    = func(name string) Topic { return T("ble", "event", name) }
	cfgBoard    = T("config", "board")
	sysUptime   = T("sys", "uptime")
)

func TestButtonEventReachesSubscriber(t *testing.T) {
	b := NewBus(4)
	app := b.NewConnection("app")
	led := b.NewConnection("led")

	s := led.Subscribe(btnPressed(1))
	app.Publish(app.NewMessage(btnPressed(1), "down", false))
	app.Publish(app.NewMessage(btnReleased(1), "up", false))

	want(t, s, "down")
	quiet(t, s)
}

func TestLateSubscriberGetsRetainedUptime(t *testing.T) {
	b := NewBus(2)
	hb := b.NewConnection("heartbeat")
	hb.Publish(hb.NewMessage(sysUptime, "12", true))
	hb.Publish(hb.NewMessage(sysUptime, "13", true))

	cli := b.NewConnection("cli")
	s := cli.Subscribe(sysUptime)
	want(t, s, "13")
	quiet(t, s)
}

func TestPlusMatchesAnyButton(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("app")

	anyPress := c.Subscribe(T("btn", "+", "pressed"))
	anyEdge := c.Subscribe(T("btn", "+", "+"))
	second := c.Subscribe(T("btn", 2, "+"))
	held := c.Subscribe(T("btn", "+", "held"))

	c.Publish(c.NewMessage(btnPressed(2), "b2", false))
	want(t, anyPress, "b2")
	want(t, anyEdge, "b2")
	want(t, second, "b2")
	quiet(t, held)

	c.Publish(c.NewMessage(btnReleased(4), "b4", false))
	want(t, anyEdge, "b4")
	quiet(t, anyPress)
	quiet(t, second)

	// "+" consumes exactly one level.
	c.Publish(c.NewMessage(T("btn", "count"), "n", false))
	quiet(t, anyPress)
	quiet(t, anyEdge)
	quiet(t, second)
	quiet(t, held)
}

func TestHashMatchesSubtreeAndParent(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("monitor")

	ble := c.Subscribe(T("ble", "#"))
	events := c.Subscribe(T("ble", "event", "#"))
	all := c.Subscribe(T("#"))
	bare := c.Subscribe(T("ble"))

	c.Publish(c.NewMessage(T("ble"), "root", false))
	want(t, ble, "root")
	want(t, all, "root")
	want(t, bare, "root")
	quiet(t, events)

	c.Publish(c.NewMessage(T("ble", "event"), "ev", false))
	want(t, ble, "ev")
	want(t, events, "ev")
	want(t, all, "ev")
	quiet(t, bare)

	c.Publish(c.NewMessage(bleEvent("connect"), "conn", false))
	want(t, ble, "conn")
	want(t, events, "conn")
	want(t, all, "conn")
	quiet(t, bare)
}

func TestRetainedFanOutToWildcards(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("config")
	for _, r := range []struct {
		topic Topic
		val   string
	}{
		{T("config"), "root"},
		{cfgBoard, "pca10056"},
		{T("config", "board", "rev"), "3"},
		{T("config", "cli"), "usb"},
	} {
		c.Publish(c.NewMessage(r.topic, r.val, true))
	}

	cases := []struct {
		pattern Topic
		want    []string
	}{
		{T("config", "#"), []string{"root", "pca10056", "3", "usb"}},
		{T("config", "+", "#"), []string{"pca10056", "3", "usb"}},
		{T("config", "+"), []string{"pca10056", "usb"}},
		{T("config", "board", "+"), []string{"3"}},
	}
	for _, tc := range cases {
		got := collect(t, c.Subscribe(tc.pattern), len(tc.want))
		sameSet(t, tc.pattern, got, tc.want)
	}
}

func TestRetainedNilPayloadClears(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("app")
	c.Publish(c.NewMessage(T("usb", "stats"), "rx=4", true))
	c.Publish(c.NewMessage(T("uart", "stats"), "rx=9", true))
	c.Publish(c.NewMessage(T("usb", "stats"), nil, true))

	s := c.Subscribe(T("+", "stats"))
	sameSet(t, s.Topic(), collect(t, s, 1), []string{"rx=9"})
	quiet(t, s)
}

func TestConfigGetRequestWait(t *testing.T) {
	b := NewBus(8)
	cli := b.NewConnection("cli")
	cfg := b.NewConnection("config")

	get := T("config", "get")
	reqs := cfg.Subscribe(get)
	defer cfg.Unsubscribe(reqs)

	go func() {
		if m, ok := <-reqs.Channel(); ok {
			cfg.Reply(m, "heartbeat=1000", false)
		}
	}()

	req := b.NewMessage(get, "heartbeat", false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := cli.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	if s, _ := reply.Payload.(string); s != "heartbeat=1000" {
		t.Fatalf("reply %#v", reply.Payload)
	}
	if len(req.ReplyTo) == 0 || reply.Topic.String() != req.ReplyTo.String() {
		t.Fatalf("reply on %v, asked for %v", reply.Topic, req.ReplyTo)
	}
}

func TestRequestWithoutResponderTimesOut(t *testing.T) {
	b := NewBus(8)
	cli := b.NewConnection("cli")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := cli.RequestWait(ctx, b.NewMessage(T("ble", "status"), nil, false)); err == nil {
		t.Fatal("want timeout")
	}
}

func TestRequestKeepsReplySubscriptionOpen(t *testing.T) {
	b := NewBus(8)
	app := b.NewConnection("app")
	adc := b.NewConnection("adc")

	reqs := adc.Subscribe(T("adc", "read"))
	replies := app.Request(b.NewMessage(T("adc", "read"), 0, false))
	defer app.Unsubscribe(replies)

	m := <-reqs.Channel()
	adc.Reply(m, map[int]uint16{0: 1650, 1: 3300}, false)
	adc.Reply(m, map[int]uint16{0: 1651}, false)

	for _, n := range []int{2, 1} {
		select {
		case r := <-replies.Channel():
			if got := len(r.Payload.(map[int]uint16)); got != n {
				t.Fatalf("reply with %d channels, want %d", got, n)
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatal("no reply")
		}
	}
}

func TestReplyWithoutReplyToIsDropped(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("cli")
	s := c.Subscribe(T("#"))
	c.Reply(b.NewMessage(T("config", "get"), nil, false), "x", false)
	quiet(t, s)
}

func TestBadTokenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for a slice token")
		}
	}()
	_ = T("adc", []byte{1})
}

func TestQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("btn", 1))

	for _, p := range []string{"press", "release", "press2"} {
		c.Publish(b.NewMessage(T("btn", 1), p, false))
	}
	if b.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", b.Dropped())
	}
	want(t, s, "release")
	want(t, s, "press2")
}

func TestDisconnectClosesSubscriptions(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("svc")
	s1 := c.Subscribe(T("ble", "#"))
	s2 := c.Subscribe(T("usb", "state"))
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("channel for %v still open", s.Topic())
		}
	}
	// Publishing after disconnect must not panic on a closed channel.
	b.Publish(b.NewMessage(T("ble", "connect"), "x", false))
	if len(b.root.children) != 0 {
		t.Fatalf("trie not pruned: %d children", len(b.root.children))
	}
}

func TestIntegerTokens(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("adc", "+"))
	c.Publish(b.NewMessage(T("adc", 3), "1650", false))
	want(t, s, "1650")
	if got := T("adc", 3).String(); got != "adc/3" {
		t.Fatalf("String()=%q", got)
	}
}

func TestIntegerWidthsNameSameLevel(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("app")

	exact := c.Subscribe(T("adc", 3))
	literal := c.Subscribe(Topic{"btn", uint16(2), "pressed"})

	c.Publish(c.NewMessage(T("adc", uint8(3)), "u8", false))
	want(t, exact, "u8")
	c.Publish(c.NewMessage(Topic{"adc", int64(3)}, "i64", false))
	want(t, exact, "i64")
	c.Publish(c.NewMessage(btnPressed(2), "int", false))
	want(t, literal, "int")

	for tok, s := range map[any]string{
		uint8(3): "adc/3", int32(-1): "adc/-1", uint64(1 << 63): "adc/9223372036854775808", true: "adc/true",
	} {
		if got := (Topic{"adc", tok}).String(); got != s {
			t.Fatalf("%T token: String()=%q want %q", tok, got, s)
		}
	}

	c.Unsubscribe(literal)
	c.Unsubscribe(exact)
	if len(b.root.children) != 0 {
		t.Fatalf("trie not pruned: %d children", len(b.root.children))
	}
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func want(t *testing.T, sub *Subscription, payload string) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		if s, ok := m.Payload.(string); !ok || s != payload {
			t.Fatalf("%v: got %#v want %q", sub.Topic(), m.Payload, payload)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("%v: nothing, want %q", sub.Topic(), payload)
	}
}

func quiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("%v: unexpected %v %#v", sub.Topic(), m.Topic, m.Payload)
	case <-time.After(30 * time.Millisecond):
	}
}

func collect(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	for len(out) < n {
		select {
		case m := <-sub.Channel():
			out = append(out, m.Payload.(string))
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("%v: got %d of %d (%v)", sub.Topic(), len(out), n, out)
		}
	}
	return out
}

func sameSet(t *testing.T, pattern Topic, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("%v: got %v want %v", pattern, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%v: got %v want %v", pattern, got, want)
		}
	}
}
