// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"nrfbsp-go/bus"
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

func TestBuiltInProfileValidates(t *testing.T) {
	cfg, err := Load(BoardDK)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.LEDs) != 4 || len(cfg.Buttons.Buttons) != 4 || len(cfg.ADC.Channels) != 6 {
		t.Fatalf("unexpected table sizes: %+v", cfg)
	}
	if cfg.WDT.TimeoutMs() != 1000 {
		t.Fatalf("wdt timeout %d", cfg.WDT.TimeoutMs())
	}
	if !cfg.LEDs[0].Initial || cfg.LEDs[1].Initial {
		t.Fatal("only LED1 starts on")
	}
}

func TestValidateCatchesBadProfiles(t *testing.T) {
	cases := []struct {
		name string
		mut  func(c *types.BoardConfig)
	}{
		{"conn interval order", func(c *types.BoardConfig) { c.BLE.MinConnIntervalMs = 300 }},
		{"supervision timeout", func(c *types.BoardConfig) { c.BLE.SupervisionTimeoutMs = 400 }},
		{"max slave latency", func(c *types.BoardConfig) {
			c.BLE.SlaveLatency = 65535
			c.BLE.SupervisionTimeoutMs = 32000
		}},
		{"adv interval", func(c *types.BoardConfig) { c.BLE.AdvIntervalMs = 10 }},
		{"cli buffers", func(c *types.BoardConfig) { c.CLI.RXSize = 16 }},
		{"ring size", func(c *types.BoardConfig) { c.USB.TXSize = 0 }},
		{"param default", func(c *types.BoardConfig) { c.Params[0].Def = 3 }},
		{"param id", func(c *types.BoardConfig) { c.Params[1].ID = c.Params[0].ID }},
		{"status led", func(c *types.BoardConfig) { c.StatusLED = 9 }},
	}
	for _, tc := range cases {
		cfg := nrf52840dk()
		tc.mut(&cfg)
		if err := cfg.Validate(); errcode.Of(err) != errcode.InvalidParams {
			t.Errorf("%s: got %v", tc.name, err)
		}
	}
}

func TestPublishRetainedPerSection(t *testing.T) {
	b := bus.NewBus(32)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), CtxDeviceKey, BoardDK))
	defer cancel()
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatal(err)
	}

	sub := conn.Subscribe(bus.T(configPrefix, "+"))
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 11 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != 11 {
		t.Fatalf("expected 11 retained sections, got %d (%v)", len(got), got)
	}
	if hb, ok := got["heartbeat"].(types.HeartbeatConfig); !ok || hb.IntervalMs != 1000 {
		t.Fatalf("heartbeat payload = %#v", got["heartbeat"])
	}
	if ble, ok := got["ble"].(types.BLEConfig); !ok || ble.Name != "MyBLE" {
		t.Fatalf("ble payload = %#v", got["ble"])
	}
}

func TestRequestReturnsWholeProfile(t *testing.T) {
	b := bus.NewBus(32)
	svcConn := b.NewConnection("config")
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), CtxDeviceKey, BoardDK))
	defer cancel()
	if err := NewConfigService().Start(ctx, svcConn); err != nil {
		t.Fatal(err)
	}

	client := b.NewConnection("client")
	rctx, rcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer rcancel()
	reply, err := client.RequestWait(rctx, client.NewMessage(bus.T(configPrefix, "get"), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	cfg, ok := reply.Payload.(types.BoardConfig)
	if !ok || cfg.Name != BoardDK {
		t.Fatalf("reply %#v", reply.Payload)
	}
}

func TestPublishErrors(t *testing.T) {
	conn := bus.NewBus(4).NewConnection("test")
	svc := NewConfigService()
	if err := svc.Publish(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing board")
	}

	old := Lookup
	Lookup = func(string) (types.BoardConfig, bool) { return types.BoardConfig{}, false }
	t.Cleanup(func() { Lookup = old })

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-board")
	if err := svc.Publish(ctx, conn); err == nil {
		t.Fatal("expected error for unknown board")
	}
}
