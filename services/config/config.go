package config

import (
	"context"

	"nrfbsp-go/bus"
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for the board name
)

// Lookup allows overriding how board profiles are resolved.
var Lookup = func(board string) (types.BoardConfig, bool) {
	fn, ok := profiles[board]
	if !ok {
		return types.BoardConfig{}, false
	}
	return fn(), true
}

// Boards lists the built-in profile names.
func Boards() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	return out
}

// Load resolves and validates the profile for board.
func Load(board string) (types.BoardConfig, error) {
	cfg, ok := Lookup(board)
	if !ok {
		return types.BoardConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: "no profile for board: " + board}
	}
	if err := cfg.Validate(); err != nil {
		return types.BoardConfig{}, err
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	cfg  types.BoardConfig
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Config returns the last published profile.
func (s *ConfigService) Config() types.BoardConfig { return s.cfg }

func sections(cfg types.BoardConfig) []struct {
	key string
	val any
} {
	return []struct {
		key string
		val any
	}{
		{"board", cfg.Name},
		{"leds", cfg.LEDs},
		{"buttons", cfg.Buttons},
		{"adc", cfg.ADC},
		{"uart", cfg.UART},
		{"usb", cfg.USB},
		{"ble", cfg.BLE},
		{"wdt", cfg.WDT},
		{"cli", cfg.CLI},
		{"params", cfg.Params},
		{"heartbeat", types.HeartbeatConfig{IntervalMs: cfg.HeartbeatMs}},
	}
}

// Publish loads the board named in ctx and publishes each section retained
// on config/<section>.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) error {
	board, _ := ctx.Value(CtxDeviceKey).(string)
	if board == "" {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.publish", Msg: "missing board in context"}
	}
	cfg, err := Load(board)
	if err != nil {
		return err
	}
	s.cfg = cfg
	for _, sec := range sections(cfg) {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, sec.key), sec.val, true))
	}
	return nil
}

// Start publishes the profile, then answers config/get requests with the
// whole profile until ctx ends.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.Publish(ctx, conn); err != nil {
		println("[config] publish failed:", err.Error())
		return err
	}
	sub := conn.Subscribe(bus.T(configPrefix, "get"))
	go func() {
		defer conn.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-sub.Channel():
				if !ok {
					return
				}
				conn.Reply(m, s.cfg, false)
			}
		}
	}()
	return nil
}
