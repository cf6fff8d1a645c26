package types

// Bus payloads. Small fixed-size values so publishing from the main loop
// stays cheap on TinyGo.

// Link is the state reported for a transport.
type Link string

const (
	LinkUp   Link = "up"
	LinkDown Link = "down"
)

type LinkState struct {
	Link Link
	TS   uint32 // ms since boot
}

// ButtonEvent is published on btn/<n>/pressed|released.
type ButtonEvent struct {
	ID      int
	Pressed bool
	TS      uint32
}

// LEDValue is published retained on led/<n>/value.
type LEDValue struct {
	On bool
}

// ADCSample is published on adc/sample after each full scan.
type ADCSample struct {
	Raw    []uint16 // 12-bit counts
	MicroV []int32
}

// BLEEvent is published on ble/event/<name>.
type BLEEvent struct {
	Name string
	Len  int // RxData payload length
	TS   uint32
}

// USBEvent is published on usb/event/<name>.
type USBEvent struct {
	Name string
	TS   uint32
}

// Uptime is published retained on sys/uptime.
type Uptime struct {
	Ms    uint32
	Ticks uint32
}

// HeartbeatConfig is accepted on config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs uint32
}
