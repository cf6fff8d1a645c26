package types

import "nrfbsp-go/errcode"

// Board profile. One value describes every peripheral the BSP brings up;
// services/config holds the built-in profiles keyed by board name.

type Polarity uint8

const (
	ActiveLow Polarity = iota
	ActiveHigh
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type LEDConfig struct {
	Name     string
	Pin      int // gpio.PinNum(port, pin)
	Polarity Polarity
	Initial  bool // on at init
}

type ButtonConfig struct {
	Name     string
	Pin      int
	Polarity Polarity
	Pull     Pull
	LPF      bool
	LPFFcHz  float32
}

type ButtonsConfig struct {
	PeriodMs uint32
	ThLow    float32 // released below
	ThHigh   float32 // pressed above
	Buttons  []ButtonConfig
}

type ADCChannel struct {
	Name  string
	Input int // AINn
	Pin   int
}

type ADCConfig struct {
	Channels   []ADCChannel
	Resolution uint8  // bits
	VDDMilliV  uint32 // full scale with gain 1/4, ref VDD/4
	RateHz     uint32
}

type UARTConfig struct {
	Baud     uint32
	TXPin    int
	RXPin    int
	DataBits uint8
	StopBits uint8
	Parity   Parity
	RXSize   int
	TXSize   int
}

type USBConfig struct {
	RXSize         int
	TXSize         int
	WriteTimeoutMs uint32
}

type DeviceInfo struct {
	FWVersion    string
	HWVersion    string
	Serial       string
	Manufacturer string
}

type BLEConfig struct {
	Name                 string
	Appearance           uint16
	MinConnIntervalMs    uint16
	MaxConnIntervalMs    uint16
	SlaveLatency         uint16
	SupervisionTimeoutMs uint16
	AdvIntervalMs        uint16
	AdvDurationMs        uint32 // 0 = until stopped
	AdvRestartOnDiscon   bool
	CompanyID            uint16
	RXSize               int
	MaxPayload           int
	WriteTimeoutMs       uint32
	Info                 DeviceInfo
}

type WDTConfig struct {
	Enabled      bool
	KickPeriodMs uint32
}

// TimeoutMs is the reset deadline: ten missed kicks.
func (w WDTConfig) TimeoutMs() uint32 { return 10 * w.KickPeriodMs }

type Intro struct {
	Project   string
	SWVersion string
	HWVersion string
	Info      string
}

type CLIConfig struct {
	Transport string // "usb" | "uart"
	RXSize    int
	TXSize    int
	MaxCmds   int // per table
	MaxTables int
	PeriodMs  uint32
	Channels  []string
	Intro     Intro
}

type ParamType uint8

const (
	ParamU8 ParamType = iota
	ParamI8
	ParamU16
	ParamI16
	ParamU32
	ParamI32
	ParamF32
)

func (t ParamType) String() string {
	switch t {
	case ParamU8:
		return "u8"
	case ParamI8:
		return "i8"
	case ParamU16:
		return "u16"
	case ParamI16:
		return "i16"
	case ParamU32:
		return "u32"
	case ParamI32:
		return "i32"
	default:
		return "f32"
	}
}

type Access uint8

const (
	RO Access = iota
	RW
)

func (a Access) String() string {
	if a == RW {
		return "RW"
	}
	return "RO"
}

type ParamDef struct {
	ID         uint16
	Name       string
	Min        float32
	Max        float32
	Def        float32
	Unit       string
	Type       ParamType
	Access     Access
	Persistent bool
	Desc       string
}

type BoardConfig struct {
	Name        string
	StatusLED   int // index into LEDs toggled by the heartbeat
	HeartbeatMs uint32
	LEDs        []LEDConfig
	Buttons     ButtonsConfig
	ADC         ADCConfig
	UART        UARTConfig
	USB         USBConfig
	BLE         BLEConfig
	WDT         WDTConfig
	CLI         CLIConfig
	Params      []ParamDef
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: msg}
}

// Validate checks the constraints the firmware would otherwise assert at
// build time.
func (c *BoardConfig) Validate() error {
	if c.StatusLED < 0 || (len(c.LEDs) > 0 && c.StatusLED >= len(c.LEDs)) {
		return invalid("status led out of range")
	}
	b := c.BLE
	if b.MinConnIntervalMs == 0 || b.MinConnIntervalMs >= b.MaxConnIntervalMs {
		return invalid("ble: min conn interval must be below max")
	}
	if uint64(b.SupervisionTimeoutMs) <= (1+uint64(b.SlaveLatency))*2*uint64(b.MaxConnIntervalMs) {
		return invalid("ble: supervision timeout too short for conn interval")
	}
	if b.AdvIntervalMs < 20 || b.AdvIntervalMs > 10240 {
		return invalid("ble: adv interval out of range")
	}
	if b.RXSize < 1 || b.MaxPayload < 1 {
		return invalid("ble: buffer sizes")
	}
	if c.CLI.RXSize < 32 || c.CLI.TXSize < 32 {
		return invalid("cli: buffers must be at least 32 bytes")
	}
	if c.UART.RXSize < 1 || c.UART.TXSize < 1 || c.USB.RXSize < 1 || c.USB.TXSize < 1 {
		return invalid("serial: ring sizes must be >= 1")
	}
	if c.Buttons.ThLow >= c.Buttons.ThHigh {
		return invalid("buttons: thresholds")
	}
	for _, bt := range c.Buttons.Buttons {
		if bt.LPF && bt.LPFFcHz <= 0 {
			return invalid("buttons: lpf cutoff")
		}
	}
	if c.WDT.Enabled && c.WDT.KickPeriodMs == 0 {
		return invalid("wdt: kick period")
	}
	seen := make(map[uint16]bool, len(c.Params))
	for _, p := range c.Params {
		if seen[p.ID] {
			return invalid("params: duplicate id " + p.Name)
		}
		seen[p.ID] = true
		if p.Min >= p.Max || p.Def < p.Min || p.Def > p.Max {
			return invalid("params: bad range for " + p.Name)
		}
	}
	return nil
}
