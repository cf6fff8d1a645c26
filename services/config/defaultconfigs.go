package config

import (
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/services/params"
	"nrfbsp-go/types"
)

// -----------------------------------------------------------------------------
// Built-in board profiles
// Key: board name (same value placed in ctx under CtxDeviceKey)
// -----------------------------------------------------------------------------

const (
	BoardDK = "nrf52840dk"

	SWVersion = "1.0.0"
	HWVersion = "1.0"
)

func nrf52840dk() types.BoardConfig {
	btn := func(name string, pin int) types.ButtonConfig {
		return types.ButtonConfig{
			Name: name, Pin: pin, Polarity: types.ActiveLow, Pull: types.PullUp,
			LPF: true, LPFFcHz: 10,
		}
	}
	ain := func(name string, input, pin int) types.ADCChannel {
		return types.ADCChannel{Name: name, Input: input, Pin: pin}
	}
	return types.BoardConfig{
		Name:        BoardDK,
		StatusLED:   0,
		HeartbeatMs: 1000,
		LEDs: []types.LEDConfig{
			{Name: "LED1", Pin: gpio.LED1, Polarity: types.ActiveLow, Initial: true},
			{Name: "LED2", Pin: gpio.LED2, Polarity: types.ActiveLow},
			{Name: "LED3", Pin: gpio.LED3, Polarity: types.ActiveLow},
			{Name: "LED4", Pin: gpio.LED4, Polarity: types.ActiveLow},
		},
		Buttons: types.ButtonsConfig{
			PeriodMs: 10,
			ThLow:    0.05,
			ThHigh:   0.95,
			Buttons: []types.ButtonConfig{
				btn("BTN1", gpio.BTN1),
				btn("BTN2", gpio.BTN2),
				btn("BTN3", gpio.BTN3),
				btn("BTN4", gpio.BTN4),
			},
		},
		ADC: types.ADCConfig{
			Resolution: 12,
			VDDMilliV:  3000,
			RateHz:     100,
			Channels: []types.ADCChannel{
				ain("AIN1", 1, gpio.AIN1),
				ain("AIN2", 2, gpio.AIN2),
				ain("AIN4", 4, gpio.AIN4),
				ain("AIN5", 5, gpio.AIN5),
				ain("AIN6", 6, gpio.AIN6),
				ain("AIN7", 7, gpio.AIN7),
			},
		},
		UART: types.UARTConfig{
			Baud: 115200, TXPin: gpio.UART1TX, RXPin: gpio.UART1RX,
			DataBits: 8, StopBits: 1, Parity: types.ParityNone,
			RXSize: 1024, TXSize: 1024,
		},
		USB: types.USBConfig{RXSize: 1024, TXSize: 1024, WriteTimeoutMs: 100},
		BLE: types.BLEConfig{
			Name:                 "MyBLE",
			Appearance:           128, // generic computer
			MinConnIntervalMs:    100,
			MaxConnIntervalMs:    200,
			SlaveLatency:         0,
			SupervisionTimeoutMs: 4000,
			AdvIntervalMs:        200,
			AdvDurationMs:        60000,
			AdvRestartOnDiscon:   true,
			CompanyID:            0x0059,
			RXSize:               512,
			MaxPayload:           20,
			WriteTimeoutMs:       100,
			Info: types.DeviceInfo{
				FWVersion:    SWVersion,
				HWVersion:    HWVersion,
				Serial:       "0001",
				Manufacturer: "Nordic Semiconductor",
			},
		},
		WDT: types.WDTConfig{Enabled: true, KickPeriodMs: 100},
		CLI: types.CLIConfig{
			Transport: "usb",
			RXSize:    512,
			TXSize:    512,
			MaxCmds:   10,
			MaxTables: 8,
			PeriodMs:  10,
			Channels:  []string{"WAR", "ERR", "APP"},
			Intro: types.Intro{
				Project:   "nRF52840 Dev Board Base Code",
				SWVersion: SWVersion,
				HWVersion: HWVersion,
				Info:      "nRF52840 DK (PCA10056), SoftDevice S140",
			},
		},
		Params: params.DefaultTable(),
	}
}

var profiles = map[string]func() types.BoardConfig{
	BoardDK: nrf52840dk,
}
