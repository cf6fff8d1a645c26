//go:build nrf52840

package platform

import (
	"device/arm"
	"machine"
	"time"

	"tinygo.org/x/bluetooth"

	"nrfbsp-go/drivers/adc"
	"nrfbsp-go/drivers/blep/btstack"
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/drivers/usbcdc"
	"nrfbsp-go/types"
	"nrfbsp-go/x/timex"
)

// Board returns the nRF52840 peripherals.
func Board() Resources {
	return Resources{
		Pins:  nrfPinFactory{},
		ADC:   openADC,
		UART:  &nrfUART{u: machine.UART0},
		USB:   usbCDC(),
		BLE:   btstack.New(bluetooth.DefaultAdapter),
		Dog:   nrfDog{},
		Clock: timex.NewSysClock(),
		Reset: arm.SystemReset,
		Sleep: func(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) },
	}
}

// ---- GPIO ----

// machine.Pin numbers are already port*32+pin on nRF52840.
type nrfPinFactory struct{}

func (nrfPinFactory) ByNumber(n int) (gpio.Pin, bool) {
	if n < 0 || n >= 48 {
		return nil, false
	}
	return &nrfPin{p: machine.Pin(n), n: n}, true
}

type nrfPin struct {
	p machine.Pin
	n int
}

func (r *nrfPin) ConfigureInput(pull types.Pull) error {
	mode := machine.PinInput
	switch pull {
	case types.PullUp:
		mode = machine.PinInputPullup
	case types.PullDown:
		mode = machine.PinInputPulldown
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *nrfPin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *nrfPin) Set(level bool) { r.p.Set(level) }
func (r *nrfPin) Get() bool      { return r.p.Get() }
func (r *nrfPin) Toggle()        { r.p.Set(!r.p.Get()) }
func (r *nrfPin) Number() int    { return r.n }

// ---- ADC ----

var adcReady bool

type nrfADC struct{ a machine.ADC }

// Configure sets the SAADC reference to the full scale the driver scales
// with; 3000 mV selects gain 1/5 on the internal 0.6 V reference.
func (c *nrfADC) Configure(bits uint8, refMilliV uint32) error {
	c.a.Configure(machine.ADCConfig{Resolution: uint32(bits), Reference: refMilliV})
	return nil
}

func (c *nrfADC) Get() uint16 { return c.a.Get() }

func openADC(pin int) (adc.Reader, bool) {
	if !adcReady {
		machine.InitADC()
		adcReady = true
	}
	return &nrfADC{a: machine.ADC{Pin: machine.Pin(pin)}}, true
}

// ---- UART ----

type nrfUART struct{ u *machine.UART }

func (n *nrfUART) Configure(baud uint32, tx, rx int) error {
	return n.u.Configure(machine.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(rx),
	})
}

func (n *nrfUART) Buffered() int               { return n.u.Buffered() }
func (n *nrfUART) ReadByte() (byte, error)     { return n.u.ReadByte() }
func (n *nrfUART) Write(p []byte) (int, error) { return n.u.Write(p) }

// ---- USB CDC ----

// cdcSerial is what machine.Serial provides when the firmware is built with
// -serial=usb. With the pca10056 default (-serial=uart) it is the J-Link
// UART, which has no DTR.
type cdcSerial interface {
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	DTR() bool
}

type usbPort struct{ s cdcSerial }

func (u usbPort) Buffered() int               { return u.s.Buffered() }
func (u usbPort) ReadByte() (byte, error)     { return u.s.ReadByte() }
func (u usbPort) Write(p []byte) (int, error) { return u.s.Write(p) }
func (u usbPort) Connected() bool             { return u.s.DTR() }

// usbCDC returns nil when no CDC device is linked in; usbcdc.Init then
// fails and the CLI falls back to UART.
func usbCDC() usbcdc.Port {
	s, ok := any(machine.Serial).(cdcSerial)
	if !ok {
		println("[platform] machine.Serial is not USB CDC, build with -serial=usb")
		return nil
	}
	return usbPort{s: s}
}

// ---- Watchdog ----

type nrfDog struct{}

func (nrfDog) Configure(timeoutMs uint32) error {
	return machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: timeoutMs})
}

func (nrfDog) Start() error { return machine.Watchdog.Start() }
func (nrfDog) Update()      { machine.Watchdog.Update() }
