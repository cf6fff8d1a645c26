//go:build !nrf52840

package platform

import (
	"bufio"
	"io"
	"sync"
	"time"

	"nrfbsp-go/drivers/adc"
	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/drivers/uart"
	"nrfbsp-go/drivers/usbcdc"
	"nrfbsp-go/drivers/wdt"
	"nrfbsp-go/errcode"
	"nrfbsp-go/x/timex"
)

// Board returns host stand-ins: fake pins, a ramping ADC, a loopback UART,
// an open fake USB port and a simulated BLE stack.
func Board() Resources {
	usb := usbcdc.NewFakePort()
	usb.SetOpen(true)
	return Resources{
		Pins:  gpio.NewFakeFactory(),
		ADC:   RampADC(),
		UART:  &uart.Loopback{Echo: true},
		USB:   usb,
		BLE:   &blep.FakeStack{},
		Dog:   &wdt.NopDog{},
		Clock: timex.NewSysClock(),
		Reset: func() { println("[platform] reset requested") },
		Sleep: func(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) },
	}
}

// ---- ADC ----

type rampIn struct {
	mu   sync.Mutex
	v    uint16
	step uint16
}

func (r *rampIn) Configure(uint8, uint32) error { return nil }

func (r *rampIn) Get() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.v += r.step
	return r.v
}

// RampADC returns inputs that sweep full scale at a per-pin rate.
func RampADC() adc.ReaderFactory {
	return func(pin int) (adc.Reader, bool) {
		return &rampIn{step: uint16(16 * (pin%8 + 1))}, true
	}
}

// ---- USB over stdio ----

// StdioPort is a USB CDC port backed by a reader and writer, so the
// simulator can put the CLI on a terminal. It reports open until r ends.
type StdioPort struct {
	mu   sync.Mutex
	in   []byte
	w    io.Writer
	open bool
}

func NewStdioPort(r io.Reader, w io.Writer) *StdioPort {
	p := &StdioPort{w: w, open: true}
	go p.read(r)
	return p
}

func (p *StdioPort) read(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			p.mu.Lock()
			p.open = false
			p.mu.Unlock()
			return
		}
		p.mu.Lock()
		p.in = append(p.in, b)
		p.mu.Unlock()
	}
}

func (p *StdioPort) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.in)
}

func (p *StdioPort) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.in) == 0 {
		return 0, errcode.Empty
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, nil
}

func (p *StdioPort) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *StdioPort) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open || len(p.in) > 0
}
