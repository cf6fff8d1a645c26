package app

import (
	"strings"
	"testing"
	"time"

	"tinygo.org/x/drivers"

	"nrfbsp-go/bus"
	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/drivers/uart"
	"nrfbsp-go/drivers/usbcdc"
	"nrfbsp-go/drivers/wdt"
	"nrfbsp-go/errcode"
	"nrfbsp-go/platform"
	"nrfbsp-go/services/config"
	"nrfbsp-go/services/params"
	"nrfbsp-go/types"
	"nrfbsp-go/x/timex"
)

type rig struct {
	app   *App
	clock *timex.FakeClock
	pins  *gpio.FakeFactory
	usb   *usbcdc.FakePort
	ble   *blep.FakeStack
	dog   *wdt.NopDog
	reset bool
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cfg, err := config.Load(config.BoardDK)
	if err != nil {
		t.Fatal(err)
	}
	r := &rig{
		clock: &timex.FakeClock{},
		pins:  gpio.NewFakeFactory(),
		usb:   usbcdc.NewFakePort(),
		ble:   &blep.FakeStack{},
		dog:   &wdt.NopDog{},
	}
	res := platform.Board()
	res.Pins = r.pins
	res.USB = r.usb
	res.BLE = r.ble
	res.Dog = r.dog
	res.Clock = r.clock
	res.Reset = func() { r.reset = true }
	r.app = New(cfg, res, bus.NewBus(64))
	if err := r.app.Init(); err != nil {
		t.Fatal(err)
	}
	return r
}

// advance runs the scheduler ms milliseconds forward in 1 ms steps.
func (r *rig) advance(ms uint32) {
	for i := uint32(0); i < ms; i++ {
		r.clock.Advance(1)
		r.app.Scheduler().Poll(r.clock.NowMs())
	}
}

func (r *rig) openTerminal() {
	r.usb.SetOpen(true)
	r.advance(10)
	r.usb.Output()
}

func (r *rig) run(cmd string) string {
	r.usb.Type(cmd + "\r")
	// One tick runs the line, the next drains its output.
	r.advance(20)
	return r.usb.Output()
}

func TestInitBringsBoardUp(t *testing.T) {
	r := newRig(t)
	if r.app.Failures() != 0 {
		t.Fatalf("failures=%d", r.app.Failures())
	}
	// LED1 active low and initially on.
	if r.pins.Pin(gpio.LED1).Get() {
		t.Fatal("LED1 should be driven low")
	}
	if !r.dog.Running || r.dog.TimeoutMs != 1000 {
		t.Fatalf("watchdog %+v", r.dog)
	}
	r.advance(1000)
	if r.dog.Fed < 9 {
		t.Fatalf("watchdog fed %d times in 1 s", r.dog.Fed)
	}
}

func TestIntroOnPortOpen(t *testing.T) {
	r := newRig(t)
	r.usb.SetOpen(true)
	r.advance(10)
	if out := r.usb.Output(); !strings.Contains(out, "nRF52840 Dev Board Base Code") {
		t.Fatalf("no intro: %q", out)
	}
}

func TestLEDCommand(t *testing.T) {
	r := newRig(t)
	r.openTerminal()
	out := r.run("led 2 on")
	if !strings.Contains(out, "LED2 on") {
		t.Fatalf("got %q", out)
	}
	if r.pins.Pin(gpio.LED2).Get() {
		t.Fatal("LED2 pin should be low")
	}
	if out := r.run("led 9 on"); !strings.Contains(out, "[ERR] led: invalid_params") {
		t.Fatalf("got %q", out)
	}
}

func TestButtonStartsAdvertising(t *testing.T) {
	r := newRig(t)
	r.openTerminal()
	sub := r.app.Bus().NewConnection("t").Subscribe(bus.T("btn", "+", "#"))

	r.pins.Pin(gpio.BTN1).Set(false)
	r.advance(200)
	if !r.ble.Advertising() || !r.app.BLE.IsAdv() {
		t.Fatal("BTN1 should start advertising")
	}
	select {
	case m := <-sub.Channel():
		ev, ok := m.Payload.(types.ButtonEvent)
		if !ok || !ev.Pressed || ev.ID != 0 {
			t.Fatalf("event %#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no button event on bus")
	}
	if v, _ := r.app.Params.Get(params.BTN1); v != 1 {
		t.Fatalf("BTN1 param=%v", v)
	}
	if out := r.usb.Output(); !strings.Contains(out, "[APP] BTN1 pressed") {
		t.Fatalf("no press log: %q", out)
	}

	r.pins.Pin(gpio.BTN1).Set(true)
	r.pins.Pin(gpio.BTN2).Set(false)
	r.advance(200)
	if r.ble.Advertising() {
		t.Fatal("BTN2 should stop advertising")
	}
}

func TestBLEEventsReachBusAndCLI(t *testing.T) {
	r := newRig(t)
	r.openTerminal()
	sub := r.app.Bus().NewConnection("t").Subscribe(bus.T("ble", "event", "#"))

	r.ble.Connect()
	r.ble.CentralWrite(blep.SerialUUID(blep.SerialRXID), []byte("hey"))
	r.advance(100)

	names := map[string]bool{}
	for len(sub.Channel()) > 0 {
		m := <-sub.Channel()
		names[m.Payload.(types.BLEEvent).Name] = true
	}
	if !names["connect"] || !names["rx_data"] {
		t.Fatalf("events %v", names)
	}
	out := r.usb.Output()
	if !strings.Contains(out, `BLE rx: "hey"`) {
		t.Fatalf("rx not echoed: %q", out)
	}

	if out := r.run("ble_tx hello there"); strings.Contains(out, "ERR") {
		t.Fatalf("ble_tx: %q", out)
	}
	if got := string(r.ble.Notified()); got != "hello there\r\n" {
		t.Fatalf("notified %q", got)
	}
}

func TestParamsAndStatsCommands(t *testing.T) {
	r := newRig(t)
	r.openTerminal()
	if out := r.run("par_info"); !strings.Contains(out, "BTN4") {
		t.Fatalf("par_info %q", out)
	}
	if out := r.run("stats"); !strings.Contains(out, "sched 10ms=") || !strings.Contains(out, "board nrf52840dk (unpublished)") {
		t.Fatalf("stats %q", out)
	}
	r.app.Bus().NewConnection("cfg").Publish(r.app.Bus().NewMessage(bus.T("config", "board"), "nrf52840dk", true))
	if out := r.run("stats"); !strings.Contains(out, "board nrf52840dk\r\n") {
		t.Fatalf("stats after publish %q", out)
	}
	if out := r.run("adc"); strings.Count(out, " V\r\n") != 6 {
		t.Fatalf("adc %q", out)
	}
	r.run("reset")
	if !r.reset {
		t.Fatal("reset hook not reached")
	}
}

func TestUARTTransport(t *testing.T) {
	cfg, _ := config.Load(config.BoardDK)
	cfg.CLI.Transport = "uart"
	port := &uart.Loopback{}
	res := platform.Board()
	res.UART = port
	res.Clock = &timex.FakeClock{}
	a := New(cfg, res, nil)
	if err := a.Init(); err != nil {
		t.Fatal(err)
	}
	port.Inject([]byte("help\r"))
	for i := 1; i <= 3; i++ {
		a.Hndl10ms(uint32(i * 10))
	}
	if a.CLI.Lines() != 1 {
		t.Fatalf("lines=%d", a.CLI.Lines())
	}
	if !strings.Contains(string(port.Written), "uart_tx") {
		t.Fatalf("help not written to uart: %q", port.Written)
	}
}

type recSensor struct {
	which drivers.Measurement
	calls int
}

func (s *recSensor) Update(which drivers.Measurement) error {
	s.which = which
	s.calls++
	return errcode.Unsupported
}

func TestSensorsUpdatedEveryTick(t *testing.T) {
	r := newRig(t)
	extra := &recSensor{}
	r.app.sensors = append(r.app.sensors, extra)
	r.openTerminal()

	scans := r.app.ADC.Scans()
	r.advance(50)
	if got := r.app.ADC.Scans() - scans; got != 5 {
		t.Fatalf("adc scans in 50 ms: %d", got)
	}
	if extra.calls < 5 || extra.which != drivers.Voltage {
		t.Fatalf("sensor calls=%d which=%v", extra.calls, extra.which)
	}
	if out := r.usb.Output(); !strings.Contains(out, "[WAR] sensor: unsupported") {
		t.Fatalf("sensor error not reported: %q", out)
	}
}

func TestCLIFallsBackToUARTWithoutUSB(t *testing.T) {
	cfg, _ := config.Load(config.BoardDK)
	port := &uart.Loopback{}
	res := platform.Board()
	res.USB = nil
	res.UART = port
	res.Clock = &timex.FakeClock{}
	a := New(cfg, res, nil)
	if err := a.Init(); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("init: %v", err)
	}
	if a.Failures() != 1 || a.USB != nil {
		t.Fatalf("failures=%d usb=%v", a.Failures(), a.USB)
	}
	port.Inject([]byte("intro\r"))
	for i := 1; i <= 3; i++ {
		a.Hndl10ms(uint32(i * 10))
	}
	if !strings.Contains(string(port.Written), "nRF52840 Dev Board Base Code") {
		t.Fatalf("CLI not on uart: %q", port.Written)
	}
}
