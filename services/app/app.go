// Package app wires the board drivers and services together and drives them
// from a cooperative scheduler at 10 ms, 100 ms and 1000 ms.
package app

import (
	"context"

	"tinygo.org/x/drivers"

	"nrfbsp-go/bus"
	"nrfbsp-go/drivers/adc"
	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/drivers/button"
	"nrfbsp-go/drivers/led"
	"nrfbsp-go/drivers/uart"
	"nrfbsp-go/drivers/usbcdc"
	"nrfbsp-go/drivers/wdt"
	"nrfbsp-go/errcode"
	"nrfbsp-go/platform"
	"nrfbsp-go/services/cli"
	"nrfbsp-go/services/heartbeat"
	"nrfbsp-go/services/params"
	"nrfbsp-go/types"
)

type App struct {
	cfg  types.BoardConfig
	res  platform.Resources
	bus  *bus.Bus
	conn *bus.Connection

	LEDs    *led.Driver
	Buttons *button.Driver
	ADC     *adc.Driver
	UART    *uart.Driver
	USB     *usbcdc.Driver
	BLE     *blep.Driver
	Params  *params.Table
	CLI     *cli.CLI
	WDT     *wdt.Driver
	HB      *heartbeat.Service

	sched   Scheduler
	sensors []drivers.Sensor
	fails   int
	now     uint32
}

func New(cfg types.BoardConfig, res platform.Resources, b *bus.Bus) *App {
	if b == nil {
		b = bus.NewBus(16)
	}
	return &App{cfg: cfg, res: res, bus: b, conn: b.NewConnection("app")}
}

func (a *App) Bus() *bus.Bus { return a.bus }

// Failures counts init steps that failed.
func (a *App) Failures() int { return a.fails }

func (a *App) step(name string, err error) {
	if err == nil {
		return
	}
	a.fails++
	println("[app] init", name, "failed:", err.Error())
}

// Init brings the board up. A failing step is logged and the rest still
// run, so a missing peripheral does not take the shell down with it.
func (a *App) Init() error {
	var first error
	note := func(name string, err error) {
		a.step(name, err)
		if first == nil && err != nil {
			first = err
		}
	}
	var err error

	note("config", a.cfg.Validate())

	a.LEDs, err = led.Init(a.cfg.LEDs, a.res.Pins)
	note("led", err)
	errcode.SetPanicHook(a.onAssert)

	a.Buttons, err = button.Init(a.cfg.Buttons, a.res.Pins)
	note("button", err)
	if a.Buttons != nil {
		a.Buttons.OnPressed(a.onPressed)
		a.Buttons.OnReleased(a.onReleased)
	}

	a.ADC, err = adc.Init(a.cfg.ADC, a.res.ADC)
	note("adc", err)
	if a.ADC != nil {
		a.sensors = append(a.sensors, a.ADC)
	}

	a.UART, err = uart.Init("uart1", a.cfg.UART, a.res.UART)
	note("uart", err)

	a.USB, err = usbcdc.Init(a.cfg.USB, a.res.USB)
	note("usb", err)
	if a.USB != nil {
		a.USB.SetCallbacks(usbcdc.Callbacks{
			Plugged:   func() { a.usbEvent("plugged") },
			Unplugged: func() { a.usbEvent("unplugged") },
			PortOpen: func() {
				a.usbEvent("port_open")
				if a.CLI != nil {
					a.CLI.Intro()
				}
			},
			PortClose: func() { a.usbEvent("port_close") },
		})
	}

	a.BLE, err = blep.Init(a.cfg.BLE, a.res.BLE)
	note("ble", err)
	if a.BLE != nil {
		a.BLE.OnEvent(a.onBLE)
	}

	a.Params, err = params.Init(a.cfg.Params)
	note("params", err)

	a.CLI, err = cli.New(a.cfg.CLI, a.transport(), a.Params, a.res.Reset)
	note("cli", err)
	if a.CLI != nil {
		note("cli.app", a.CLI.RegisterTable("app", a.commands()))
	}

	a.WDT, err = wdt.Init(a.cfg.WDT, a.res.Dog)
	note("wdt", err)
	if a.WDT != nil {
		note("wdt.start", a.WDT.Start(a.clock()))
	}

	var status heartbeat.Toggler
	if a.LEDs != nil {
		status = a.LEDs
	}
	a.HB = heartbeat.New(a.bus.NewConnection("heartbeat"), status, a.cfg.StatusLED, a.cfg.HeartbeatMs)

	period := a.cfg.Buttons.PeriodMs
	if period == 0 {
		period = 10
	}
	a.sched.Add("10ms", period, a.Hndl10ms)
	a.sched.Add("100ms", 100, a.Hndl100ms)
	a.sched.Add("1000ms", 1000, a.Hndl1000ms)
	a.sched.Add("heartbeat", period, a.HB.Poll)
	a.sched.Start(a.clock())
	return first
}

func (a *App) clock() uint32 {
	if a.res.Clock == nil {
		return a.now
	}
	return a.res.Clock.NowMs()
}

// transport picks the CLI transport named in config, falling back to USB.
func (a *App) transport() cli.Transport {
	switch a.cfg.CLI.Transport {
	case "uart":
		if a.UART != nil {
			return a.UART
		}
	case "ble":
		if a.BLE != nil {
			return a.BLE
		}
	}
	if a.USB != nil {
		return a.USB
	}
	if a.UART != nil {
		return a.UART
	}
	return nil
}

func (a *App) onAssert(op string) {
	println("[app] assertion failed:", op)
	sleep := a.res.Sleep
	if sleep == nil {
		sleep = func(uint32) {}
	}
	a.LEDs.PanicPattern(sleep)
}

// Scheduler exposes the main loop for callers that poll it themselves.
func (a *App) Scheduler() *Scheduler { return &a.sched }

// Run drives the scheduler from the platform clock until ctx ends.
func (a *App) Run(ctx context.Context) error {
	return a.sched.Run(ctx, a.res.Clock)
}

// Hndl10ms: buttons, LEDs, sensors, serial pumps, CLI and watchdog.
func (a *App) Hndl10ms(now uint32) {
	a.now = now
	a.Buttons.Hndl()
	a.LEDs.Hndl(10)
	for _, s := range a.sensors {
		if err := s.Update(drivers.Voltage); err != nil {
			a.CLI.Printf(cli.WAR, "sensor: %v", err)
		}
	}
	a.UART.Hndl()
	a.USB.Hndl()
	a.CLI.Hndl()
	a.WDT.Hndl(now)
}

// Hndl100ms: BLE housekeeping, button parameters, ADC snapshot.
func (a *App) Hndl100ms(now uint32) {
	a.BLE.Hndl(now)
	if a.Buttons != nil && a.Params != nil {
		for i := 0; i < a.Buttons.Count() && i < 4; i++ {
			s, _ := a.Buttons.State(i)
			var v float32
			if s {
				v = 1
			}
			_ = a.Params.SetInternal(params.BTN1+uint16(i), v)
		}
	}
	if a.ADC != nil {
		a.conn.Publish(a.conn.NewMessage(bus.T("adc", "sample"), a.ADC.Snapshot(), true))
	}
}

// Hndl1000ms publishes serial statistics.
func (a *App) Hndl1000ms(uint32) {
	a.conn.Publish(a.conn.NewMessage(bus.T("uart", "stats"), a.UART.Stats(), true))
	a.conn.Publish(a.conn.NewMessage(bus.T("usb", "stats"), a.USB.Stats(), true))
}

func (a *App) onPressed(id int) {
	a.conn.Publish(a.conn.NewMessage(bus.T("btn", id+1, "pressed"), types.ButtonEvent{ID: id, Pressed: true, TS: a.now}, false))
	a.CLI.Printf(cli.APP, "BTN%d pressed", id+1)
	switch id {
	case 0:
		if err := a.BLE.AdvStart(); err != nil {
			a.CLI.Printf(cli.WAR, "adv start: %v", err)
		}
	case 1:
		if err := a.BLE.AdvStop(); err != nil {
			a.CLI.Printf(cli.WAR, "adv stop: %v", err)
		}
	}
}

func (a *App) onReleased(id int) {
	a.conn.Publish(a.conn.NewMessage(bus.T("btn", id+1, "released"), types.ButtonEvent{ID: id, TS: a.now}, false))
	a.CLI.Printf(cli.APP, "BTN%d released", id+1)
}

func (a *App) onBLE(e blep.Event) {
	ev := types.BLEEvent{Name: e.String(), TS: a.now}
	a.conn.Publish(a.conn.NewMessage(bus.T("ble", "event", e.String()), ev, false))
	a.CLI.Printf(cli.APP, "BLE %s", e)
	if e == blep.EvtRxData && a.cfg.CLI.Transport != "ble" {
		a.echoBLE()
	}
}

// echoBLE forwards bytes received over BLE to the APP channel.
func (a *App) echoBLE() {
	var buf [64]byte
	n := 0
	for n < len(buf) {
		b, err := a.BLE.Get()
		if err != nil {
			break
		}
		buf[n] = b
		n++
	}
	if n > 0 {
		a.CLI.Printf(cli.APP, "BLE rx: %q", buf[:n])
	}
}

func (a *App) usbEvent(name string) {
	a.conn.Publish(a.conn.NewMessage(bus.T("usb", "event", name), types.USBEvent{Name: name, TS: a.now}, false))
}
