// Package led drives the board LEDs from a config table and runs simple
// blink sequences from the periodic handler.
package led

import (
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
)

type blink struct {
	active bool
	onMs   uint32
	period uint32
	count  uint32 // remaining cycles, 0 = forever
	phase  uint32
}

type led struct {
	cfg   types.LEDConfig
	pin   gpio.Pin
	on    bool
	blink blink
}

type Driver struct {
	leds []led
}

// Init configures every LED in cfg at its initial state.
func Init(cfg []types.LEDConfig, pins gpio.Factory) (*Driver, error) {
	d := &Driver{leds: make([]led, len(cfg))}
	for i, c := range cfg {
		p, ok := pins.ByNumber(c.Pin)
		if !ok {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "led.init", Msg: c.Name}
		}
		d.leds[i] = led{cfg: c, pin: p, on: c.Initial}
		if err := p.ConfigureOutput(level(c.Polarity, c.Initial)); err != nil {
			return nil, errcode.Wrap(errcode.MapDriverErr(err), "led.init", err)
		}
	}
	return d, nil
}

func level(pol types.Polarity, on bool) bool {
	if pol == types.ActiveLow {
		return !on
	}
	return on
}

func (d *Driver) get(id int) (*led, error) {
	if d == nil {
		return nil, errcode.NotInitialized
	}
	if id < 0 || id >= len(d.leds) {
		return nil, errcode.InvalidParams
	}
	return &d.leds[id], nil
}

func (l *led) set(on bool) {
	l.on = on
	l.pin.Set(level(l.cfg.Polarity, on))
}

// Set switches LED id and cancels any blink on it.
func (d *Driver) Set(id int, on bool) error {
	l, err := d.get(id)
	if err != nil {
		return err
	}
	l.blink = blink{}
	l.set(on)
	return nil
}

func (d *Driver) On(id int) error  { return d.Set(id, true) }
func (d *Driver) Off(id int) error { return d.Set(id, false) }

func (d *Driver) Toggle(id int) error {
	l, err := d.get(id)
	if err != nil {
		return err
	}
	return d.Set(id, !l.on)
}

// Get reports the logical (polarity-corrected) state.
func (d *Driver) Get(id int) (bool, error) {
	l, err := d.get(id)
	if err != nil {
		return false, err
	}
	return l.on, nil
}

func (d *Driver) list() []led {
	if d == nil {
		return nil
	}
	return d.leds
}

func (d *Driver) Count() int {
	if d == nil {
		return 0
	}
	return len(d.leds)
}

func (d *Driver) Name(id int) string {
	l, err := d.get(id)
	if err != nil {
		return ""
	}
	return l.cfg.Name
}

// Blink starts a sequence: on for onMs out of every periodMs, count times
// (0 repeats forever). The LED ends off.
func (d *Driver) Blink(id int, onMs, periodMs, count uint32) error {
	l, err := d.get(id)
	if err != nil {
		return err
	}
	if periodMs == 0 || onMs > periodMs {
		return errcode.InvalidParams
	}
	l.blink = blink{active: true, onMs: onMs, period: periodMs, count: count}
	l.set(onMs > 0)
	return nil
}

// Blinking reports whether LED id runs a sequence.
func (d *Driver) Blinking(id int) bool {
	l, err := d.get(id)
	return err == nil && l.blink.active
}

// Hndl advances blink sequences by dtMs.
func (d *Driver) Hndl(dtMs uint32) {
	if d == nil {
		return
	}
	for i := range d.leds {
		l := &d.leds[i]
		b := &l.blink
		if !b.active {
			continue
		}
		b.phase += dtMs
		if b.phase >= b.period {
			b.phase -= b.period
			if b.count > 0 {
				b.count--
				if b.count == 0 {
					*b = blink{}
					l.set(false)
					continue
				}
			}
		}
		want := b.phase < b.onMs
		if want != l.on {
			l.set(want)
		}
	}
}

// PanicPattern flashes every LED fast and never returns. sleep is the
// platform delay.
func (d *Driver) PanicPattern(sleep func(ms uint32)) {
	on := true
	for {
		for i := range d.list() {
			d.leds[i].set(on)
		}
		on = !on
		sleep(100)
	}
}
