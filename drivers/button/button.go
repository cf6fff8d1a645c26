// Package button samples the board push-buttons at a fixed period, filters
// them with a first-order low-pass and reports debounced edges.
package button

import (
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/mathx"
)

// Handler receives the button index.
type Handler func(id int)

type button struct {
	cfg     types.ButtonConfig
	pin     gpio.Pin
	lpf     mathx.LPF
	pressed bool
}

type Driver struct {
	btns      []button
	dt        float32
	thLow     float32
	thHigh    float32
	onPress   Handler
	onRelease Handler
}

func nop(int) {}

// Init configures the button inputs. A button held at boot starts pressed
// without firing a callback.
func Init(cfg types.ButtonsConfig, pins gpio.Factory) (*Driver, error) {
	if cfg.PeriodMs == 0 || cfg.ThLow >= cfg.ThHigh {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "button.init"}
	}
	d := &Driver{
		btns:      make([]button, len(cfg.Buttons)),
		dt:        float32(cfg.PeriodMs) / 1000,
		thLow:     cfg.ThLow,
		thHigh:    cfg.ThHigh,
		onPress:   nop,
		onRelease: nop,
	}
	for i, c := range cfg.Buttons {
		p, ok := pins.ByNumber(c.Pin)
		if !ok {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "button.init", Msg: c.Name}
		}
		if err := p.ConfigureInput(c.Pull); err != nil {
			return nil, errcode.Wrap(errcode.MapDriverErr(err), "button.init", err)
		}
		b := button{cfg: c, pin: p}
		b.pressed = b.raw()
		b.lpf.Alpha = mathx.LPFAlpha(c.LPFFcHz, d.dt)
		if b.pressed {
			b.lpf.Reset(1)
		}
		d.btns[i] = b
	}
	return d, nil
}

func (b *button) raw() bool {
	lvl := b.pin.Get()
	if b.cfg.Polarity == types.ActiveLow {
		return !lvl
	}
	return lvl
}

// OnPressed registers the press callback; nil restores the no-op.
func (d *Driver) OnPressed(h Handler) {
	if h == nil {
		h = nop
	}
	d.onPress = h
}

func (d *Driver) OnReleased(h Handler) {
	if h == nil {
		h = nop
	}
	d.onRelease = h
}

// Hndl samples every button once. Call it every PeriodMs.
func (d *Driver) Hndl() {
	if d == nil {
		return
	}
	for i := range d.btns {
		b := &d.btns[i]
		var x float32
		if b.raw() {
			x = 1
		}
		next := b.pressed
		if b.cfg.LPF {
			y := b.lpf.Update(x)
			switch {
			case !b.pressed && y >= d.thHigh:
				next = true
			case b.pressed && y <= d.thLow:
				next = false
			}
		} else {
			next = x > 0
		}
		if next == b.pressed {
			continue
		}
		b.pressed = next
		if next {
			d.onPress(i)
		} else {
			d.onRelease(i)
		}
	}
}

// State reports the debounced state of button id.
func (d *Driver) State(id int) (bool, error) {
	if d == nil {
		return false, errcode.NotInitialized
	}
	if id < 0 || id >= len(d.btns) {
		return false, errcode.InvalidParams
	}
	return d.btns[id].pressed, nil
}

// SetLPFFc changes the cutoff of button id at runtime.
func (d *Driver) SetLPFFc(id int, fc float32) error {
	if d == nil {
		return errcode.NotInitialized
	}
	if id < 0 || id >= len(d.btns) || fc <= 0 {
		return errcode.InvalidParams
	}
	b := &d.btns[id]
	b.cfg.LPFFcHz = fc
	b.lpf.Alpha = mathx.LPFAlpha(fc, d.dt)
	return nil
}

func (d *Driver) Count() int {
	if d == nil {
		return 0
	}
	return len(d.btns)
}
