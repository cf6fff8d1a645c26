// Package wdt feeds the hardware watchdog from the main loop.
package wdt

import (
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/timex"
)

// Dog is the platform watchdog.
type Dog interface {
	Configure(timeoutMs uint32) error
	Start() error
	Update()
}

type Driver struct {
	dog      Dog
	period   uint32
	last     uint32
	started  bool
	disabled bool
	kicks    uint32
}

// Init configures dog with a timeout of ten kick periods. A disabled config
// yields a driver whose methods do nothing.
func Init(cfg types.WDTConfig, dog Dog) (*Driver, error) {
	if !cfg.Enabled {
		return &Driver{disabled: true}, nil
	}
	if dog == nil || cfg.KickPeriodMs == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "wdt.init"}
	}
	if err := dog.Configure(cfg.TimeoutMs()); err != nil {
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "wdt.init", err)
	}
	return &Driver{dog: dog, period: cfg.KickPeriodMs}, nil
}

// Start arms the watchdog. It cannot be stopped afterwards.
func (d *Driver) Start(now uint32) error {
	if d == nil {
		return errcode.NotInitialized
	}
	if d.disabled || d.started {
		return nil
	}
	if err := d.dog.Start(); err != nil {
		return errcode.Wrap(errcode.MapDriverErr(err), "wdt.start", err)
	}
	d.started = true
	d.last = now
	return nil
}

// Kick feeds the watchdog now.
func (d *Driver) Kick(now uint32) {
	if d == nil || d.disabled || !d.started {
		return
	}
	d.dog.Update()
	d.last = now
	d.kicks++
}

// Hndl kicks once the kick period has elapsed.
func (d *Driver) Hndl(now uint32) {
	if d == nil || d.disabled || !d.started {
		return
	}
	if timex.Due(now, d.last, d.period) {
		d.Kick(now)
	}
}

func (d *Driver) Kicks() uint32 {
	if d == nil {
		return 0
	}
	return d.kicks
}

func (d *Driver) Enabled() bool { return d != nil && !d.disabled }

// NopDog satisfies Dog on hosts without a watchdog.
type NopDog struct {
	TimeoutMs uint32
	Fed       uint32
	Running   bool
}

func (n *NopDog) Configure(timeoutMs uint32) error { n.TimeoutMs = timeoutMs; return nil }
func (n *NopDog) Start() error                     { n.Running = true; return nil }
func (n *NopDog) Update()                          { n.Fed++ }
