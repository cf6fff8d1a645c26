// Package blep is the BLE peripheral: a serial service (TX notify, RX write)
// plus Device Information, advertising with a duration limit, and connection
// events delivered from the main loop.
package blep

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/ringbuf"
	"nrfbsp-go/x/timex"
)

type Event uint8

const (
	EvtConnect Event = iota + 1
	EvtDisconnect
	EvtRxData
	EvtAdvStart
	EvtAdvEnd
)

func (e Event) String() string {
	switch e {
	case EvtConnect:
		return "connect"
	case EvtDisconnect:
		return "disconnect"
	case EvtRxData:
		return "rx_data"
	case EvtAdvStart:
		return "adv_start"
	case EvtAdvEnd:
		return "adv_end"
	default:
		return "none"
	}
}

const (
	DefaultMaxPayload   = 20
	DefaultWriteTimeout = 100 * time.Millisecond
	eventQueueLen       = 16

	// MaxRX bounds BLEConfig.RXSize.
	MaxRX = 512
)

// Driver state. The stack calls onConnect and onWrite from its own context;
// they only touch atomics and rings. Everything else runs in the main loop.
type Driver struct {
	stack Stack
	cfg   types.BLEConfig

	rx     ringbuf.Ring
	events ringbuf.Ring
	rxMem  [MaxRX]byte
	evMem  [eventQueueLen]byte

	connected atomic.Bool
	adv       bool
	advSince  uint32
	now       uint32

	maxPayload int
	timeout    time.Duration
	handler    func(Event)
}

// Init enables the stack, registers the services and configures
// advertising. It does not start advertising.
func Init(cfg types.BLEConfig, stack Stack) (*Driver, error) {
	if stack == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "blep.init", Msg: "nil stack"}
	}
	d := &Driver{
		stack:      stack,
		cfg:        cfg,
		maxPayload: DefaultMaxPayload,
		timeout:    DefaultWriteTimeout,
		handler:    func(Event) {},
	}
	if err := d.rx.Init(cfg.RXSize, ringbuf.Attr{Name: "ble.rx", ItemSize: 1, Mem: d.rxMem[:]}); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "blep.init", err)
	}
	// Newest events matter more than stale ones.
	err := d.events.Init(eventQueueLen, ringbuf.Attr{Name: "ble.evt", ItemSize: 1, Override: true, Mem: d.evMem[:]})
	if err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "blep.init", err)
	}
	if cfg.MaxPayload > 0 {
		d.maxPayload = cfg.MaxPayload
	}
	if cfg.WriteTimeoutMs > 0 {
		d.timeout = time.Duration(cfg.WriteTimeoutMs) * time.Millisecond
	}

	if err := stack.Enable(); err != nil {
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "blep.enable", err)
	}
	stack.SetConnectHandler(d.onConnect)
	for _, svc := range []Service{SerialService(d.onWrite), DeviceInfoService(cfg)} {
		if err := stack.AddService(svc); err != nil {
			return nil, errcode.Wrap(errcode.MapDriverErr(err), "blep.service", err)
		}
	}
	if err := stack.ConfigureAdvertisement(AdvConfigFrom(cfg)); err != nil {
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "blep.adv", err)
	}
	return d, nil
}

// OnEvent registers the event callback; nil restores the no-op.
func (d *Driver) OnEvent(fn func(Event)) {
	if fn == nil {
		fn = func(Event) {}
	}
	d.handler = fn
}

func (d *Driver) post(e Event) { _ = d.events.AddByte(byte(e)) }

func (d *Driver) onConnect(connected bool) {
	if d.connected.Swap(connected) == connected {
		return
	}
	if connected {
		d.post(EvtConnect)
	} else {
		d.post(EvtDisconnect)
	}
}

func (d *Driver) onWrite(p []byte) {
	for _, b := range p {
		if d.rx.AddByte(b) != nil {
			break
		}
	}
	d.post(EvtRxData)
}

func (d *Driver) IsInit() bool      { return d != nil }
func (d *Driver) IsConnected() bool { return d != nil && d.connected.Load() }
func (d *Driver) IsAdv() bool       { return d != nil && d.adv }

// AdvStart begins advertising for the configured duration.
func (d *Driver) AdvStart() error {
	if d == nil {
		return errcode.NotInitialized
	}
	if d.adv || d.connected.Load() {
		return errcode.Busy
	}
	if err := d.stack.StartAdvertisement(); err != nil {
		return errcode.Wrap(errcode.MapDriverErr(err), "blep.adv_start", err)
	}
	d.adv = true
	d.advSince = d.now
	d.post(EvtAdvStart)
	return nil
}

// AdvStop ends advertising early.
func (d *Driver) AdvStop() error {
	if d == nil {
		return errcode.NotInitialized
	}
	if !d.adv {
		return nil
	}
	if err := d.stack.StopAdvertisement(); err != nil {
		return errcode.Wrap(errcode.MapDriverErr(err), "blep.adv_stop", err)
	}
	d.adv = false
	d.post(EvtAdvEnd)
	return nil
}

// Hndl dispatches queued events and expires advertising. now is the
// millisecond tick.
func (d *Driver) Hndl(now uint32) {
	if d == nil {
		return
	}
	d.now = now
	if d.adv && d.cfg.AdvDurationMs > 0 && timex.Due(now, d.advSince, d.cfg.AdvDurationMs) {
		_ = d.AdvStop()
	}
	for {
		b, err := d.events.GetByte()
		if err != nil {
			break
		}
		e := Event(b)
		switch e {
		case EvtConnect:
			// The stack stops advertising once a central connects.
			if d.adv {
				d.adv = false
			}
		case EvtDisconnect:
			if d.cfg.AdvRestartOnDiscon {
				_ = d.AdvStart()
			}
		}
		d.handler(e)
	}
}

// Write sends p as TX notifications of at most MaxPayload bytes. A busy
// stack is retried until ctx or the write timeout ends.
func (d *Driver) Write(ctx context.Context, p []byte) (int, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	if !d.connected.Load() {
		return 0, errcode.NotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	sent := 0
	for sent < len(p) {
		end := sent + d.maxPayload
		if end > len(p) {
			end = len(p)
		}
		n, err := d.stack.Notify(p[sent:end])
		sent += n
		if err == nil && n > 0 {
			continue
		}
		if !d.connected.Load() {
			return sent, errcode.NotConnected
		}
		select {
		case <-ctx.Done():
			return sent, errcode.Wrap(errcode.Timeout, "blep.write", ctx.Err())
		default:
		}
		runtime.Gosched()
	}
	return sent, nil
}

func (d *Driver) WriteString(ctx context.Context, s string) (int, error) {
	return d.Write(ctx, []byte(s))
}

// Get returns the next byte written by the central, or Empty.
func (d *Driver) Get() (byte, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	return d.rx.GetByte()
}

// Transmit and Receive let the CLI run over BLE.
func (d *Driver) Transmit(p []byte) error {
	_, err := d.Write(context.Background(), p)
	return err
}

func (d *Driver) Receive() (byte, error) { return d.Get() }
