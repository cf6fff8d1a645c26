// Package usbcdc buffers the USB CDC-ACM serial port and reports cable and
// terminal state changes through callbacks.
package usbcdc

import (
	"context"
	"runtime"
	"time"

	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/ringbuf"
)

// Port is the platform CDC endpoint.
type Port interface {
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	// Connected reports a host terminal holding the port open (DTR).
	Connected() bool
}

// Plugger is implemented by ports that can sense VBUS.
type Plugger interface {
	Plugged() bool
}

// Callbacks are invoked from Hndl. Nil fields are ignored.
type Callbacks struct {
	Plugged   func()
	Unplugged func()
	PortOpen  func()
	PortClose func()
}

const DefaultWriteTimeout = 100 * time.Millisecond

// MaxBuf bounds USBConfig.RXSize and TXSize.
const MaxBuf = 1024

type Driver struct {
	port    Port
	rx      ringbuf.Ring
	tx      ringbuf.Ring
	rxMem   [MaxBuf]byte
	txMem   [MaxBuf]byte
	chunk   [64]byte
	pend    []byte
	cb      Callbacks
	plugged bool
	open    bool
	timeout time.Duration
	stats   types.SerialStats
}

func Init(cfg types.USBConfig, port Port) (*Driver, error) {
	if port == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "usbcdc.init", Msg: "nil port"}
	}
	d := &Driver{port: port, timeout: DefaultWriteTimeout}
	if err := d.rx.Init(cfg.RXSize, ringbuf.Attr{Name: "usb.rx", ItemSize: 1, Mem: d.rxMem[:]}); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "usbcdc.init", err)
	}
	if err := d.tx.Init(cfg.TXSize, ringbuf.Attr{Name: "usb.tx", ItemSize: 1, Mem: d.txMem[:]}); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "usbcdc.init", err)
	}
	if cfg.WriteTimeoutMs > 0 {
		d.timeout = time.Duration(cfg.WriteTimeoutMs) * time.Millisecond
	}
	return d, nil
}

func (d *Driver) SetCallbacks(cb Callbacks) { d.cb = cb }

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

// Hndl tracks plug and port state, pumps RX and drains TX.
func (d *Driver) Hndl() {
	if d == nil {
		return
	}
	plugged := true
	if p, ok := d.port.(Plugger); ok {
		plugged = p.Plugged()
	}
	if plugged != d.plugged {
		d.plugged = plugged
		if plugged {
			call(d.cb.Plugged)
		} else {
			call(d.cb.Unplugged)
		}
	}
	open := plugged && d.port.Connected()
	if open != d.open {
		d.open = open
		if open {
			call(d.cb.PortOpen)
		} else {
			// Stale output must not reach the next session.
			_ = d.tx.Clear()
			d.pend = nil
			call(d.cb.PortClose)
		}
	}
	d.pump()
}

func (d *Driver) pump() {
	for d.port.Buffered() > 0 {
		b, err := d.port.ReadByte()
		if err != nil {
			break
		}
		if d.rx.AddByte(b) != nil {
			d.stats.RXDrops++
			continue
		}
		d.stats.RXBytes++
	}
	if d.open {
		d.drain()
	}
}

// drain moves what the port accepts from the TX ring and reports whether
// everything queued has gone out. Bytes the port refuses stay in pend.
func (d *Driver) drain() bool {
	for {
		if len(d.pend) == 0 {
			n := 0
			for n < len(d.chunk) {
				b, err := d.tx.GetByte()
				if err != nil {
					break
				}
				d.chunk[n] = b
				n++
			}
			if n == 0 {
				return true
			}
			d.pend = d.chunk[:n]
		}
		w, err := d.port.Write(d.pend)
		d.stats.TXBytes += uint32(w)
		d.pend = d.pend[w:]
		if err != nil || len(d.pend) > 0 {
			return false
		}
	}
}

// IsOpen reports whether a host terminal has the port open.
func (d *Driver) IsOpen() bool { return d != nil && d.open }

func (d *Driver) IsPlugged() bool { return d != nil && d.plugged }

// Write queues p and pumps until the port has taken all of it. It gives up
// with Timeout when ctx ends or the write timeout passes, and fails at once
// with PortClosed when no terminal is attached.
func (d *Driver) Write(ctx context.Context, p []byte) (int, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	if !d.open {
		return 0, errcode.PortClosed
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	queued := 0
	for {
		for queued < len(p) && d.tx.AddByte(p[queued]) == nil {
			queued++
		}
		if d.drain() && queued == len(p) {
			return len(p), nil
		}
		select {
		case <-ctx.Done():
			d.stats.TXDrops += uint32(len(p) - queued)
			return queued, errcode.Wrap(errcode.Timeout, "usbcdc.write", ctx.Err())
		default:
		}
		if !d.port.Connected() {
			return queued, errcode.PortClosed
		}
		runtime.Gosched()
	}
}

func (d *Driver) WriteString(ctx context.Context, s string) (int, error) {
	return d.Write(ctx, []byte(s))
}

// Get returns the next received byte or Empty.
func (d *Driver) Get() (byte, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	return d.rx.GetByte()
}

// Transmit and Receive let the CLI run over USB.
func (d *Driver) Transmit(p []byte) error {
	_, err := d.Write(context.Background(), p)
	return err
}

func (d *Driver) Receive() (byte, error) { return d.Get() }

func (d *Driver) Stats() types.SerialStats {
	if d == nil {
		return types.SerialStats{}
	}
	return d.stats
}
