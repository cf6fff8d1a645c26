// Package uart buffers a hardware UART through a pair of rings. The port's
// own receive interrupt fills its FIFO; Hndl moves bytes between that FIFO
// and the rings from the main loop.
package uart

import (
	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/ringbuf"
)

// Port is the platform UART.
type Port interface {
	Configure(baud uint32, tx, rx int) error
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// MaxBuf bounds UARTConfig.RXSize and TXSize.
const MaxBuf = 1024

type Driver struct {
	port  Port
	rx    ringbuf.Ring
	tx    ringbuf.Ring
	rxMem [MaxBuf]byte
	txMem [MaxBuf]byte
	chunk [64]byte
	stats types.SerialStats
}

// Init configures port and sets up the rings over the driver's own storage.
func Init(name string, cfg types.UARTConfig, port Port) (*Driver, error) {
	if port == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "uart.init", Msg: "nil port"}
	}
	d := &Driver{port: port}
	if err := d.rx.Init(cfg.RXSize, ringbuf.Attr{Name: name + ".rx", ItemSize: 1, Mem: d.rxMem[:]}); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "uart.init", err)
	}
	if err := d.tx.Init(cfg.TXSize, ringbuf.Attr{Name: name + ".tx", ItemSize: 1, Mem: d.txMem[:]}); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "uart.init", err)
	}
	if err := port.Configure(cfg.Baud, cfg.TXPin, cfg.RXPin); err != nil {
		return nil, errcode.Wrap(errcode.MapDriverErr(err), "uart.init", err)
	}
	return d, nil
}

// Hndl pumps the port FIFO into the RX ring and drains the TX ring.
func (d *Driver) Hndl() {
	if d == nil {
		return
	}
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
	d.flush()
}

func (d *Driver) flush() {
	for !d.tx.IsEmpty() {
		n := 0
		for n < len(d.chunk) {
			b, err := d.tx.GetByte()
			if err != nil {
				break
			}
			d.chunk[n] = b
			n++
		}
		w, err := d.port.Write(d.chunk[:n])
		d.stats.TXBytes += uint32(w)
		if err != nil || w < n {
			d.stats.TXDrops += uint32(n - w)
			return
		}
	}
}

// Write queues p for transmission. It returns the number of bytes queued
// and Full when the ring could not take all of p.
func (d *Driver) Write(p []byte) (int, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	for i, b := range p {
		if err := d.tx.AddByte(b); err != nil {
			d.stats.TXDrops += uint32(len(p) - i)
			return i, err
		}
	}
	return len(p), nil
}

func (d *Driver) WriteString(s string) (int, error) { return d.Write([]byte(s)) }

// Get returns the next received byte or Empty.
func (d *Driver) Get() (byte, error) {
	if d == nil {
		return 0, errcode.NotInitialized
	}
	return d.rx.GetByte()
}

// Transmit and Receive let the CLI run over this port.
func (d *Driver) Transmit(p []byte) error {
	_, err := d.Write(p)
	return err
}

func (d *Driver) Receive() (byte, error) { return d.Get() }

func (d *Driver) Stats() types.SerialStats {
	if d == nil {
		return types.SerialStats{}
	}
	return d.stats
}
