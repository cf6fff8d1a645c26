// Package adc samples the analog inputs of the board in one scan and keeps
// the latest result per channel.
//
// Each input is configured for a full scale of VDDMilliV at the configured
// resolution. Backends return TinyGo's left-aligned 16-bit reading and the
// driver shifts it down to that resolution.
package adc

import (
	"tinygo.org/x/drivers"

	"nrfbsp-go/errcode"
	"nrfbsp-go/types"
	"nrfbsp-go/x/mathx"
)

// Reader is one configured analog input. Configure sets the conversion
// resolution in bits and the full-scale reference in millivolts.
type Reader interface {
	Configure(bits uint8, refMilliV uint32) error
	Get() uint16
}

// ReaderFactory opens the analog input on a pin.
type ReaderFactory func(pin int) (Reader, bool)

type channel struct {
	cfg types.ADCChannel
	in  Reader
	raw uint16
}

type Driver struct {
	chans  []channel
	bits   uint8
	fullMV uint32
	scans  uint32
	done   func(*Driver)
}

var _ drivers.Sensor = (*Driver)(nil)

// Init configures every channel in cfg.
func Init(cfg types.ADCConfig, open ReaderFactory) (*Driver, error) {
	if cfg.Resolution == 0 || cfg.Resolution > 16 || cfg.VDDMilliV == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "adc.init"}
	}
	d := &Driver{
		chans:  make([]channel, len(cfg.Channels)),
		bits:   cfg.Resolution,
		fullMV: cfg.VDDMilliV,
		done:   func(*Driver) {},
	}
	for i, c := range cfg.Channels {
		in, ok := open(c.Pin)
		if !ok {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "adc.init", Msg: c.Name}
		}
		if err := in.Configure(cfg.Resolution, cfg.VDDMilliV); err != nil {
			return nil, errcode.Wrap(errcode.MapDriverErr(err), "adc.init", err)
		}
		d.chans[i] = channel{cfg: c, in: in}
	}
	return d, nil
}

// OnSample registers a callback run after each complete scan.
func (d *Driver) OnSample(fn func(*Driver)) {
	if fn == nil {
		fn = func(*Driver) {}
	}
	d.done = fn
}

// Sample reads every channel once.
func (d *Driver) Sample() {
	if d == nil {
		return
	}
	for i := range d.chans {
		d.chans[i].raw = d.chans[i].in.Get() >> (16 - d.bits)
	}
	d.scans++
	d.done(d)
}

// Update implements drivers.Sensor.
func (d *Driver) Update(which drivers.Measurement) error {
	if which&drivers.Voltage == 0 {
		return errcode.Unsupported
	}
	if d == nil {
		return errcode.NotInitialized
	}
	d.Sample()
	return nil
}

// Raw returns the last reading of ch in counts.
func (d *Driver) Raw(ch int) uint16 {
	if d == nil || ch < 0 || ch >= len(d.chans) {
		return 0
	}
	return d.chans[ch].raw
}

// Voltage returns the last reading of ch in microvolts.
func (d *Driver) Voltage(ch int) int32 {
	return mathx.ScaleCounts(d.Raw(ch), d.bits, d.fullMV)
}

// Real returns the last reading of ch in volts.
func (d *Driver) Real(ch int) float32 {
	return float32(d.Voltage(ch)) / 1e6
}

func (d *Driver) Count() int {
	if d == nil {
		return 0
	}
	return len(d.chans)
}

func (d *Driver) Name(ch int) string {
	if d == nil || ch < 0 || ch >= len(d.chans) {
		return ""
	}
	return d.chans[ch].cfg.Name
}

// Scans counts completed Sample calls.
func (d *Driver) Scans() uint32 { return d.scans }

// Snapshot copies the current readings.
func (d *Driver) Snapshot() types.ADCSample {
	s := types.ADCSample{
		Raw:    make([]uint16, len(d.chans)),
		MicroV: make([]int32, len(d.chans)),
	}
	for i := range d.chans {
		s.Raw[i] = d.Raw(i)
		s.MicroV[i] = d.Voltage(i)
	}
	return s
}
