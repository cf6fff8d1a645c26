package mathx

import "math"

// LPFAlpha returns the smoothing factor of a first-order IIR low-pass
// y += alpha*(x-y) sampled every dt seconds with cutoff fc Hz.
func LPFAlpha(fc, dt float32) float32 {
	if fc <= 0 || dt <= 0 {
		return 1
	}
	tau := 1 / (2 * math.Pi * fc)
	return dt / (tau + dt)
}

// LPF is a first-order IIR low-pass filter.
type LPF struct {
	Alpha float32
	Y     float32
}

func (f *LPF) Update(x float32) float32 {
	f.Y += f.Alpha * (x - f.Y)
	return f.Y
}

func (f *LPF) Reset(y float32) { f.Y = y }
