package mathx

import "golang.org/x/exp/constraints"

// RoundDiv returns floor((a + b/2)/b), rounding for non-negative operands.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// ScaleCounts converts an ADC reading to microvolts: counts/2^bits of
// fullScaleMilliV, rounded.
func ScaleCounts(counts uint16, bits uint8, fullScaleMilliV uint32) int32 {
	if bits == 0 || bits > 16 {
		return 0
	}
	num := uint64(counts) * uint64(fullScaleMilliV) * 1000
	return int32(RoundDiv(num, uint64(1)<<bits))
}
