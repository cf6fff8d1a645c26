//go:build nrf52840

package ringbuf

import "runtime/interrupt"

// irqGuard masks interrupts; ISR producers cannot take a mutex.
type irqGuard struct{}

func (irqGuard) Enter() uintptr     { return uintptr(interrupt.Disable()) }
func (irqGuard) Exit(state uintptr) { interrupt.Restore(interrupt.State(state)) }

func newGuard() Guard { return irqGuard{} }
