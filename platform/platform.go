// Package platform binds the board drivers to the MCU peripherals, or to
// in-memory stand-ins on a host build.
package platform

import (
	"nrfbsp-go/drivers/adc"
	"nrfbsp-go/drivers/blep"
	"nrfbsp-go/drivers/gpio"
	"nrfbsp-go/drivers/uart"
	"nrfbsp-go/drivers/usbcdc"
	"nrfbsp-go/drivers/wdt"
	"nrfbsp-go/x/timex"
)

// Resources is everything the application needs from the board.
type Resources struct {
	Pins  gpio.Factory
	ADC   adc.ReaderFactory
	UART  uart.Port
	USB   usbcdc.Port
	BLE   blep.Stack
	Dog   wdt.Dog
	Clock timex.Clock
	Reset func()
	Sleep func(ms uint32)
}
