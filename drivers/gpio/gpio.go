// Package gpio defines the pin abstraction the board drivers are written
// against, plus the nRF52840 DK pin map.
package gpio

import "nrfbsp-go/types"

type Pin interface {
	ConfigureInput(pull types.Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Factory supplies pins by PinNum.
type Factory interface {
	ByNumber(n int) (Pin, bool)
}

// PinNum flattens an nRF (port, pin) pair: P1.02 is 34.
func PinNum(port, pin int) int { return port*32 + pin }

// Board pin map.
var (
	AIN1 = PinNum(0, 3)
	AIN2 = PinNum(0, 4)
	AIN3 = PinNum(0, 5)
	AIN4 = PinNum(0, 28)
	AIN5 = PinNum(0, 29)
	AIN6 = PinNum(0, 30)
	AIN7 = PinNum(0, 31)

	DbgTX = PinNum(0, 6)
	DbgRX = PinNum(0, 8)

	BTN1 = PinNum(0, 11)
	BTN2 = PinNum(0, 12)
	BTN3 = PinNum(0, 24)
	BTN4 = PinNum(0, 25)

	LED1 = PinNum(0, 13)
	LED2 = PinNum(0, 14)
	LED3 = PinNum(0, 15)
	LED4 = PinNum(0, 16)

	UART1RX = PinNum(1, 1)
	UART1TX = PinNum(1, 2)
)

// Name renders a pin number as "P<port>.<pin>".
func Name(n int) string {
	port, pin := n/32, n%32
	s := "P" + string(rune('0'+port)) + "."
	if pin < 10 {
		s += "0"
	}
	return s + itoa(pin)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var b [4]byte
	i := len(b)
	for v > 0 && i > 0 {
		i--
		b[i] = byte('0' + v%10)
		v /= 10
	}
	return string(b[i:])
}
