package types

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

// SerialStats is published retained on <port>/stats.
type SerialStats struct {
	RXBytes uint32
	TXBytes uint32
	RXDrops uint32
	TXDrops uint32
}
