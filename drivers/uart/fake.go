package uart

import (
	"sync"

	"nrfbsp-go/errcode"
)

// Loopback is a host Port: bytes written come back as received bytes.
// Inject adds received bytes directly.
type Loopback struct {
	mu      sync.Mutex
	in      []byte
	Echo    bool
	Written []byte
	Baud    uint32
}

func (l *Loopback) Configure(baud uint32, _, _ int) error {
	if baud == 0 {
		return errcode.InvalidParams
	}
	l.Baud = baud
	return nil
}

func (l *Loopback) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.in)
}

func (l *Loopback) ReadByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.in) == 0 {
		return 0, errcode.Empty
	}
	b := l.in[0]
	l.in = l.in[1:]
	return b, nil
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Written = append(l.Written, p...)
	if l.Echo {
		l.in = append(l.in, p...)
	}
	return len(p), nil
}

func (l *Loopback) Inject(p []byte) {
	l.mu.Lock()
	l.in = append(l.in, p...)
	l.mu.Unlock()
}
