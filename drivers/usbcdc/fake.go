package usbcdc

import (
	"sync"

	"nrfbsp-go/errcode"
)

// FakePort is a host CDC endpoint. Accept limits how many bytes each Write
// takes (negative = unlimited) to emulate a stalled host.
type FakePort struct {
	mu      sync.Mutex
	in      []byte
	out     []byte
	open    bool
	plugged bool
	Accept  int
}

func NewFakePort() *FakePort { return &FakePort{plugged: true, Accept: -1} }

func (f *FakePort) SetOpen(v bool) {
	f.mu.Lock()
	f.open = v
	f.mu.Unlock()
}

func (f *FakePort) SetPlugged(v bool) {
	f.mu.Lock()
	f.plugged = v
	f.mu.Unlock()
}

func (f *FakePort) Plugged() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plugged
}

func (f *FakePort) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *FakePort) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.in)
}

func (f *FakePort) ReadByte() (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.in) == 0 {
		return 0, errcode.Empty
	}
	b := f.in[0]
	f.in = f.in[1:]
	return b, nil
}

func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(p)
	if f.Accept >= 0 && n > f.Accept {
		n = f.Accept
	}
	f.out = append(f.out, p[:n]...)
	return n, nil
}

// Type queues bytes as if typed by the host.
func (f *FakePort) Type(s string) {
	f.mu.Lock()
	f.in = append(f.in, s...)
	f.mu.Unlock()
}

// Output returns and clears everything written so far.
func (f *FakePort) Output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := string(f.out)
	f.out = f.out[:0]
	return s
}

func (f *FakePort) SetAccept(n int) {
	f.mu.Lock()
	f.Accept = n
	f.mu.Unlock()
}
