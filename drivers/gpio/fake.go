package gpio

import (
	"sync"

	"nrfbsp-go/types"
)

// FakePin is an in-memory pin for host builds and tests.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	output  bool
	pull    types.Pull
	configs int
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(pull types.Pull) error {
	p.mu.Lock()
	p.output = false
	p.pull = pull
	// A pulled-up input idles high.
	p.level = pull == types.PullUp
	p.configs++
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output = true
	p.level = initial
	p.configs++
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Toggle() {
	p.mu.Lock()
	p.level = !p.level
	p.mu.Unlock()
}

func (p *FakePin) Number() int { return p.number }

// IsOutput reports the last configured direction.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.output
}

// Configs counts Configure* calls.
func (p *FakePin) Configs() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.configs
}

// FakeFactory returns stable *FakePin instances per number.
type FakeFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func NewFakeFactory() *FakeFactory { return &FakeFactory{pins: make(map[int]*FakePin)} }

func (f *FakeFactory) ByNumber(n int) (Pin, bool) {
	if n < 0 || n >= 48 {
		return nil, false
	}
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin so tests can drive inputs.
func (f *FakeFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = NewFakePin(n)
		f.pins[n] = p
	}
	return p
}
