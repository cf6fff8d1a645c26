package blep

import (
	"sync"

	"nrfbsp-go/errcode"
)

// FakeStack is an in-memory Stack. Tests and the host simulator act as the
// central through Connect, Disconnect and CentralWrite.
type FakeStack struct {
	mu        sync.Mutex
	services  []Service
	adv       AdvConfig
	advertise bool
	onConnect func(bool)
	notified  []byte
	busy      int // Notify calls to reject before accepting
	Stall     bool
	EnableErr error
}

func (f *FakeStack) Enable() error { return f.EnableErr }

func (f *FakeStack) AddService(svc Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.services {
		if s.UUID == svc.UUID {
			return errcode.AlreadyInitialized
		}
	}
	f.services = append(f.services, svc)
	return nil
}

func (f *FakeStack) ConfigureAdvertisement(cfg AdvConfig) error {
	f.mu.Lock()
	f.adv = cfg
	f.mu.Unlock()
	return nil
}

func (f *FakeStack) StartAdvertisement() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advertise {
		return errcode.Busy
	}
	f.advertise = true
	return nil
}

func (f *FakeStack) StopAdvertisement() error {
	f.mu.Lock()
	f.advertise = false
	f.mu.Unlock()
	return nil
}

func (f *FakeStack) Notify(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Stall {
		return 0, errcode.Busy
	}
	if f.busy > 0 {
		f.busy--
		return 0, errcode.Busy
	}
	f.notified = append(f.notified, p...)
	return len(p), nil
}

func (f *FakeStack) SetConnectHandler(fn func(bool)) {
	f.mu.Lock()
	f.onConnect = fn
	f.mu.Unlock()
}

// Connect simulates a central connecting; advertising stops.
func (f *FakeStack) Connect() {
	f.mu.Lock()
	f.advertise = false
	fn := f.onConnect
	f.mu.Unlock()
	if fn != nil {
		fn(true)
	}
}

func (f *FakeStack) Disconnect() {
	f.mu.Lock()
	fn := f.onConnect
	f.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}

// CentralWrite delivers p to the writable characteristic uuid.
func (f *FakeStack) CentralWrite(uuid string, p []byte) bool {
	f.mu.Lock()
	var fn func([]byte)
	for _, s := range f.services {
		for _, c := range s.Chars {
			if c.UUID == uuid && c.OnWrite != nil {
				fn = c.OnWrite
			}
		}
	}
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(p)
	return true
}

// BusyFor makes the next n Notify calls fail.
func (f *FakeStack) BusyFor(n int) {
	f.mu.Lock()
	f.busy = n
	f.mu.Unlock()
}

// Notified returns and clears notified bytes.
func (f *FakeStack) Notified() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.notified
	f.notified = nil
	return out
}

func (f *FakeStack) Advertising() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertise
}

func (f *FakeStack) Adv() AdvConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adv
}

func (f *FakeStack) Services() []Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Service(nil), f.services...)
}
