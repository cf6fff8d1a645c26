package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// ElapsedMs is now-since on a free-running uint32 millisecond counter; it
// stays correct across one wrap.
func ElapsedMs(now, since uint32) uint32 { return now - since }

// Due reports whether period ms have passed since last.
func Due(now, last, period uint32) bool { return ElapsedMs(now, last) >= period }

// Clock is a monotonic millisecond source.
type Clock interface {
	NowMs() uint32
}

// SysClock counts from its creation using the runtime monotonic clock.
type SysClock struct{ start time.Time }

func NewSysClock() *SysClock { return &SysClock{start: time.Now()} }

func (c *SysClock) NowMs() uint32 { return uint32(time.Since(c.start).Milliseconds()) }

// FakeClock is advanced by hand in tests and the simulator.
type FakeClock struct{ Ms uint32 }

func (c *FakeClock) NowMs() uint32     { return c.Ms }
func (c *FakeClock) Advance(ms uint32) { c.Ms += ms }
