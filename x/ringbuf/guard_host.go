//go:build !nrf52840

package ringbuf

import "sync"

type mutexGuard struct{ mu sync.Mutex }

func (g *mutexGuard) Enter() uintptr { g.mu.Lock(); return 0 }
func (g *mutexGuard) Exit(uintptr)   { g.mu.Unlock() }

func newGuard() Guard { return &mutexGuard{} }
