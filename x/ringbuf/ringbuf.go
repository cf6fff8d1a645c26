// Package ringbuf is a fixed-capacity single-producer/single-consumer queue of
// fixed-size items over caller-owned memory. Drivers use one instance per
// direction: an interrupt handler produces and the main loop consumes (RX), or
// the reverse (TX).
package ringbuf

import (
	"math"
	"sync/atomic"

	"nrfbsp-go/errcode"
)

// Attr describes a ring at Init time.
type Attr struct {
	Name     string
	ItemSize int    // bytes per item, > 0
	Override bool   // on full, overwrite the oldest item instead of failing
	Mem      []byte // backing store, len >= capacity*ItemSize
}

// size returns capacity*itemSize, or false when either is non-positive or the
// product does not fit the uint32 slot arithmetic or an int.
func size(capacity, itemSize int) (int, bool) {
	if capacity < 1 || itemSize < 1 {
		return 0, false
	}
	if capacity > math.MaxInt/itemSize || uint64(capacity)*uint64(itemSize) > math.MaxUint32 {
		return 0, false
	}
	return capacity * itemSize, true
}

// Ring is a single-producer, single-consumer item ring.
//
// Without override the producer only writes head and the consumer only
// writes tail; count is published last on both sides so a concurrent peer
// never observes a slot before its data copy is complete. With override the
// producer also moves tail, so both sides enter the guard.
type Ring struct {
	mem      []byte
	itemSize uint32
	capacity uint32

	head  atomic.Uint32 // next write slot (producer)
	tail  atomic.Uint32 // next read slot (consumer)
	count atomic.Uint32

	overwritten atomic.Uint32

	override bool
	name     string
	guard    Guard
	ready    atomic.Bool
}

// New allocates a Ring and, when attr.Mem is nil, its backing store, then
// initialises it. Drivers own their storage and call Init instead.
func New(capacity int, attr Attr) (*Ring, error) {
	r := &Ring{}
	if attr.Mem == nil {
		need, ok := size(capacity, attr.ItemSize)
		if !ok {
			return nil, errcode.InvalidParams
		}
		attr.Mem = make([]byte, need)
	}
	if err := r.Init(capacity, attr); err != nil {
		return nil, err
	}
	return r, nil
}

// Init prepares r over the caller's attr.Mem. It never allocates. It fails
// with AlreadyInitialized on a second call and with InvalidParams on a bad
// capacity, item size or backing store.
func (r *Ring) Init(capacity int, attr Attr) error {
	if r.ready.Load() {
		return errcode.AlreadyInitialized
	}
	need, ok := size(capacity, attr.ItemSize)
	mem := attr.Mem
	if !ok || len(mem) < need {
		return errcode.InvalidParams
	}

	r.mem = mem[:need]
	r.itemSize = uint32(attr.ItemSize)
	r.capacity = uint32(capacity)
	r.override = attr.Override
	r.name = attr.Name
	r.head.Store(0)
	r.tail.Store(0)
	r.count.Store(0)
	if r.guard == nil {
		r.guard = newGuard()
	}
	r.ready.Store(true)
	return nil
}

// SetGuard replaces the critical-section primitive used in override mode.
// Call before Init.
func (r *Ring) SetGuard(g Guard) { r.guard = g }

func (r *Ring) next(i uint32) uint32 {
	i++
	if i == r.capacity {
		return 0
	}
	return i
}

func (r *Ring) slot(i uint32) []byte {
	off := i * r.itemSize
	return r.mem[off : off+r.itemSize]
}

// ---- Producer side ----

// Add copies ItemSize bytes from item into the ring.
func (r *Ring) Add(item []byte) error {
	if !r.ready.Load() {
		return errcode.NotInitialized
	}
	if uint32(len(item)) < r.itemSize {
		return errcode.InvalidParams
	}
	if r.override {
		s := r.guard.Enter()
		r.addOverwrite(item)
		r.guard.Exit(s)
		return nil
	}
	if r.count.Load() >= r.capacity {
		return errcode.Full
	}
	h := r.head.Load()
	copy(r.slot(h), item[:r.itemSize])
	r.head.Store(r.next(h))
	r.count.Add(1) // publish
	return nil
}

// AddByte is Add for rings of one-byte items.
func (r *Ring) AddByte(b byte) error {
	if !r.ready.Load() {
		return errcode.NotInitialized
	}
	if r.itemSize != 1 {
		return errcode.InvalidParams
	}
	if r.override {
		one := [1]byte{b}
		s := r.guard.Enter()
		r.addOverwrite(one[:])
		r.guard.Exit(s)
		return nil
	}
	if r.count.Load() >= r.capacity {
		return errcode.Full
	}
	h := r.head.Load()
	r.mem[h] = b
	r.head.Store(r.next(h))
	r.count.Add(1)
	return nil
}

// addOverwrite must run inside the guard.
func (r *Ring) addOverwrite(item []byte) {
	if r.count.Load() >= r.capacity {
		// Drop oldest, keep newest.
		r.tail.Store(r.next(r.tail.Load()))
		r.count.Add(^uint32(0))
		r.overwritten.Add(1)
	}
	h := r.head.Load()
	copy(r.slot(h), item[:r.itemSize])
	r.head.Store(r.next(h))
	r.count.Add(1)
}

// ---- Consumer side ----

// Get copies the oldest item into out and removes it. On failure out is
// left untouched.
func (r *Ring) Get(out []byte) error {
	if !r.ready.Load() {
		return errcode.NotInitialized
	}
	if uint32(len(out)) < r.itemSize {
		return errcode.InvalidParams
	}
	if r.override {
		s := r.guard.Enter()
		err := r.take(out, true)
		r.guard.Exit(s)
		return err
	}
	return r.take(out, true)
}

// GetByte is Get for rings of one-byte items.
func (r *Ring) GetByte() (byte, error) {
	if r.itemSize != 1 && r.ready.Load() {
		return 0, errcode.InvalidParams
	}
	var b [1]byte
	if err := r.Get(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Peek copies the oldest item into out without removing it.
func (r *Ring) Peek(out []byte) error {
	if !r.ready.Load() {
		return errcode.NotInitialized
	}
	if uint32(len(out)) < r.itemSize {
		return errcode.InvalidParams
	}
	if r.override {
		s := r.guard.Enter()
		err := r.take(out, false)
		r.guard.Exit(s)
		return err
	}
	return r.take(out, false)
}

func (r *Ring) take(out []byte, consume bool) error {
	if r.count.Load() == 0 {
		return errcode.Empty
	}
	t := r.tail.Load()
	copy(out[:r.itemSize], r.slot(t))
	if consume {
		r.tail.Store(r.next(t))
		r.count.Add(^uint32(0)) // release slot
	}
	return nil
}

// ---- Introspection ----

func (r *Ring) Name() string     { return r.name }
func (r *Ring) IsInit() bool     { return r.ready.Load() }
func (r *Ring) Capacity() int    { return int(r.capacity) }
func (r *Ring) ItemSize() int    { return int(r.itemSize) }
func (r *Ring) Count() int       { return int(r.count.Load()) }
func (r *Ring) Free() int        { return int(r.capacity - r.count.Load()) }
func (r *Ring) IsEmpty() bool    { return r.count.Load() == 0 }
func (r *Ring) IsFull() bool     { return r.count.Load() >= r.capacity }
func (r *Ring) Overwritten() int { return int(r.overwritten.Load()) }

// Clear drops all items. Both sides must be idle.
func (r *Ring) Clear() error {
	if !r.ready.Load() {
		return errcode.NotInitialized
	}
	s := r.guard.Enter()
	r.head.Store(0)
	r.tail.Store(0)
	r.count.Store(0)
	r.guard.Exit(s)
	return nil
}
