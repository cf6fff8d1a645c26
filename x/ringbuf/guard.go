package ringbuf

// Guard brackets the short critical section used by override rings, where
// the producer and consumer both move tail.
type Guard interface {
	Enter() uintptr
	Exit(state uintptr)
}
