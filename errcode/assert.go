package errcode

// panicHook runs on a failed assertion in debug builds.
var panicHook = func(op string) {
	println("[assert] failed:", op)
}

// SetPanicHook installs the handler run by Assert on failure. The board
// application installs one that never returns (LED panic pattern).
func SetPanicHook(fn func(op string)) {
	if fn == nil {
		fn = func(string) {}
	}
	panicHook = fn
}

// Assert calls the panic hook when cond is false and assertions are
// enabled (-tags debug). Release builds compile it to nothing.
func Assert(cond bool, op string) {
	if assertEnabled && !cond {
		panicHook(op)
	}
}
