//go:build !debug

package errcode

const assertEnabled = false
