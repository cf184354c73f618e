// Package goroutineid reports the ID of the calling goroutine. The engine
// host uses it to detect calls made from its own event loop goroutine, which
// must run inline instead of being posted back to the loop.
package goroutineid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// Get returns the current goroutine ID, or 0 if it cannot be determined.
func Get() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

// parse extracts the ID from the "goroutine N [state]:" stack header.
func parse(stack []byte) int64 {
	rest, ok := bytes.CutPrefix(stack, prefix)
	if !ok {
		return 0
	}
	end := bytes.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0
	}
	if end > 0 {
		rest = rest[:end]
	}
	id, err := strconv.ParseInt(string(rest), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
