//go:build linux

package tracer

import "golang.org/x/sys/unix"

// currentThreadID returns the OS thread running the callback.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
