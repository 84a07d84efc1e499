//go:build !linux

package tracer

import "os"

// currentThreadID falls back to the process id where thread ids are not
// exposed through x/sys.
func currentThreadID() uint64 {
	return uint64(os.Getpid())
}
