package eventlog

import (
	"context"
	"time"
)

// WaitForAppend blocks until a new append occurs, timeout elapses or ctx is
// done. It returns true only if woken by an append. A non-positive timeout
// waits for the append or ctx alone.
func (l *Log) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	l.mu.Lock()
	ch := l.notifyCh
	l.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ch:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}
