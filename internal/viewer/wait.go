package viewer

import (
	"context"
	"errors"
	"time"
)

// settlePoll is how often WaitSettled samples the scheduler.
const settlePoll = 10 * time.Millisecond

// WaitSettled blocks until no debounced request or fetch is outstanding and
// returns the frame at that point. If the last fetch failed the frame is
// returned together with that error.
func (v *Viewer) WaitSettled(ctx context.Context) (Frame, error) {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		v.mu.Lock()
		err := v.readyLocked()
		var f Frame
		if err == nil {
			f = v.frameLocked()
			err = v.sched.Err()
		}
		v.mu.Unlock()
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrNotReady) {
			return Frame{}, err
		}
		if !f.Loading {
			return f, err
		}
		select {
		case <-ctx.Done():
			return f, ctx.Err()
		case <-ticker.C:
		}
	}
}
