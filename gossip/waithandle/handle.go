// Package waithandle implements the wait handle described in spec §9: an
// opaque, awaitable completion signal distinct from the value it guards.
// Two nominally distinct types, Schedule and Download, exist purely so
// callers cannot accidentally await the wrong completion (spec §9
// "Tagged completion channels").
package waithandle

import "context"

// Handle is a one-shot completion signal carrying an error (nil on
// success).
type Handle struct {
	done chan struct{}
	err  error
}

// New returns a Handle that has not yet completed.
func New() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done returns an already-complete Handle carrying err.
func Done(err error) *Handle {
	h := &Handle{done: make(chan struct{}), err: err}
	close(h.done)
	return h
}

// Complete marks the handle done with err. Calling Complete more than
// once on the same Handle is a programming error and panics, matching
// the spec's "completed exactly once" requirement.
func (h *Handle) Complete(err error) {
	select {
	case <-h.done:
		panic("waithandle: Handle completed twice")
	default:
	}
	h.err = err
	close(h.done)
}

// Wait blocks until the handle completes or ctx is cancelled, whichever
// comes first.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the handle has already completed, and if so its
// error.
func (h *Handle) Ready() (done bool, err error) {
	select {
	case <-h.done:
		return true, h.err
	default:
		return false, nil
	}
}

// ScheduleHandle is the completion signal for the scheduling step of
// ScheduleDownload: did the item enter the queue (spec §4.2).
type ScheduleHandle struct{ *Handle }

// DownloadHandle is the completion signal for the download itself: did
// the block eventually land (spec §4.2).
type DownloadHandle struct{ *Handle }

// NewScheduleHandle returns a not-yet-complete ScheduleHandle.
func NewScheduleHandle() ScheduleHandle { return ScheduleHandle{New()} }

// NewDownloadHandle returns a not-yet-complete DownloadHandle.
func NewDownloadHandle() DownloadHandle { return DownloadHandle{New()} }

// DoneDownloadHandle returns an already-complete DownloadHandle.
func DoneDownloadHandle(err error) DownloadHandle { return DownloadHandle{Done(err)} }
