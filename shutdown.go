package pushgate

import (
	"context"
	"sync"
)

// ShutdownSignal marks the completion of a client's shutdown. It fires
// exactly once per client, no matter how many times Close is called; every
// caller observes the same signal. A shutdown-path failure completes the
// signal with an error rather than leaving it hanging.
type ShutdownSignal struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{
		done: make(chan struct{}),
	}
}

// complete fires the signal. Later calls are no-ops.
func (s *ShutdownSignal) complete(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done returns a channel closed when shutdown has finished.
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.done
}

// Err returns the shutdown error, or nil. It returns nil while shutdown is
// still in progress; wait on Done first for a settled answer.
func (s *ShutdownSignal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until shutdown finishes or ctx is done.
func (s *ShutdownSignal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
