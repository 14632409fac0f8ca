// Package lifecycle guards the start and close of long-lived components so that each happens once.
package lifecycle

import (
	"sync"

	"github.com/ugparu/vkvideo/utils/logger"
)

// Instance is a component whose resources are released by Close_.
type Instance interface {
	Close_() //nolint:revive
	String() string
}

type Manager[T Instance] interface {
	Start(func(T) error) error
	Close()
	// Closed is closed once Close has released the instance.
	Closed() <-chan struct{}
}

type StartedAlreadyError struct{}

func (*StartedAlreadyError) Error() string {
	return "started already"
}

type StartedAfterCloseError struct{}

func (*StartedAfterCloseError) Error() string {
	return "start after close"
}

type manager[T Instance] struct {
	instance  T
	startOnce sync.Once
	closeOnce sync.Once
	closeChan chan struct{}
}

// NewDefaultManager returns a Manager that runs the start function at most once and refuses to
// start after Close.
func NewDefaultManager[T Instance](instance T) Manager[T] {
	return &manager[T]{
		instance:  instance,
		closeChan: make(chan struct{}),
	}
}

func (m *manager[T]) Start(startFunc func(T) error) (err error) {
	select {
	case <-m.closeChan:
		return &StartedAfterCloseError{}
	default:
		err = &StartedAlreadyError{}
	}
	m.startOnce.Do(func() {
		logger.Debugf(m.instance, "Starting")
		if err = startFunc(m.instance); err != nil {
			logger.Warningf(m.instance, "Start failed: %v", err)
		}
	})
	return err
}

func (m *manager[T]) Close() {
	m.closeOnce.Do(func() {
		// A manager closed before Start must not start later.
		m.startOnce.Do(func() {})
		m.instance.Close_()
		close(m.closeChan)
		logger.Debugf(m.instance, "Closed")
	})
}

func (m *manager[T]) Closed() <-chan struct{} {
	return m.closeChan
}
