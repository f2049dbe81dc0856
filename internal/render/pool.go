package render

import (
	"time"

	"sjsage522/carlistingworker/internal/metrics"
	"sjsage522/carlistingworker/logger"
	apperrors "sjsage522/carlistingworker/pkg/errors"
)

// Pool is a fixed-capacity collection of sessions with lease semantics.
// The free channel is the only synchronization: a session is either queued
// there or held by exactly one task, so leases can never exceed capacity.
type Pool struct {
	free     chan Session
	capacity int
	factory  Factory
	log      *logger.Logger
}

// NewPool creates capacity sessions eagerly. A session that fails to start
// is tolerated and shrinks the effective capacity instead of failing the run.
func NewPool(capacity int, factory Factory) *Pool {
	p := &Pool{
		free:    make(chan Session, capacity),
		factory: factory,
		log:     logger.ForPool(),
	}

	for i := 0; i < capacity; i++ {
		session, err := factory()
		if err != nil {
			p.log.Warn().Err(err).Int("slot", i).Msg("Failed to create session, pool shrinks")
			continue
		}
		p.free <- session
		p.capacity++
	}

	p.log.Info().Int("capacity", p.capacity).Int("requested", capacity).Msg("Session pool ready")
	return p
}

// Capacity returns the number of sessions that actually started.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Acquire leases a free session, blocking up to timeout.
func (p *Pool) Acquire(timeout time.Duration) (Session, error) {
	select {
	case session := <-p.free:
		metrics.LeasedSessions.Inc()
		return session, nil
	case <-time.After(timeout):
		return nil, apperrors.NewPoolExhausted("pool", timeout)
	}
}

// Release returns a leased session to the free set. The session is
// liveness-checked first; a dead session is discarded and the pool attempts
// one replacement. Failure to replace shrinks the pool permanently.
func (p *Pool) Release(session Session) {
	metrics.LeasedSessions.Dec()

	if session.Alive() {
		p.free <- session
		return
	}

	p.log.Warn().Msg("Session failed liveness check, replacing")
	session.Close()

	replacement, err := p.factory()
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to create replacement session, pool shrinks")
		return
	}
	p.free <- replacement
}

// Drain closes every session still in the pool, best-effort.
// Called exactly once, after all tasks have returned their leases.
func (p *Pool) Drain() {
	for {
		select {
		case session := <-p.free:
			if err := session.Close(); err != nil {
				p.log.Debug().Err(err).Msg("Session close failed during drain")
			}
		default:
			return
		}
	}
}
