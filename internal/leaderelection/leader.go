// Package leaderelection makes sure only one quizrelay instance redelivers
// archived submissions at a time, using a Postgres advisory lock.
//
// The lock is session-scoped and held on a dedicated connection for as long
// as the duty runs; there is no TTL. If the connection dies, Postgres
// releases the lock server-side. The heartbeat ping only detects local
// connection death so the duty can stop promptly; it does not renew anything.
package leaderelection

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// RedeliveryLockKey is the advisory lock guarding the retrier.
const RedeliveryLockKey int64 = 0x71756978 // "quix"

const (
	DefaultRetryInterval     = 10 * time.Second
	DefaultHeartbeatInterval = 5 * time.Second
)

type MetricsSink interface {
	RedeliveryLeadershipChanged(held bool)
}

// Elector runs a duty only while it holds the lock.
type Elector struct {
	db                *sql.DB
	lockKey           int64
	retryInterval     time.Duration // how often a follower tries the lock
	heartbeatInterval time.Duration // how often the holder pings its connection
	metrics           MetricsSink   // optional, nil = disabled
}

func New(db *sql.DB, lockKey int64) *Elector {
	return &Elector{
		db:                db,
		lockKey:           lockKey,
		retryInterval:     DefaultRetryInterval,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
}

func (e *Elector) WithIntervals(retry, heartbeat time.Duration) *Elector {
	e.retryInterval = retry
	e.heartbeatInterval = heartbeat
	return e
}

func (e *Elector) WithMetrics(sink MetricsSink) *Elector {
	e.metrics = sink
	return e
}

// Run competes for the lock until ctx is cancelled. Each time the lock is
// won, duty runs with a context that is cancelled when the lock is lost;
// Run waits for duty to return before competing again.
func (e *Elector) Run(ctx context.Context, duty func(ctx context.Context)) {
	log.Printf("leader: starting election loop (lock_key=%d, retry=%s, heartbeat=%s)",
		e.lockKey, e.retryInterval, e.heartbeatInterval)

	for {
		if reason := e.runOnce(ctx, duty); reason != "" && ctx.Err() == nil {
			log.Printf("leader: lost lock (reason=%s), will retry in %s", reason, e.retryInterval)
		}

		select {
		case <-ctx.Done():
			log.Println("leader: election loop stopped")
			return
		case <-time.After(e.retryInterval):
		}
	}
}

// runOnce tries the lock and, when it is acquired, runs duty under it.
// Returns why the lock was given up, or "" if it was never held.
func (e *Elector) runOnce(ctx context.Context, duty func(ctx context.Context)) string {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("leader: failed to acquire dedicated connection: %v", err)
		}
		return ""
	}
	defer conn.Close()

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", e.lockKey).Scan(&acquired); err != nil {
		if ctx.Err() == nil {
			log.Printf("leader: advisory lock query failed: %v", err)
		}
		return ""
	}
	if !acquired {
		return ""
	}

	log.Printf("leader: acquired advisory lock %d", e.lockKey)
	e.setHeld(true)
	defer e.setHeld(false)

	dutyCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		duty(dutyCtx)
	}()

	reason := e.holdLock(ctx, conn, done)
	cancel()
	<-done

	// The connection goes back to the pool; the lock must not go with it.
	unlockCtx, unlockCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer unlockCancel()
	if _, err := conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock($1)", e.lockKey); err != nil {
		log.Printf("leader: advisory unlock failed: %v", err)
	}

	log.Printf("leader: released advisory lock %d", e.lockKey)
	return reason
}

// holdLock blocks while pinging the dedicated connection.
func (e *Elector) holdLock(ctx context.Context, conn *sql.Conn, done <-chan struct{}) string {
	ticker := time.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "shutdown"
		case <-done:
			return "duty_returned"
		case <-ticker.C:
			if err := conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return "shutdown"
				}
				log.Printf("leader: dedicated connection ping failed: %v", err)
				return "conn_lost"
			}
		}
	}
}

func (e *Elector) setHeld(held bool) {
	if e.metrics != nil {
		e.metrics.RedeliveryLeadershipChanged(held)
	}
}
