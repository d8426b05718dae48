package errtracker

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Tracker receives errors that should be investigated but must not abort
// the operation that produced them.
type Tracker interface {
	CaptureException(err error)
}

// Init configures error tracking. With an empty DSN it returns a no-op
// tracker so callers never need to nil-check. The returned flush function
// should run on shutdown.
func Init(dsn string) (Tracker, func(), error) {
	if dsn == "" {
		return noopTracker{}, func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{Dsn: dsn})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init sentry: %w", err)
	}

	flush := func() { sentry.Flush(2 * time.Second) }
	return sentryTracker{}, flush, nil
}

type sentryTracker struct{}

func (sentryTracker) CaptureException(err error) {
	sentry.CaptureException(err)
}

type noopTracker struct{}

func (noopTracker) CaptureException(error) {}
