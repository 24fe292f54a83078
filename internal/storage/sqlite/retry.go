package sqlite

import (
	"strings"
	"time"

	"github.com/parcelboard/mapcluster/internal/timeutil"
)

const (
	busyMaxRetries   = 5
	busyInitialDelay = 10 * time.Millisecond
)

// retryOnBusy retries fn with exponential backoff while SQLite reports
// a busy/locked error. Other errors fail immediately. Sleeps go through
// the clock so tests can run without real delays.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	delay := busyInitialDelay
	var err error
	for attempt := 0; attempt < busyMaxRetries; attempt++ {
		err = fn()
		if err == nil || !isBusyError(err) {
			return err
		}
		clock.Sleep(delay)
		delay *= 2
	}
	return err
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
