package collector

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/lib/pq"
)

// MetricError reports which catalog query failed for an application.
type MetricError struct {
	Metric string
	Schema string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric %s on schema %s: %v", e.Metric, e.Schema, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// pqConnectionException is the SQLSTATE class for connection failures.
const pqConnectionException = "08"

// isFatal reports whether err ends the whole pass rather than one
// application: cancellation or a lost connection to the store.
func isFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == pqConnectionException {
		return true
	}
	return false
}
