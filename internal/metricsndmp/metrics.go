// Package metricsndmp provides observability for the NDMP server: request
// throughput, DATA/MOVER state transitions, bytes moved to/from tape, and
// notify traffic. Metrics are an optional interface, and passing nil
// disables collection with zero overhead.
package metricsndmp

import "time"

// Metrics is implemented by the Prometheus-backed collector. Passing nil
// wherever Metrics is accepted disables collection entirely.
type Metrics interface {
	// RecordRequest records one completed NDMP control message.
	//
	//   - messageCode: the NDMP message, e.g. "DATA_START_BACKUP"
	//   - duration: time spent in the dispatch handler
	//   - errorCode: the NDMP error code name, e.g. "NDMP_NO_ERR"
	RecordRequest(messageCode string, duration time.Duration, errorCode string)

	// RecordSessionOpened/RecordSessionClosed track live control
	// connections.
	RecordSessionOpened()
	RecordSessionClosed()

	// RecordDataState records a DATA subsystem state transition.
	RecordDataState(state string)

	// RecordMoverState records a MOVER subsystem state transition.
	RecordMoverState(state string)

	// RecordBytesMoved records bytes MOVER has written to or read from
	// tape. direction is "read" or "write".
	RecordBytesMoved(direction string, bytes uint64)

	// RecordTapeFlush records one tape.Device.Flush call's duration and
	// outcome.
	RecordTapeFlush(duration time.Duration, err error)

	// RecordNotify records one unsolicited notify message sent to the
	// DMA, e.g. "NOTIFY_DATA_HALTED".
	RecordNotify(messageCode string)
}
