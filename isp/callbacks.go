package isp

import "time"

// Progress contains information about the update progress.
// Passed to ProgressCallback during UpdateFirmware.
type Progress struct {
	// State is the session state when the snapshot was taken
	State State

	// PayloadSent is the number of bytes acknowledged by the sink, plus the
	// synthesized install progress
	PayloadSent uint32

	// Processed counts the same bytes as PayloadSent and is the value
	// bounded by Total
	Processed uint32

	// Total is the expected amount of work: ISP driver, streamed sections
	// and the flash programming allowance
	Total uint32

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the update started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every chunk acknowledgement, every install
// poll and on completion. Implementations should return quickly; the AUX
// link is idle while the callback runs.
//
// Example:
//
//	sess := isp.New(dev,
//	    isp.WithProgressCallback(func(p isp.Progress) {
//	        fmt.Printf("\r[%s] %5.1f%%", p.State, p.Percentage)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the session.
// This allows integration with any logging framework.
//
// Example with glog:
//
//	type glogLogger struct{}
//	func (glogLogger) Debug(msg string, kv ...interface{}) { glog.V(1).Infoln(msg, kv) }
//	func (glogLogger) Info(msg string, kv ...interface{})  { glog.Infoln(msg, kv) }
//	func (glogLogger) Error(msg string, kv ...interface{}) { glog.Errorln(msg, kv) }
//
//	sess := isp.New(dev, isp.WithLogger(glogLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
