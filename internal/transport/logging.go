package transport

import (
	applog "binterp/internal/log"
)

// LoggingTransport is a stand-in sink that logs instead of transmitting.
// Useful when no network transport is configured.
type LoggingTransport struct{}

// NewLoggingTransport creates a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("transport: using logging transport")
	return &LoggingTransport{}
}

// Send drops the payload after noting it at debug level.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("transport: discarding payload (%T)", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
