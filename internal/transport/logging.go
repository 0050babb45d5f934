package transport

import (
	"encoding/json"
	"fmt"

	applog "roomsweep/internal/log"
)

// LoggingTransport mirrors events into the structured log. It is the
// fallback monitor when nothing is connected, and what headless runs
// record.
type LoggingTransport struct{}

// NewLoggingTransport returns a ready transport; there is nothing to
// connect.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the event as the same JSON payload a connected monitor
// would receive.
func (lt *LoggingTransport) Send(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("transport: marshaling event: %w", err)
	}
	applog.Infof("event: %s", b)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
