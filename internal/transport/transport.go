// Package transport moves session events to whoever is watching: a
// WebSocket monitor, a UDP level meter, or just the structured log.
package transport

import "errors"

// Transport is a one-way event sink. Implementations must be safe for
// concurrent use and must never block the measurement that feeds them.
type Transport interface {
	Send(data any) error
	Close() error
}

// Fanout broadcasts every event to a fixed group of transports. A
// failing member does not stop delivery to the others.
type Fanout []Transport

// Send delivers data to every member and joins whatever errors came
// back.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member, joining errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

var _ Transport = (Fanout)(nil)
