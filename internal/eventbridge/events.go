// Package eventbridge lets signroll instances sharing one slot database tell
// each other the table changed. Every instance also polls the slot revision,
// so a lost notification only delays a refresh.
package eventbridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the currently supported inbound event version.
	EventSchemaVersion = 1
	// TypeSlotChanged announces a committed write to a slot.
	TypeSlotChanged = "slot_changed"
)

// Event is a single change notification.
type Event struct {
	Version    int       `json:"version"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	Revision   int64     `json:"revision"`
	Origin     string    `json:"origin"`
	ClientTime time.Time `json:"client_time"`
	ServerTime time.Time `json:"server_time"`
}

// Normalize applies defaults and canonical formatting before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.Key = strings.TrimSpace(e.Key)
	e.Origin = strings.TrimSpace(e.Origin)
}

// StampServerTime overwrites ServerTime with the supplied clock reading (UTC).
func (e *Event) StampServerTime(now time.Time) {
	if e == nil {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.ServerTime = now.UTC()
}

// Validate enforces baseline schema requirements for incoming events.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.Type != TypeSlotChanged {
		return fmt.Errorf("type %q not supported", e.Type)
	}
	if e.Key == "" {
		return errors.New("key is required")
	}
	if e.Revision < 0 {
		return errors.New("revision must not be negative")
	}
	if e.Origin == "" {
		return errors.New("origin is required")
	}
	return nil
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

// EventProcessorFunc adapts a function into an EventProcessor.
type EventProcessorFunc func(Event) error

// HandleEvent executes f(e).
func (f EventProcessorFunc) HandleEvent(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// RosterStatus is the public view of the table served on GET /roster.
// Names and flags only.
type RosterStatus struct {
	Unsigned []string `json:"unsigned"`
	Complete bool     `json:"complete"`
	Revision int64    `json:"revision"`
}

// StatusProvider reports the current roster status.
type StatusProvider interface {
	RosterStatus(ctx context.Context) (RosterStatus, error)
}

// StatusProviderFunc adapts a function into a StatusProvider.
type StatusProviderFunc func(ctx context.Context) (RosterStatus, error)

// RosterStatus executes f(ctx).
func (f StatusProviderFunc) RosterStatus(ctx context.Context) (RosterStatus, error) {
	return f(ctx)
}

// Logger records bridge status information. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
