package alert

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventDown      EventType = "down"
	EventUp        EventType = "up"
	EventSSLExpiry EventType = "ssl_expiry"
	EventIncident  EventType = "incident"
)

// Channel is the read model of a team's delivery target. The core treats
// it as an opaque destination; formatting and transport belong to the
// channel sender.
type Channel struct {
	ID      uuid.UUID
	TeamID  uuid.UUID
	Type    string // email, slack, discord, telegram, webhook
	Enabled bool

	NotifyDown      bool
	NotifyUp        bool
	NotifySSLExpiry bool
	NotifyIncident  bool

	CooldownMin int
}

func (c Channel) Subscribed(event EventType) bool {
	switch event {
	case EventDown:
		return c.NotifyDown
	case EventUp:
		return c.NotifyUp
	case EventSSLExpiry:
		return c.NotifySSLExpiry
	case EventIncident:
		return c.NotifyIncident
	default:
		return false
	}
}

func (c Channel) Cooldown() time.Duration {
	if c.CooldownMin <= 0 {
		return 0
	}
	return time.Duration(c.CooldownMin) * time.Minute
}

type Payload struct {
	MonitorID        uuid.UUID     `json:"monitor_id"`
	MonitorName      string        `json:"monitor_name"`
	Target           string        `json:"target"`
	Error            string        `json:"error,omitempty"`
	Downtime         time.Duration `json:"downtime,omitempty"`
	SSLDaysRemaining int           `json:"ssl_days_remaining,omitempty"`
}

type Event struct {
	TeamID  uuid.UUID
	Type    EventType
	Payload Payload
	At      time.Time
}
