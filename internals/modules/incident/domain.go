package incident

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInvestigating Status = "investigating"
	StatusIdentified    Status = "identified"
	StatusMonitoring    Status = "monitoring"
	StatusResolved      Status = "resolved"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

type Origin string

const (
	OriginAuto   Origin = "auto"
	OriginManual Origin = "manual"
)

type TimelineEntry struct {
	Status  Status    `json:"status"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Author  string    `json:"author"`
}

type Incident struct {
	ID          uuid.UUID
	TeamID      uuid.UUID
	MonitorID   *uuid.UUID
	Title       string
	Description string
	Status      Status
	Severity    Severity
	Origin      Origin
	Timeline    []TimelineEntry
	StartedAt   time.Time
	ResolvedAt  *time.Time
	Duration    time.Duration
}
