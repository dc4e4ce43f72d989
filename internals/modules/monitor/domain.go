package monitor

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeHTTP      Type = "http"
	TypeKeyword   Type = "keyword"
	TypePort      Type = "port"
	TypeDNS       Type = "dns"
	TypePing      Type = "ping"
	TypeHeartbeat Type = "heartbeat"
	TypeCronjob   Type = "cronjob"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

const (
	MinIntervalSec   = 30
	DefaultTimeoutMS = 10000
)

// Snapshot is the read-only view of a monitor used for one check cycle.
// The runner loads a fresh snapshot before every check, so edits made
// through the CRUD layer take effect on the next cycle without any
// coordination with the scheduler.
type Snapshot struct {
	ID     uuid.UUID
	TeamID uuid.UUID
	Name   string
	Type   Type
	Target string // URL for http/keyword, host for port/dns/ping

	// http / keyword
	Method         string
	Headers        map[string]string
	RequestBody    string
	ExpectedStatus int
	Keyword        string
	KeywordMode    string // contains | not_contains
	SSLCheck       bool

	// port
	Port     int
	Protocol string // tcp | udp

	// dns
	RecordType    string
	ExpectedValue string

	// passive types
	HeartbeatIntervalSec int
	CronExpr             string
	GraceSec             int
	LastHeartbeat        time.Time
	LastCronRun          time.Time

	IntervalSec int
	TimeoutMS   int
	AlertAfter  int

	// last SSL expiry threshold alerted for the current certificate,
	// zero when none has fired yet
	SSLNotifiedDay int

	Active            bool
	CurrentIncidentID *uuid.UUID
}

func (s Snapshot) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

func (s Snapshot) Timeout() time.Duration {
	if s.TimeoutMS <= 0 {
		return DefaultTimeoutMS * time.Millisecond
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// StatusUpdate carries the post-check fields persisted on the monitor row.
type StatusUpdate struct {
	Status     Status
	CheckedAt  time.Time
	ResponseMS int64
	LastError  string
	Failures   int

	// zero values leave the stored SSL fields untouched
	SSLExpiresAt time.Time
	SSLDaysLeft  int
}

// CheckRecord is one row of check history.
type CheckRecord struct {
	MonitorID  uuid.UUID
	Success    bool
	StatusCode int
	ResponseMS int64
	Error      string
	CheckedAt  time.Time
}

// CronRunAck is returned to a cronjob pinger so it knows when the next
// run is expected.
type CronRunAck struct {
	MonitorID       uuid.UUID `json:"monitor_id"`
	NextExpectedRun time.Time `json:"next_expected_run"`
}
