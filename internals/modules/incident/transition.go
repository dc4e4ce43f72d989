package incident

import (
	"time"

	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
)

// Transition describes one completed check from the state machine's point
// of view: the monitor it ran for, the status movement, and the failure
// streak after this check.
type Transition struct {
	MonitorID   uuid.UUID
	TeamID      uuid.UUID
	MonitorName string
	Target      string

	Previous monitor.Status
	Current  monitor.Status
	Failures int

	AlertAfter        int
	CurrentIncidentID *uuid.UUID

	Err string
	SSL *check.SSLInfo

	// last SSL threshold alerted for this certificate, zero for none
	SSLNotifiedDay int

	Now time.Time
}

// Actions is the state machine's verdict for one transition.
type Actions struct {
	OpenIncident    bool
	ResolveIncident bool

	SendDown     bool
	SendRecovery bool

	SendSSLExpiry    bool
	SSLDaysRemaining int
	ClearSSLMarker   bool
}

// SSL alerts fire on exact day matches, once per threshold: the day a
// cert sits at a threshold spans many checks, so the last-notified marker
// keeps repeats quiet until the next threshold. A renewal pushing the
// cert back above the widest threshold clears the marker.
var sslAlertDays = [...]int{30, 14, 7, 3, 1}

// Evaluate is a pure function of the transition; applying its actions is
// the engine's job. Both execution backends feed it the same way.
func Evaluate(t Transition) Actions {
	var acts Actions

	threshold := t.AlertAfter
	if threshold < 1 {
		threshold = 1
	}

	// Rule 1: down-alert trigger. Fires when the streak just crossed the
	// threshold, or when it is already past the threshold with no open
	// incident (catch-up after a restart swallowed the crossing).
	if t.Current == monitor.StatusDown {
		justCrossed := t.Failures == threshold
		missedOpen := t.Failures > threshold && t.CurrentIncidentID == nil
		if justCrossed || missedOpen {
			acts.OpenIncident = true
			acts.SendDown = true
		}
	}

	// Rule 2: recovery trigger.
	if statusChanged(t.Previous, t.Current) && t.Current == monitor.StatusUp && t.Previous == monitor.StatusDown {
		acts.ResolveIncident = true
		acts.SendRecovery = true
	}

	// Rule 3: SSL expiry, independent of up/down.
	if t.SSL != nil {
		for _, d := range sslAlertDays {
			if t.SSL.DaysRemaining == d && t.SSLNotifiedDay != d {
				acts.SendSSLExpiry = true
				acts.SSLDaysRemaining = d
				break
			}
		}
		if t.SSL.DaysRemaining > sslAlertDays[0] && t.SSLNotifiedDay != 0 {
			acts.ClearSSLMarker = true
		}
	}

	return acts
}

// statusChanged is false while the previous status is pending, so the very
// first check of a monitor's life never counts as a transition.
func statusChanged(prev, curr monitor.Status) bool {
	return prev != curr && prev != monitor.StatusPending
}
