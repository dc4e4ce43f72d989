package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type channelState struct {
	lastAlertAt time.Time
	prevAlertAt time.Time
	sent        int64
	lastError   string
}

// CooldownGate throttles repeated notifications per channel. A suppressed
// send leaves lastAlertAt untouched so the window is measured from the
// last delivery attempt, not the last request.
type CooldownGate struct {
	mu              sync.Mutex
	defaultCooldown time.Duration
	channels        map[uuid.UUID]*channelState
}

func NewCooldownGate(defaultCooldown time.Duration) *CooldownGate {
	if defaultCooldown <= 0 {
		defaultCooldown = 5 * time.Minute
	}
	return &CooldownGate{
		defaultCooldown: defaultCooldown,
		channels:        make(map[uuid.UUID]*channelState),
	}
}

// Allow reports whether a send to the channel is permitted at now. A
// permitted call reserves the window immediately, so concurrent workers
// racing on the same channel cannot both pass; the caller settles the
// reservation with MarkSent on delivery or MarkFailed to release it.
func (g *CooldownGate) Allow(channelID uuid.UUID, cooldown time.Duration, now time.Time) bool {
	if cooldown <= 0 {
		cooldown = g.defaultCooldown
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(channelID)
	if !st.lastAlertAt.IsZero() && now.Sub(st.lastAlertAt) < cooldown {
		return false
	}
	st.prevAlertAt = st.lastAlertAt
	st.lastAlertAt = now
	return true
}

func (g *CooldownGate) MarkSent(channelID uuid.UUID, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(channelID)
	st.lastAlertAt = now
	st.sent++
}

// MarkFailed rolls the reservation back so a failed delivery does not
// start a window, and records the error for operator visibility. Delivery
// is not retried by the gate; retry, if any, is the sender's concern.
func (g *CooldownGate) MarkFailed(channelID uuid.UUID, sendErr string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(channelID)
	st.lastAlertAt = st.prevAlertAt
	st.lastError = sendErr
}

func (g *CooldownGate) Stats(channelID uuid.UUID) (sent int64, lastError string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.channels[channelID]
	if !ok {
		return 0, ""
	}
	return st.sent, st.lastError
}

func (g *CooldownGate) state(channelID uuid.UUID) *channelState {
	st, ok := g.channels[channelID]
	if !ok {
		st = &channelState{}
		g.channels[channelID] = st
	}
	return st
}
