package alert

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	channels []Channel
}

func (p *staticProvider) ListChannels(ctx context.Context, teamID uuid.UUID) ([]Channel, error) {
	return p.channels, nil
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []uuid.UUID
	failOn uuid.UUID
}

func (s *recordingSender) Send(ctx context.Context, ch Channel, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.ID == s.failOn {
		return errors.New("delivery refused")
	}
	s.sent = append(s.sent, ch.ID)
	return nil
}

func (s *recordingSender) sentIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.sent...)
}

func enabledChannel(event EventType) Channel {
	ch := Channel{ID: uuid.New(), Type: "webhook", Enabled: true}
	switch event {
	case EventDown:
		ch.NotifyDown = true
	case EventUp:
		ch.NotifyUp = true
	case EventSSLExpiry:
		ch.NotifySSLExpiry = true
	}
	return ch
}

// a single worker keeps delivery order deterministic under test
func runService(t *testing.T, provider ChannelProvider, sender Sender) *Service {
	t.Helper()

	logger := zerolog.Nop()
	svc := NewService(1, 16, NewCooldownGate(time.Minute), provider, sender, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Run(ctx)
	return svc
}

func TestService_FansOutToSubscribedChannels(t *testing.T) {
	down1 := enabledChannel(EventDown)
	down2 := enabledChannel(EventDown)
	upOnly := enabledChannel(EventUp)
	disabled := enabledChannel(EventDown)
	disabled.Enabled = false

	sender := &recordingSender{}
	svc := runService(t, &staticProvider{channels: []Channel{down1, down2, upOnly, disabled}}, sender)

	svc.Notify(context.Background(), uuid.New(), EventDown, Payload{MonitorName: "api"})
	svc.Close()

	sent := sender.sentIDs()
	require.ElementsMatch(t, []uuid.UUID{down1.ID, down2.ID}, sent)
}

func TestService_FailedChannelDoesNotBlockOthers(t *testing.T) {
	bad := enabledChannel(EventDown)
	good := enabledChannel(EventDown)

	sender := &recordingSender{failOn: bad.ID}
	svc := runService(t, &staticProvider{channels: []Channel{bad, good}}, sender)

	svc.Notify(context.Background(), uuid.New(), EventDown, Payload{})
	svc.Close()

	require.Equal(t, []uuid.UUID{good.ID}, sender.sentIDs())
}

// blockingSender parks the first delivery until released, exposing any
// window between the gate check and the delivery mark.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (s *blockingSender) Send(ctx context.Context, ch Channel, ev Event) error {
	s.calls.Add(1)
	s.started <- struct{}{}
	<-s.release
	return nil
}

func TestService_CooldownHoldsAcrossWorkers(t *testing.T) {
	ch := enabledChannel(EventDown)
	sender := &blockingSender{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}

	logger := zerolog.Nop()
	svc := NewService(2, 16, NewCooldownGate(5*time.Minute), &staticProvider{channels: []Channel{ch}}, sender, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Run(ctx)

	// two events for the same team land on different workers; only one
	// may reach the sender inside the window
	teamID := uuid.New()
	svc.Notify(ctx, teamID, EventDown, Payload{})
	svc.Notify(ctx, teamID, EventDown, Payload{})

	<-sender.started
	close(sender.release)
	svc.Close()

	require.Equal(t, int64(1), sender.calls.Load())
}

func TestService_CooldownSuppressesRepeats(t *testing.T) {
	ch := enabledChannel(EventDown)

	sender := &recordingSender{}
	svc := runService(t, &staticProvider{channels: []Channel{ch}}, sender)

	teamID := uuid.New()
	svc.Notify(context.Background(), teamID, EventDown, Payload{})
	svc.Notify(context.Background(), teamID, EventDown, Payload{})
	svc.Close()

	// second event landed inside the window
	require.Len(t, sender.sentIDs(), 1)
}
