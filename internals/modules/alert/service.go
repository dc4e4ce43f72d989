package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ChannelProvider interface {
	ListChannels(ctx context.Context, teamID uuid.UUID) ([]Channel, error)
}

// Sender delivers one event to one channel. Implementations live outside
// the core (email, slack, discord, telegram, webhook).
type Sender interface {
	Send(ctx context.Context, ch Channel, ev Event) error
}

// Service fans events out to every enabled channel subscribed to the event
// type, gated per channel by the cooldown window. Channel outcomes are
// independent: one failed delivery never blocks the rest.
type Service struct {
	// lifecycle
	workerCount int
	workerWG    sync.WaitGroup

	// channels
	events chan Event

	// collaborators
	gate     *CooldownGate
	provider ChannelProvider
	sender   Sender

	// misc
	logger *zerolog.Logger
}

func NewService(workerCount, queueSize int, gate *CooldownGate, provider ChannelProvider, sender Sender, logger *zerolog.Logger) *Service {
	return &Service{
		workerCount: workerCount,
		events:      make(chan Event, queueSize),
		gate:        gate,
		provider:    provider,
		sender:      sender,
		logger:      logger,
	}
}

// Run starts the alert workers.
func (s *Service) Run(ctx context.Context) {
	s.workerWG.Add(s.workerCount)

	for range s.workerCount {
		go s.worker(ctx)
	}
}

// Notify requests an alert. Fire and forget from the caller's perspective;
// if the queue is full the event is dropped with a warning rather than
// blocking a sweep.
func (s *Service) Notify(ctx context.Context, teamID uuid.UUID, event EventType, payload Payload) {
	ev := Event{
		TeamID:  teamID,
		Type:    event,
		Payload: payload,
		At:      time.Now(),
	}

	select {
	case s.events <- ev:
	default:
		s.logger.Warn().
			Str("team_id", teamID.String()).
			Str("event", string(event)).
			Msg("alert queue full, dropping event")
	}
}

// Close stops intake and waits for in-flight deliveries.
func (s *Service) Close() {
	close(s.events)
	s.workerWG.Wait()
}

func (s *Service) worker(ctx context.Context) {
	defer s.workerWG.Done()

	for ev := range s.events {
		s.dispatch(ctx, ev)
	}
}

func (s *Service) dispatch(ctx context.Context, ev Event) {
	channels, err := s.provider.ListChannels(ctx, ev.TeamID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("team_id", ev.TeamID.String()).
			Msg("failed to list alert channels")
		return
	}

	for _, ch := range channels {
		if !ch.Enabled || !ch.Subscribed(ev.Type) {
			continue
		}

		if !s.gate.Allow(ch.ID, ch.Cooldown(), time.Now()) {
			s.logger.Debug().
				Str("channel_id", ch.ID.String()).
				Str("event", string(ev.Type)).
				Msg("alert suppressed by cooldown")
			continue
		}

		if err := s.sender.Send(ctx, ch, ev); err != nil {
			s.gate.MarkFailed(ch.ID, err.Error())
			s.logger.Warn().
				Err(err).
				Str("channel_id", ch.ID.String()).
				Str("channel_type", ch.Type).
				Msg("alert delivery failed")
			continue
		}

		s.gate.MarkSent(ch.ID, time.Now())
	}
}
