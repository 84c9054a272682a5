package cast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/metrics"
)

// DefaultConnectDelay is how long a session stays connecting before it is
// considered connected.
const DefaultConnectDelay = 2 * time.Second

// WebSocket event types for cast sessions.
const (
	EventCastStarted   = "cast:started"
	EventCastConnected = "cast:connected"
	EventCastStopped   = "cast:stopped"
)

// Timer runs keyed delayed callbacks. Scheduling an existing key replaces it.
type Timer interface {
	ScheduleOnce(key string, delay time.Duration, fn func()) error
	Cancel(key string) bool
}

// Broadcaster interface for sending events to clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Config configures the registry.
type Config struct {
	ConnectDelay time.Duration
}

// Registry is the authoritative store of cast sessions. All reads and writes
// of the session map, including the delayed connect transition, happen under mu.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*CastSession
	nextGen  uint64

	discovery   Discovery
	timer       Timer
	delay       time.Duration
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(discovery Discovery, timer Timer, cfg Config, logger zerolog.Logger) *Registry {
	delay := cfg.ConnectDelay
	if delay <= 0 {
		delay = DefaultConnectDelay
	}
	return &Registry{
		sessions:  make(map[string]*CastSession),
		discovery: discovery,
		timer:     timer,
		delay:     delay,
		logger:    logger.With().Str("component", "cast").Logger(),
	}
}

// SetBroadcaster sets the WebSocket broadcaster for real-time events.
func (r *Registry) SetBroadcaster(broadcaster Broadcaster) {
	r.broadcaster = broadcaster
}

// DiscoverDevices returns the devices currently visible to the discovery backend.
func (r *Registry) DiscoverDevices(ctx context.Context) ([]CastDevice, error) {
	devices, err := r.discovery.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("device discovery failed: %w", err)
	}
	return devices, nil
}

// GetCastInfo returns the devices and protocols a movie can be cast with.
func (r *Registry) GetCastInfo(ctx context.Context, movieID int64) (*CastInfo, error) {
	if movieID <= 0 {
		return nil, ErrInvalidMovieID
	}

	devices, err := r.DiscoverDevices(ctx)
	if err != nil {
		return nil, err
	}

	protocols := make([]string, len(SupportedProtocols))
	copy(protocols, SupportedProtocols)

	return &CastInfo{
		MovieID:            movieID,
		AvailableDevices:   devices,
		SupportedProtocols: protocols,
	}, nil
}

// StartCast creates a connecting session for movieID on address, replacing any
// session with the same id, and schedules the transition to connected. It
// returns immediately with a copy of the new session.
func (r *Registry) StartCast(movieID int64, address string) (*CastSession, error) {
	address = strings.TrimSpace(address)
	if movieID <= 0 {
		return nil, ErrInvalidMovieID
	}
	if address == "" {
		return nil, ErrInvalidAddress
	}

	id := SessionID(movieID, address)

	r.mu.Lock()
	r.nextGen++
	gen := r.nextGen
	prev, replaced := r.sessions[id]
	session := &CastSession{
		ID:            id,
		MovieID:       movieID,
		TargetAddress: address,
		State:         StateConnecting,
		StartedAt:     time.Now().UTC(),
		generation:    gen,
	}
	r.sessions[id] = session
	snapshot := session.clone()
	active := len(r.sessions)
	r.mu.Unlock()

	if replaced {
		r.timer.Cancel(jobKey(id, prev.generation))
		r.logger.Info().Str("castId", id).Msg("Replacing existing cast session")
	}

	fire := func() { r.markConnected(id, gen) }
	if err := r.timer.ScheduleOnce(jobKey(id, gen), r.delay, fire); err != nil {
		r.logger.Error().Err(err).Str("castId", id).Msg("Failed to schedule connect, using timer fallback")
		time.AfterFunc(r.delay, fire)
	}

	metrics.CastSessionsActive.Set(float64(active))
	metrics.RecordCastTransition(string(StateConnecting))
	r.broadcast(EventCastStarted, snapshot)

	r.logger.Info().
		Str("castId", id).
		Int64("movieId", movieID).
		Str("device", address).
		Msg("Cast session started")

	return snapshot, nil
}

// markConnected advances a session to connected if it is still the same
// generation and still connecting. Stale callbacks are dropped.
func (r *Registry) markConnected(id string, gen uint64) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok || session.generation != gen || session.State != StateConnecting {
		r.mu.Unlock()
		r.logger.Debug().Str("castId", id).Uint64("generation", gen).Msg("Ignoring stale connect")
		return
	}
	now := time.Now().UTC()
	session.State = StateConnected
	session.ConnectedAt = &now
	snapshot := session.clone()
	r.mu.Unlock()

	metrics.RecordCastTransition(string(StateConnected))
	r.broadcast(EventCastConnected, snapshot)
	r.logger.Info().Str("castId", id).Msg("Cast session connected")
}

// StopCast disconnects and removes a session, returning its final state.
func (r *Registry) StopCast(id string) (*CastSession, error) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	session.State = StateDisconnected
	delete(r.sessions, id)
	snapshot := session.clone()
	gen := session.generation
	active := len(r.sessions)
	r.mu.Unlock()

	// Best effort: the callback also re-checks the generation.
	r.timer.Cancel(jobKey(id, gen))

	metrics.CastSessionsActive.Set(float64(active))
	metrics.RecordCastTransition(string(StateDisconnected))
	r.broadcast(EventCastStopped, snapshot)
	r.logger.Info().Str("castId", id).Msg("Cast session stopped")

	return snapshot, nil
}

// GetCastStatus returns a copy of the session.
func (r *Registry) GetCastStatus(id string) (*CastSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

// ListSessions returns copies of all sessions, oldest first.
func (r *Registry) ListSessions() []*CastSession {
	r.mu.Lock()
	out := make([]*CastSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Shutdown cancels every pending connect transition. Sessions are kept.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.State == StateConnecting {
			keys = append(keys, jobKey(id, s.generation))
		}
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.timer.Cancel(k)
	}
}

func (r *Registry) broadcast(msgType string, payload interface{}) {
	if r.broadcaster == nil {
		return
	}
	if err := r.broadcaster.Broadcast(msgType, payload); err != nil {
		r.logger.Debug().Err(err).Str("type", msgType).Msg("Failed to broadcast event")
	}
}

func jobKey(id string, gen uint64) string {
	return fmt.Sprintf("%s#%d", id, gen)
}
