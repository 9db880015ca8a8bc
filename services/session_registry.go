package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tosslee/game"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionInProgress = errors.New("user already has an active session")
)

type liveSession struct {
	mu         sync.Mutex
	play       *game.Play
	lastActive time.Time
	lastTick   time.Time
}

// SessionRegistry owns the sessions being played. Each session is guarded
// by its own mutex so only one transition runs at a time per session. A user
// holds at most one active session, so their stats have a single writer.
type SessionRegistry struct {
	Engine      *game.Engine
	IdleTimeout time.Duration
	Now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
	// active maps a user to their active session id; "" while a session is
	// starting or another writer holds the user's stats.
	active map[string]string
}

func NewSessionRegistry(engine *game.Engine, idleTimeout time.Duration) *SessionRegistry {
	return &SessionRegistry{
		Engine:      engine,
		IdleTimeout: idleTimeout,
		Now:         time.Now,
		sessions:    make(map[string]*liveSession),
		active:      make(map[string]string),
	}
}

// SessionView is the JSON snapshot of a live session.
type SessionView struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	InventoryID     string           `json:"inventory_id"`
	GameMode        game.GameMode    `json:"game_mode"`
	State           string           `json:"state"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	TotalItems      int              `json:"total_items"`
	ItemsDecided    int              `json:"items_decided"`
	ItemsKept       int              `json:"items_kept"`
	ItemsTossed     int              `json:"items_tossed"`
	SessionXP       int64            `json:"session_xp"`
	CurrentStreak   int              `json:"current_streak"`
	MaxStreak       int              `json:"max_streak"`
	ComboMultiplier float64          `json:"combo_multiplier"`
	TimeRemaining   *int             `json:"time_remaining,omitempty"`
	Stats           game.PlayerStats `json:"stats"`
	Items           []game.Item      `json:"items"`
	Summary         *game.Summary    `json:"summary,omitempty"`
}

func viewOf(play *game.Play) SessionView {
	s := play.Session
	v := SessionView{
		ID:              s.ID,
		UserID:          s.UserID,
		InventoryID:     s.InventoryID,
		GameMode:        s.Mode,
		State:           s.State().String(),
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		TotalItems:      s.TotalItems,
		ItemsDecided:    s.ItemsDecided,
		ItemsKept:       s.ItemsKept,
		ItemsTossed:     s.ItemsTossed,
		SessionXP:       s.SessionXP,
		CurrentStreak:   s.CurrentStreak,
		MaxStreak:       s.MaxStreak,
		ComboMultiplier: s.ComboMultiplier,
		Stats:           play.Player.Stats,
		Items:           []game.Item{},
	}
	if s.TimeRemaining != nil {
		left := *s.TimeRemaining
		v.TimeRemaining = &left
	}
	for _, id := range s.Pending() {
		if it, ok := play.Item(id); ok {
			v.Items = append(v.Items, it)
		}
	}
	if sum, ok := s.Summary(); ok {
		v.Summary = &sum
	}
	return v
}

// Start opens a session for the user and registers it.
func (r *SessionRegistry) Start(ctx context.Context, userID, inventoryID, mode string) (SessionView, error) {
	gm, err := game.ParseGameMode(mode)
	if err != nil {
		return SessionView{}, err
	}
	if err := r.claim(userID); err != nil {
		return SessionView{}, err
	}
	play, err := r.Engine.Start(ctx, userID, inventoryID, gm)
	if err != nil {
		r.release(userID, "")
		return SessionView{}, err
	}
	now := r.Now()
	live := &liveSession{play: play, lastActive: now, lastTick: now}

	r.mu.Lock()
	r.sessions[play.Session.ID] = live
	r.active[userID] = play.Session.ID
	r.mu.Unlock()

	return viewOf(play), nil
}

// WithoutSession runs fn while the user has no active session and keeps one
// from starting until fn returns.
func (r *SessionRegistry) WithoutSession(userID string, fn func() error) error {
	if err := r.claim(userID); err != nil {
		return err
	}
	defer r.release(userID, "")
	return fn()
}

func (r *SessionRegistry) claim(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[userID]; busy {
		return ErrSessionInProgress
	}
	r.active[userID] = ""
	return nil
}

func (r *SessionRegistry) release(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[userID]; ok && cur == sessionID {
		delete(r.active, userID)
	}
}

// settle frees the user once their session has ended. The caller holds
// live.mu.
func (r *SessionRegistry) settle(live *liveSession) {
	if live.play.Session.State() == game.StateEnded {
		r.release(live.play.Session.UserID, live.play.Session.ID)
	}
}

// advance counts a timed session down by the wall time since its last tick
// and reports whether that ran the clock out. The caller holds live.mu.
func (r *SessionRegistry) advance(ctx context.Context, live *liveSession) bool {
	now := r.Now()
	elapsed := now.Sub(live.lastTick)
	live.lastTick = now
	if live.play.Session.State() != game.StateActive {
		return false
	}
	sum, err := r.Engine.Tick(ctx, live.play, elapsed)
	if err != nil {
		log.Printf("❌ [Sessions] Tick failed for %s: %v", live.play.Session.ID, err)
		return false
	}
	if sum == nil {
		return false
	}
	r.settle(live)
	return true
}

// lookup returns the session if it exists and belongs to the user.
func (r *SessionRegistry) lookup(userID, sessionID string) (*liveSession, error) {
	r.mu.RLock()
	live, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok || live.play.Session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

func (r *SessionRegistry) Get(userID, sessionID string) (SessionView, error) {
	live, err := r.lookup(userID, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	return viewOf(live.play), nil
}

// Decide records one decision. Persistence failures are reported on the
// outcome and do not fail the call.
func (r *SessionRegistry) Decide(ctx context.Context, userID, sessionID, itemID, decision string, decisionTimeMs int64) (game.Outcome, error) {
	d, err := game.ParseDecision(decision)
	if err != nil {
		return game.Outcome{}, err
	}
	live, err := r.lookup(userID, sessionID)
	if err != nil {
		return game.Outcome{}, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	// The tick job runs once a second; catch up before judging the decision.
	r.advance(ctx, live)
	out, err := r.Engine.RecordDecision(ctx, live.play, itemID, d, decisionTimeMs)
	if err != nil {
		return game.Outcome{}, err
	}
	live.lastActive = r.Now()
	r.settle(live)
	return out, nil
}

// End finishes the session. Ending twice returns the same summary.
func (r *SessionRegistry) End(ctx context.Context, userID, sessionID string) (game.Summary, error) {
	live, err := r.lookup(userID, sessionID)
	if err != nil {
		return game.Summary{}, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	sum, err := r.Engine.End(ctx, live.play)
	if err != nil {
		return game.Summary{}, err
	}
	live.lastActive = r.Now()
	r.settle(live)
	return sum, nil
}

func (r *SessionRegistry) snapshot() []*liveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*liveSession, 0, len(r.sessions))
	for _, live := range r.sessions {
		out = append(out, live)
	}
	return out
}

// TickAll advances the timer of every active timed session by the wall time
// since its last tick. It returns how many sessions ran out of time.
func (r *SessionRegistry) TickAll(ctx context.Context) int {
	expired := 0
	for _, live := range r.snapshot() {
		live.mu.Lock()
		if r.advance(ctx, live) {
			expired++
		}
		live.mu.Unlock()
	}
	return expired
}

// Sweep abandons active sessions idle for longer than IdleTimeout and drops
// ended sessions that have been quiet for as long.
func (r *SessionRegistry) Sweep(ctx context.Context) (abandoned, evicted int) {
	var drop []string
	for _, live := range r.snapshot() {
		live.mu.Lock()
		now := r.Now()
		idle := now.Sub(live.lastActive) > r.IdleTimeout
		switch {
		case idle && live.play.Session.State() == game.StateActive:
			if _, err := r.Engine.End(ctx, live.play); err != nil {
				log.Printf("❌ [Sessions] Could not end idle session %s: %v", live.play.Session.ID, err)
			} else {
				abandoned++
				live.lastActive = now
				r.settle(live)
			}
		case idle && live.play.Session.State() == game.StateEnded:
			drop = append(drop, live.play.Session.ID)
		}
		live.mu.Unlock()
	}

	if len(drop) > 0 {
		r.mu.Lock()
		for _, id := range drop {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
	}
	return abandoned, len(drop)
}

// EndAll ends every active session, as on shutdown. It returns how many
// sessions it ended.
func (r *SessionRegistry) EndAll(ctx context.Context) int {
	ended := 0
	for _, live := range r.snapshot() {
		live.mu.Lock()
		if live.play.Session.State() == game.StateActive {
			if _, err := r.Engine.End(ctx, live.play); err != nil {
				log.Printf("❌ [Sessions] Could not end session %s: %v", live.play.Session.ID, err)
			} else {
				ended++
				r.settle(live)
			}
		}
		live.mu.Unlock()
	}
	return ended
}

// Len reports how many sessions the registry holds, ended ones included.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
