package game

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Item is an entry of the item queue offered to a player.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Notes    string `json:"notes,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
}

// ItemQueue is what the queue provider returns: the undecided items in play
// order plus inventory-wide counts.
type ItemQueue struct {
	Items        []Item `json:"items"`
	TotalItems   int    `json:"total_items"`
	DecidedCount int    `json:"decided_count"`
}

// DecisionRecord is the durable, append-only log entry for one decision.
type DecisionRecord struct {
	ItemID          string
	UserID          string
	SessionID       string
	Decision        Decision
	DecisionTimeMs  int64
	XPEarned        int64
	StreakCount     int
	ComboMultiplier float64
	DecidedAt       time.Time
}

// NewSessionRecord describes a session to be created durably.
type NewSessionRecord struct {
	UserID      string
	InventoryID string
	Mode        GameMode
	ItemIDs     []string
	StartedAt   time.Time
}

// ItemQueueProvider returns the items a user has not decided yet. It returns
// ErrAccessDenied when the user is not a member of the inventory.
type ItemQueueProvider interface {
	AvailableItems(ctx context.Context, inventoryID, userID string) (ItemQueue, error)
}

type StatsStore interface {
	LoadPlayerStats(ctx context.Context, userID string) (PlayerStats, error)
	SavePlayerStats(ctx context.Context, userID string, stats PlayerStats) error
}

type AchievementCatalog interface {
	LoadAchievements(ctx context.Context) ([]Achievement, error)
}

// UnlockStore must treat a repeated RecordUnlock as a successful no-op.
type UnlockStore interface {
	LoadUnlocked(ctx context.Context, userID string) (map[string]time.Time, error)
	RecordUnlock(ctx context.Context, userID, achievementID string, at time.Time) error
}

type DecisionLog interface {
	AppendDecision(ctx context.Context, rec DecisionRecord) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, rec NewSessionRecord) (string, error)
	FinalizeSession(ctx context.Context, sessionID string, sum Summary) error
}

type ItemStatusUpdater interface {
	SetItemDecision(ctx context.Context, userID, itemID string, d Decision) error
}

// Dependencies are the collaborators the Engine persists through.
type Dependencies struct {
	Items      ItemQueueProvider
	Stats      StatsStore
	Catalog    AchievementCatalog
	Unlocks    UnlockStore
	Decisions  DecisionLog
	Sessions   SessionStore
	ItemStatus ItemStatusUpdater

	// Now defaults to time.Now.
	Now func() time.Time
}

// Play is everything one player needs during a session. The caller owns it
// and must not use it from more than one goroutine at a time.
type Play struct {
	Session *Session
	Player  *Player
	Items   []Item
}

// Item looks up a queued item by id.
func (p *Play) Item(id string) (Item, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Engine runs sessions: every transition is applied locally first and then
// synced to the durable collaborators. Sync failures never undo local state.
type Engine struct {
	deps Dependencies
}

func NewEngine(deps Dependencies) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{deps: deps}
}

// Start assembles the item queue and opens a session. Any failure here is
// fatal: the session never becomes active.
func (e *Engine) Start(ctx context.Context, userID, inventoryID string, mode GameMode) (*Play, error) {
	if _, err := ParseGameMode(string(mode)); err != nil {
		return nil, err
	}

	queue, err := e.deps.Items.AvailableItems(ctx, inventoryID, userID)
	if err != nil {
		return nil, fmt.Errorf("load item queue: %w", err)
	}
	if len(queue.Items) == 0 {
		if queue.TotalItems == 0 {
			return nil, ErrEmptyInventory
		}
		return nil, ErrNoItemsAvailable
	}

	stats, err := e.deps.Stats.LoadPlayerStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player stats: %w", err)
	}
	catalog, err := e.deps.Catalog.LoadAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	unlocked, err := e.deps.Unlocks.LoadUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load unlocked achievements: %w", err)
	}

	ids := make([]string, len(queue.Items))
	for i, it := range queue.Items {
		ids[i] = it.ID
	}
	now := e.deps.Now()
	sessionID, err := e.deps.Sessions.CreateSession(ctx, NewSessionRecord{
		UserID:      userID,
		InventoryID: inventoryID,
		Mode:        mode,
		ItemIDs:     ids,
		StartedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s := &Session{ID: sessionID, UserID: userID, InventoryID: inventoryID}
	if err := s.Start(mode, ids, catalog, now); err != nil {
		return nil, err
	}

	log.Printf("🎮 [GameEngine] Session %s started: user=%s inventory=%s mode=%s items=%d",
		sessionID, userID, inventoryID, mode, len(ids))

	return &Play{
		Session: s,
		Player:  NewPlayer(userID, stats, unlocked),
		Items:   queue.Items,
	}, nil
}

// Decide is the local half of a decision. It touches no collaborator.
func (e *Engine) Decide(play *Play, itemID string, d Decision, decisionTimeMs int64) (Outcome, error) {
	return play.Session.Decide(play.Player, itemID, d, decisionTimeMs, e.deps.Now())
}

// SyncDecision persists an applied decision: the log entry, the item status
// and the player's stats, then the end-of-session writes if the decision
// ended the session. It returns a *SyncError or nil.
func (e *Engine) SyncDecision(ctx context.Context, play *Play, out Outcome) error {
	serr := &SyncError{SessionID: play.Session.ID}
	userID := play.Player.UserID

	if err := e.deps.Decisions.AppendDecision(ctx, DecisionRecord{
		ItemID:          out.ItemID,
		UserID:          userID,
		SessionID:       play.Session.ID,
		Decision:        out.Decision,
		DecisionTimeMs:  out.DecisionTimeMs,
		XPEarned:        out.XPEarned,
		StreakCount:     out.Streak,
		ComboMultiplier: out.ComboMultiplier,
		DecidedAt:       out.DecidedAt,
	}); err != nil {
		serr.add("append decision", err)
	}
	if err := e.deps.ItemStatus.SetItemDecision(ctx, userID, out.ItemID, out.Decision); err != nil {
		serr.add("set item decision", err)
	}
	if out.Summary != nil {
		e.syncEnd(ctx, play, *out.Summary, serr)
	} else if err := e.deps.Stats.SavePlayerStats(ctx, userID, play.Player.Stats); err != nil {
		serr.add("save player stats", err)
	}
	return serr.orNil()
}

// RecordDecision applies a decision locally, then syncs it. The returned
// error only reports invalid transitions; write failures land in
// Outcome.SyncErr and are logged.
func (e *Engine) RecordDecision(ctx context.Context, play *Play, itemID string, d Decision, decisionTimeMs int64) (Outcome, error) {
	out, err := e.Decide(play, itemID, d, decisionTimeMs)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.SyncDecision(ctx, play, out); err != nil {
		log.Printf("❌ [GameEngine] Decision on item %s not fully persisted, continuing: %v", itemID, err)
		out.SyncErr = err
		if out.Summary != nil {
			out.Summary.SyncErr = err
		}
	}
	return out, nil
}

// End finishes the session. Ending an ended session returns the original
// summary and writes nothing.
func (e *Engine) End(ctx context.Context, play *Play) (Summary, error) {
	if play.Session.State() == StateUninitialized {
		return Summary{}, ErrSessionNotActive
	}
	sum, ended := play.Session.End(play.Player, e.deps.Now())
	if !ended {
		return sum, nil
	}
	return e.finish(ctx, play, sum), nil
}

// Tick advances the timer of a timed session. It returns the summary when
// the tick ran the clock out.
func (e *Engine) Tick(ctx context.Context, play *Play, elapsed time.Duration) (*Summary, error) {
	sum, ended := play.Session.Tick(play.Player, elapsed, e.deps.Now())
	if !ended {
		return nil, nil
	}
	sum = e.finish(ctx, play, sum)
	return &sum, nil
}

func (e *Engine) finish(ctx context.Context, play *Play, sum Summary) Summary {
	serr := &SyncError{SessionID: play.Session.ID}
	e.syncEnd(ctx, play, sum, serr)
	if err := serr.orNil(); err != nil {
		log.Printf("❌ [GameEngine] Session %s end not fully persisted: %v", play.Session.ID, err)
		sum.SyncErr = err
	}
	return sum
}

func (e *Engine) syncEnd(ctx context.Context, play *Play, sum Summary, serr *SyncError) {
	userID := play.Player.UserID
	for _, a := range sum.Unlocked {
		if err := e.deps.Unlocks.RecordUnlock(ctx, userID, a.ID, sum.EndedAt); err != nil {
			serr.add("record unlock "+a.ID, err)
			continue
		}
		log.Printf("🎖️ [GameEngine] Achievement unlocked: %s → %s (+%d XP)", a.Name, userID, a.XPReward)
	}
	if err := e.deps.Stats.SavePlayerStats(ctx, userID, play.Player.Stats); err != nil {
		serr.add("save player stats", err)
	}
	if err := e.deps.Sessions.FinalizeSession(ctx, play.Session.ID, sum); err != nil {
		serr.add("finalize session", err)
	}
	log.Printf("✅ [GameEngine] Session %s ended (%s): decided=%d/%d xp=%d max_streak=%d",
		sum.SessionID, sum.Reason, sum.ItemsDecided, sum.TotalItems, sum.SessionXP, sum.MaxStreak)
}
