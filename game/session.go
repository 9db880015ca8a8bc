package game

import (
	"fmt"
	"time"
)

type GameMode string

const (
	ModeQuickSort GameMode = "quick_sort"
	ModeSpeedToss GameMode = "speed_toss"
	ModeDeepSort  GameMode = "deep_sort"
	ModeFreePlay  GameMode = "free_play"
)

// ParseGameMode validates a mode string.
func ParseGameMode(s string) (GameMode, error) {
	m := GameMode(s)
	if _, ok := m.TimeBudget(); !ok && !m.untimed() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGameMode, s)
	}
	return m, nil
}

// TimeBudget returns the play time in seconds for timed modes.
func (m GameMode) TimeBudget() (int, bool) {
	switch m {
	case ModeQuickSort:
		return 300, true
	case ModeSpeedToss:
		return 120, true
	}
	return 0, false
}

func (m GameMode) untimed() bool {
	return m == ModeDeepSort || m == ModeFreePlay
}

type Decision string

const (
	Keep Decision = "keep"
	Toss Decision = "toss"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case Keep, Toss:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDecision, s)
}

type State int

const (
	StateUninitialized State = iota
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	}
	return "uninitialized"
}

type EndReason string

const (
	EndQueueExhausted EndReason = "queue_exhausted"
	EndAbandoned      EndReason = "abandoned"
	EndTimeUp         EndReason = "time_up"
)

// Outcome is the local result of one decision, available before any write.
type Outcome struct {
	SessionID       string    `json:"session_id"`
	ItemID          string    `json:"item_id"`
	Decision        Decision  `json:"decision"`
	DecisionTimeMs  int64     `json:"decision_time_ms"`
	Quick           bool      `json:"quick"`
	XPEarned        int64     `json:"xp_earned"`
	StreakBefore    int       `json:"streak_before"`
	Streak          int       `json:"streak"`
	ComboMultiplier float64   `json:"combo_multiplier"`
	Level           int       `json:"level"`
	LeveledUp       bool      `json:"leveled_up"`
	DecidedAt       time.Time `json:"decided_at"`

	// Summary is set when this decision emptied the queue and ended the session.
	Summary *Summary `json:"summary,omitempty"`
	// SyncErr is set when persisting the decision failed; play continues.
	SyncErr error `json:"-"`
}

// Summary is produced exactly once, when the session ends.
type Summary struct {
	SessionID     string        `json:"session_id"`
	Mode          GameMode      `json:"game_mode"`
	Reason        EndReason     `json:"reason"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	Duration      time.Duration `json:"duration"`
	TotalItems    int           `json:"total_items"`
	ItemsDecided  int           `json:"items_decided"`
	ItemsKept     int           `json:"items_kept"`
	ItemsTossed   int           `json:"items_tossed"`
	SessionXP     int64         `json:"session_xp"`
	AchievementXP int64         `json:"achievement_xp"`
	MaxStreak     int           `json:"max_streak"`
	Completed     bool          `json:"completed"`
	Unlocked      []Achievement `json:"unlocked"`
	Stats         PlayerStats   `json:"stats"`

	SyncErr error `json:"-"`
}

// Session is one play interval over a fixed queue of items. It is owned by the
// caller and is not safe for concurrent use.
type Session struct {
	ID          string
	UserID      string
	InventoryID string
	Mode        GameMode
	StartedAt   time.Time
	EndedAt     *time.Time

	TotalItems      int
	ItemsDecided    int
	ItemsKept       int
	ItemsTossed     int
	SessionXP       int64
	CurrentStreak   int
	MaxStreak       int
	ComboMultiplier float64
	// TimeRemaining is in whole seconds and nil for untimed modes.
	TimeRemaining *int

	queue   []string
	queued  map[string]bool
	decided map[string]Decision
	catalog []Achievement
	state   State
	carry   time.Duration
	summary *Summary
}

// Start moves the session from uninitialized to active over the given queue.
// The catalog is captured for the achievement pass at the end.
func (s *Session) Start(mode GameMode, queue []string, catalog []Achievement, now time.Time) error {
	if s.state != StateUninitialized {
		return ErrSessionStarted
	}
	if _, err := ParseGameMode(string(mode)); err != nil {
		return err
	}
	queued := make(map[string]bool, len(queue))
	for _, id := range queue {
		if queued[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateQueueItem, id)
		}
		queued[id] = true
	}

	s.Mode = mode
	s.StartedAt = now
	s.EndedAt = nil
	s.queue = append([]string(nil), queue...)
	s.queued = queued
	s.decided = make(map[string]Decision, len(queue))
	s.catalog = append([]Achievement(nil), catalog...)
	s.TotalItems = len(queue)
	s.ItemsDecided, s.ItemsKept, s.ItemsTossed = 0, 0, 0
	s.SessionXP = 0
	s.CurrentStreak, s.MaxStreak = 0, 0
	s.ComboMultiplier = 1.0
	s.TimeRemaining = nil
	if budget, ok := mode.TimeBudget(); ok {
		s.TimeRemaining = &budget
	}
	s.state = StateActive
	return nil
}

func (s *Session) State() State { return s.state }

// Queue returns a copy of the item ids the session was started with.
func (s *Session) Queue() []string { return append([]string(nil), s.queue...) }

// Pending returns the queued item ids not yet decided, in queue order.
func (s *Session) Pending() []string {
	var out []string
	for _, id := range s.queue {
		if _, ok := s.decided[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Summary returns the end-of-session summary once the session has ended.
func (s *Session) Summary() (Summary, bool) {
	if s.summary == nil {
		return Summary{}, false
	}
	return *s.summary, true
}

// Decide applies one keep/toss decision to the session and the player's stats.
// If it was the last queued item the session ends, and Outcome.Summary is set.
func (s *Session) Decide(p *Player, itemID string, d Decision, decisionTimeMs int64, now time.Time) (Outcome, error) {
	switch s.state {
	case StateEnded:
		return Outcome{}, ErrSessionEnded
	case StateUninitialized:
		return Outcome{}, ErrSessionNotActive
	}
	if _, err := ParseDecision(string(d)); err != nil {
		return Outcome{}, err
	}
	if decisionTimeMs < 0 {
		return Outcome{}, ErrInvalidDecisionTime
	}
	if !s.queued[itemID] {
		return Outcome{}, fmt.Errorf("%w: %s", ErrItemNotInQueue, itemID)
	}
	if _, ok := s.decided[itemID]; ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrItemAlreadyDecided, itemID)
	}
	if s.ItemsDecided >= s.TotalItems {
		return Outcome{}, ErrQueueOverflow
	}

	quick := decisionTimeMs < QuickDecisionMs
	before := s.CurrentStreak
	after := 0
	if quick {
		after = before + 1
	}
	combo := ComboMultiplier(after)
	xp := AwardedXP(decisionTimeMs, before, after)

	s.CurrentStreak = after
	s.ComboMultiplier = combo
	s.decided[itemID] = d
	s.ItemsDecided++
	if d == Keep {
		s.ItemsKept++
	} else {
		s.ItemsTossed++
	}
	s.SessionXP += xp
	if after > s.MaxStreak {
		s.MaxStreak = after
	}

	levelBefore := p.Stats.Level
	p.Stats.applyDecision(quick, after, xp)

	out := Outcome{
		SessionID:       s.ID,
		ItemID:          itemID,
		Decision:        d,
		DecisionTimeMs:  decisionTimeMs,
		Quick:           quick,
		XPEarned:        xp,
		StreakBefore:    before,
		Streak:          after,
		ComboMultiplier: combo,
		Level:           p.Stats.Level,
		LeveledUp:       p.Stats.Level > levelBefore,
		DecidedAt:       now,
	}
	if s.ItemsDecided == s.TotalItems {
		sum := s.end(p, EndQueueExhausted, now)
		out.Summary = &sum
	}
	return out, nil
}

// Tick counts down the timer of a timed session. When the time runs out the
// session ends and the summary is returned with true.
func (s *Session) Tick(p *Player, elapsed time.Duration, now time.Time) (Summary, bool) {
	if s.state != StateActive || s.TimeRemaining == nil || elapsed <= 0 {
		return Summary{}, false
	}
	s.carry += elapsed
	secs := int(s.carry / time.Second)
	s.carry -= time.Duration(secs) * time.Second

	remaining := *s.TimeRemaining - secs
	if remaining < 0 {
		remaining = 0
	}
	s.TimeRemaining = &remaining
	if remaining > 0 {
		return Summary{}, false
	}
	return s.end(p, EndTimeUp, now), true
}

// End abandons or finishes an active session. On an ended session it returns
// the existing summary and false.
func (s *Session) End(p *Player, now time.Time) (Summary, bool) {
	switch s.state {
	case StateEnded:
		return *s.summary, false
	case StateUninitialized:
		return Summary{}, false
	}
	reason := EndAbandoned
	if s.ItemsDecided == s.TotalItems {
		reason = EndQueueExhausted
	}
	return s.end(p, reason, now), true
}

func (s *Session) end(p *Player, reason EndReason, now time.Time) Summary {
	xpBefore := p.Stats.TotalXP
	unlocked := EvaluateAchievements(p, s.catalog, now)
	rewardXP := p.Stats.TotalXP - xpBefore
	s.SessionXP += rewardXP

	ended := now
	s.EndedAt = &ended
	s.state = StateEnded

	sum := Summary{
		SessionID:     s.ID,
		Mode:          s.Mode,
		Reason:        reason,
		StartedAt:     s.StartedAt,
		EndedAt:       now,
		Duration:      now.Sub(s.StartedAt),
		TotalItems:    s.TotalItems,
		ItemsDecided:  s.ItemsDecided,
		ItemsKept:     s.ItemsKept,
		ItemsTossed:   s.ItemsTossed,
		SessionXP:     s.SessionXP,
		AchievementXP: rewardXP,
		MaxStreak:     s.MaxStreak,
		Completed:     s.ItemsDecided == s.TotalItems,
		Unlocked:      unlocked,
		Stats:         p.Stats,
	}
	s.summary = &sum
	return sum
}
