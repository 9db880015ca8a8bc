// Package gametest provides an in-memory implementation of every game
// collaborator, with per-step failure injection.
package gametest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tosslee/game"
)

// ErrInjected is returned by a step configured to fail.
var ErrInjected = errors.New("injected failure")

// Step names accepted by Store.Fail.
const (
	StepAvailableItems  = "available_items"
	StepLoadStats       = "load_stats"
	StepSaveStats       = "save_stats"
	StepLoadCatalog     = "load_catalog"
	StepLoadUnlocked    = "load_unlocked"
	StepRecordUnlock    = "record_unlock"
	StepAppendDecision  = "append_decision"
	StepCreateSession   = "create_session"
	StepFinalizeSession = "finalize_session"
	StepSetItemDecision = "set_item_decision"
)

type Inventory struct {
	Items   []game.Item
	Members map[string]bool
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	Inventories  map[string]*Inventory
	Stats        map[string]game.PlayerStats
	Catalog      []game.Achievement
	Unlocks      map[string]map[string]time.Time
	Decisions    []game.DecisionRecord
	Sessions     map[string]game.NewSessionRecord
	Finalized    map[string]game.Summary
	ItemStatus   map[string]game.Decision
	UnlockWrites int

	fail   map[string]bool
	nextID int
}

func NewStore() *Store {
	return &Store{
		Inventories: make(map[string]*Inventory),
		Stats:       make(map[string]game.PlayerStats),
		Unlocks:     make(map[string]map[string]time.Time),
		Sessions:    make(map[string]game.NewSessionRecord),
		Finalized:   make(map[string]game.Summary),
		ItemStatus:  make(map[string]game.Decision),
		fail:        make(map[string]bool),
	}
}

// Deps wires the store into every collaborator slot.
func (s *Store) Deps(now func() time.Time) game.Dependencies {
	return game.Dependencies{
		Items:      s,
		Stats:      s,
		Catalog:    s,
		Unlocks:    s,
		Decisions:  s,
		Sessions:   s,
		ItemStatus: s,
		Now:        now,
	}
}

// AddInventory registers an inventory with the given members and items.
func (s *Store) AddInventory(id string, members []string, items ...game.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := &Inventory{Items: items, Members: make(map[string]bool)}
	for _, m := range members {
		inv.Members[m] = true
	}
	s.Inventories[id] = inv
}

// Fail makes the named step fail (or succeed again).
func (s *Store) Fail(step string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[step] = fail
}

func (s *Store) failing(step string) error {
	if s.fail[step] {
		return fmt.Errorf("%s: %w", step, ErrInjected)
	}
	return nil
}

func (s *Store) AvailableItems(_ context.Context, inventoryID, userID string) (game.ItemQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepAvailableItems); err != nil {
		return game.ItemQueue{}, err
	}
	inv, ok := s.Inventories[inventoryID]
	if !ok || !inv.Members[userID] {
		return game.ItemQueue{}, game.ErrAccessDenied
	}
	decided := make(map[string]bool)
	for _, d := range s.Decisions {
		if d.UserID == userID {
			decided[d.ItemID] = true
		}
	}
	q := game.ItemQueue{TotalItems: len(inv.Items)}
	for _, it := range inv.Items {
		if decided[it.ID] {
			q.DecidedCount++
			continue
		}
		q.Items = append(q.Items, it)
	}
	return q, nil
}

func (s *Store) LoadPlayerStats(_ context.Context, userID string) (game.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepLoadStats); err != nil {
		return game.PlayerStats{}, err
	}
	st, ok := s.Stats[userID]
	if !ok {
		st = game.NewPlayerStats()
		s.Stats[userID] = st
	}
	return st, nil
}

func (s *Store) SavePlayerStats(_ context.Context, userID string, stats game.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepSaveStats); err != nil {
		return err
	}
	s.Stats[userID] = stats
	return nil
}

func (s *Store) LoadAchievements(context.Context) ([]game.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepLoadCatalog); err != nil {
		return nil, err
	}
	return append([]game.Achievement(nil), s.Catalog...), nil
}

func (s *Store) LoadUnlocked(_ context.Context, userID string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepLoadUnlocked); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time)
	for id, at := range s.Unlocks[userID] {
		out[id] = at
	}
	return out, nil
}

func (s *Store) RecordUnlock(_ context.Context, userID, achievementID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepRecordUnlock); err != nil {
		return err
	}
	if s.Unlocks[userID] == nil {
		s.Unlocks[userID] = make(map[string]time.Time)
	}
	if _, ok := s.Unlocks[userID][achievementID]; ok {
		return nil
	}
	s.Unlocks[userID][achievementID] = at
	s.UnlockWrites++
	return nil
}

func (s *Store) AppendDecision(_ context.Context, rec game.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepAppendDecision); err != nil {
		return err
	}
	for _, d := range s.Decisions {
		if d.ItemID == rec.ItemID && d.UserID == rec.UserID && d.SessionID == rec.SessionID {
			return nil
		}
	}
	s.Decisions = append(s.Decisions, rec)
	return nil
}

func (s *Store) CreateSession(_ context.Context, rec game.NewSessionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepCreateSession); err != nil {
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("session-%d", s.nextID)
	s.Sessions[id] = rec
	return id, nil
}

func (s *Store) FinalizeSession(_ context.Context, sessionID string, sum game.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepFinalizeSession); err != nil {
		return err
	}
	if _, ok := s.Sessions[sessionID]; !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.Finalized[sessionID] = sum
	return nil
}

func (s *Store) SetItemDecision(_ context.Context, _ string, itemID string, d game.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(StepSetItemDecision); err != nil {
		return err
	}
	s.ItemStatus[itemID] = d
	return nil
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
