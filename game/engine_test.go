package game_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tosslee/game"
	"tosslee/game/gametest"
)

func newFixture(t *testing.T, items int) (*game.Engine, *gametest.Store, *gametest.Clock) {
	t.Helper()
	store := gametest.NewStore()
	var list []game.Item
	for i := 1; i <= items; i++ {
		list = append(list, game.Item{ID: fmt.Sprintf("item-%d", i), Name: fmt.Sprintf("Thing %d", i)})
	}
	store.AddInventory("inv-1", []string{"alice"}, list...)
	clock := gametest.NewClock(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	return game.NewEngine(store.Deps(clock.Now)), store, clock
}

func TestEngineStartPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("access denied", func(t *testing.T) {
		eng, _, _ := newFixture(t, 2)
		_, err := eng.Start(ctx, "mallory", "inv-1", game.ModeFreePlay)
		if !errors.Is(err, game.ErrAccessDenied) {
			t.Fatalf("got %v, want ErrAccessDenied", err)
		}
	})

	t.Run("empty inventory", func(t *testing.T) {
		eng, _, _ := newFixture(t, 0)
		_, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
		if !errors.Is(err, game.ErrEmptyInventory) {
			t.Fatalf("got %v, want ErrEmptyInventory", err)
		}
	})

	t.Run("everything decided", func(t *testing.T) {
		eng, _, _ := newFixture(t, 1)
		play, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := eng.RecordDecision(ctx, play, "item-1", game.Keep, 100); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
		_, err = eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
		if !errors.Is(err, game.ErrNoItemsAvailable) {
			t.Fatalf("got %v, want ErrNoItemsAvailable", err)
		}
	})

	t.Run("unknown mode touches nothing", func(t *testing.T) {
		eng, store, _ := newFixture(t, 1)
		_, err := eng.Start(ctx, "alice", "inv-1", "blitz")
		if !errors.Is(err, game.ErrUnknownGameMode) {
			t.Fatalf("got %v, want ErrUnknownGameMode", err)
		}
		if len(store.Sessions) != 0 {
			t.Error("session created for unknown mode")
		}
	})

	t.Run("session store down", func(t *testing.T) {
		eng, store, _ := newFixture(t, 1)
		store.Fail(gametest.StepCreateSession, true)
		if _, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay); !errors.Is(err, gametest.ErrInjected) {
			t.Fatalf("got %v, want injected failure", err)
		}
	})
}

func TestEngineExcludesPreviouslyDecidedItems(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newFixture(t, 3)
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeDeepSort)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.RecordDecision(ctx, play, "item-2", game.Toss, 1200); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if _, err := eng.End(ctx, play); err != nil {
		t.Fatalf("End: %v", err)
	}

	next, err := eng.Start(ctx, "alice", "inv-1", game.ModeDeepSort)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	got := next.Session.Queue()
	if len(got) != 2 || got[0] != "item-1" || got[1] != "item-3" {
		t.Errorf("queue = %v, want [item-1 item-3]", got)
	}
	if _, ok := next.Item("item-3"); !ok {
		t.Error("item-3 missing from play items")
	}
}

func TestEnginePersistsDecisions(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newFixture(t, 3)
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeQuickSort)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := eng.RecordDecision(ctx, play, "item-1", game.Keep, 900)
	if err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if out.SyncErr != nil {
		t.Fatalf("unexpected sync error: %v", out.SyncErr)
	}
	if len(store.Decisions) != 1 {
		t.Fatalf("decisions logged = %d, want 1", len(store.Decisions))
	}
	rec := store.Decisions[0]
	if rec.SessionID != play.Session.ID || rec.XPEarned != 30 || rec.StreakCount != 1 || rec.ComboMultiplier != 1.0 {
		t.Errorf("record = %+v", rec)
	}
	if store.ItemStatus["item-1"] != game.Keep {
		t.Errorf("item status = %q", store.ItemStatus["item-1"])
	}
	if got := store.Stats["alice"]; got.TotalXP != 30 || got.TotalDecisions != 1 {
		t.Errorf("saved stats = %+v", got)
	}
}

func TestEngineWriteFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	times := []int64{400, 800, 2900, 3100, 200}

	run := func(fail bool) (*game.Play, []game.Outcome) {
		eng, store, _ := newFixture(t, len(times)+1)
		if fail {
			store.Fail(gametest.StepAppendDecision, true)
			store.Fail(gametest.StepSaveStats, true)
		}
		play, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		var outs []game.Outcome
		for i, ms := range times {
			out, err := eng.RecordDecision(ctx, play, fmt.Sprintf("item-%d", i+1), game.Toss, ms)
			if err != nil {
				t.Fatalf("RecordDecision: %v", err)
			}
			if fail && out.SyncErr == nil {
				t.Fatal("write failure not reported")
			}
			outs = append(outs, out)
		}
		if fail && len(store.Decisions) != 0 {
			t.Fatal("failing log stored decisions")
		}
		return play, outs
	}

	okPlay, okOuts := run(false)
	badPlay, badOuts := run(true)

	if okPlay.Session.SessionXP != badPlay.Session.SessionXP {
		t.Errorf("session xp diverged: %d vs %d", okPlay.Session.SessionXP, badPlay.Session.SessionXP)
	}
	if okPlay.Session.CurrentStreak != badPlay.Session.CurrentStreak {
		t.Errorf("streak diverged: %d vs %d", okPlay.Session.CurrentStreak, badPlay.Session.CurrentStreak)
	}
	if okPlay.Player.Stats != badPlay.Player.Stats {
		t.Errorf("stats diverged: %+v vs %+v", okPlay.Player.Stats, badPlay.Player.Stats)
	}
	for i := range okOuts {
		if okOuts[i].XPEarned != badOuts[i].XPEarned || okOuts[i].Streak != badOuts[i].Streak {
			t.Errorf("outcome %d diverged: %+v vs %+v", i, okOuts[i], badOuts[i])
		}
	}
}

func TestEngineSyncErrorListsEveryFailedStep(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newFixture(t, 2)
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	store.Fail(gametest.StepAppendDecision, true)
	store.Fail(gametest.StepSetItemDecision, true)

	out, err := eng.Decide(play, "item-1", game.Keep, 100)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	serr := eng.SyncDecision(ctx, play, out)
	var se *game.SyncError
	if !errors.As(serr, &se) {
		t.Fatalf("got %T, want *game.SyncError", serr)
	}
	if len(se.Failures) != 2 {
		t.Errorf("failures = %+v, want 2", se.Failures)
	}
	if !errors.Is(serr, gametest.ErrInjected) {
		t.Error("SyncError does not unwrap to the store error")
	}
	if store.Stats["alice"].TotalDecisions != 1 {
		t.Error("stats write skipped after earlier failures")
	}
}

func TestEngineAutoEndFinalizesOnce(t *testing.T) {
	ctx := context.Background()
	eng, store, clock := newFixture(t, 2)
	store.Catalog = []game.Achievement{
		{ID: "first-sort", Name: "First Sort", XPReward: 50, Requirement: game.Requirement{Kind: game.RequireDecisions, Value: 1}},
		{ID: "hundred", Name: "Centurion", XPReward: 500, Requirement: game.Requirement{Kind: game.RequireDecisions, Value: 100}},
	}
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeSpeedToss)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.Advance(2 * time.Second)
	if _, err := eng.RecordDecision(ctx, play, "item-1", game.Keep, 500); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	clock.Advance(2 * time.Second)
	out, err := eng.RecordDecision(ctx, play, "item-2", game.Toss, 500)
	if err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if out.Summary == nil {
		t.Fatal("queue exhaustion did not end the session")
	}
	sum := *out.Summary
	if len(sum.Unlocked) != 1 || sum.Unlocked[0].ID != "first-sort" {
		t.Errorf("unlocked = %+v", sum.Unlocked)
	}
	if sum.Duration != 4*time.Second {
		t.Errorf("duration = %v", sum.Duration)
	}
	fin, ok := store.Finalized[play.Session.ID]
	if !ok || fin.SessionXP != 110 || !fin.Completed {
		t.Errorf("finalized = %+v, ok=%v", fin, ok)
	}
	if store.UnlockWrites != 1 {
		t.Errorf("unlock writes = %d, want 1", store.UnlockWrites)
	}
	if got := store.Stats["alice"].TotalXP; got != 110 {
		t.Errorf("saved total xp = %d, want 110", got)
	}

	again, err := eng.End(ctx, play)
	if err != nil {
		t.Fatalf("End after auto end: %v", err)
	}
	if again.SessionXP != sum.SessionXP || store.UnlockWrites != 1 {
		t.Errorf("End after auto end re-ran the end pass")
	}
	if _, err := eng.RecordDecision(ctx, play, "item-1", game.Keep, 100); !errors.Is(err, game.ErrSessionEnded) {
		t.Errorf("decide after end: got %v", err)
	}
}

func TestEngineUnlockIsIdempotentAcrossSessions(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newFixture(t, 4)
	store.Catalog = []game.Achievement{
		{ID: "first-sort", XPReward: 50, Requirement: game.Requirement{Kind: game.RequireDecisions, Value: 1}},
	}
	for i := 1; i <= 2; i++ {
		play, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
		if err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		if _, err := eng.RecordDecision(ctx, play, play.Session.Queue()[0], game.Keep, 6000); err != nil {
			t.Fatalf("RecordDecision: %v", err)
		}
		if _, err := eng.End(ctx, play); err != nil {
			t.Fatalf("End: %v", err)
		}
	}
	// two slow decisions at 10 XP each plus one reward
	if got := store.Stats["alice"].TotalXP; got != 70 {
		t.Errorf("total xp = %d, want 70", got)
	}
	if store.UnlockWrites != 1 {
		t.Errorf("unlock writes = %d, want 1", store.UnlockWrites)
	}
}

func TestEngineTickEndsTimedSession(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newFixture(t, 3)
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeSpeedToss)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sum, err := eng.Tick(ctx, play, 119*time.Second); err != nil || sum != nil {
		t.Fatalf("early tick: %v, %v", sum, err)
	}
	sum, err := eng.Tick(ctx, play, time.Second)
	if err != nil || sum == nil {
		t.Fatalf("final tick: %v, %v", sum, err)
	}
	if sum.Reason != game.EndTimeUp {
		t.Errorf("reason = %s", sum.Reason)
	}
	if _, ok := store.Finalized[play.Session.ID]; !ok {
		t.Error("timed-out session not finalized")
	}
}

func TestEngineEndReportsFinalizeFailure(t *testing.T) {
	ctx := context.Background()
	eng, store, _ := newFixture(t, 2)
	play, err := eng.Start(ctx, "alice", "inv-1", game.ModeFreePlay)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	store.Fail(gametest.StepFinalizeSession, true)
	sum, err := eng.End(ctx, play)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if sum.SyncErr == nil {
		t.Error("finalize failure not surfaced")
	}
	if play.Session.State() != game.StateEnded {
		t.Error("session not ended locally")
	}
}
