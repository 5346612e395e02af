package queue_test

import (
	"context"
	"testing"
	"time"

	"rosterforge/internal/queue"
	"rosterforge/internal/testsupport"
)

func TestNewBundleAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewBundle(ctx, "run-1", "DonkeyKong", "/mods/DonkeyKong")
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if item.Status != queue.StatusDiscovered {
		t.Fatalf("expected discovered status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected bundle")
	}
	if fetched.Character != "DonkeyKong" || fetched.BundlePath != "/mods/DonkeyKong" {
		t.Fatalf("unexpected bundle fields: %+v", fetched)
	}
	if fetched.RunID != "run-1" {
		t.Fatalf("expected run-1, got %s", fetched.RunID)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	item, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for unknown id, got %+v", item)
	}
}

func TestUpdatePersistsAllFields(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.NewBundle(t, store, "run-1", "Yoshi", "/mods/Yoshi")
	item.Status = queue.StatusResolved
	item.MissingJSON = `["Driver/Yoshi.szs"]`
	item.ResolutionJSON = `{"audio":"clone"}`
	item.SetProgress("Resolving", "resolved 3 assets")
	now := time.Now().UTC()
	item.LastHeartbeat = &now

	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusResolved {
		t.Fatalf("expected resolved, got %s", fetched.Status)
	}
	if fetched.MissingJSON != item.MissingJSON || fetched.ResolutionJSON != item.ResolutionJSON {
		t.Fatalf("json fields not persisted: %+v", fetched)
	}
	if fetched.ProgressStage != "Resolving" || fetched.ProgressMessage != "resolved 3 assets" {
		t.Fatalf("progress not persisted: %+v", fetched)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to persist")
	}
}

func TestNextForStatusesOrdersByCreation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewBundle(t, store, "run-1", "Mario", "/mods/Mario")
	testsupport.NewBundle(t, store, "run-1", "Luigi", "/mods/Luigi")

	next, err := store.NextForStatuses(ctx, queue.StatusDiscovered)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest bundle %d, got %+v", first.ID, next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusStaged)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no staged bundle, got %+v", none)
	}
}

func TestResetStuckProcessingRollsBackPerStage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	cases := map[string]struct {
		stuck    queue.Status
		expected queue.Status
	}{
		"Peach":  {queue.StatusResolving, queue.StatusDiscovered},
		"Daisy":  {queue.StatusPatching, queue.StatusResolved},
		"Toad":   {queue.StatusInjecting, queue.StatusPatched},
		"Lakitu": {queue.StatusStaging, queue.StatusInjected},
	}

	ids := make(map[string]int64)
	for character, tc := range cases {
		item := testsupport.NewBundle(t, store, "run-1", character, "/mods/"+character)
		item.Status = tc.stuck
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
		ids[character] = item.ID
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 resets, got %d", count)
	}

	for character, tc := range cases {
		fetched, err := store.GetByID(ctx, ids[character])
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if fetched.Status != tc.expected {
			t.Fatalf("%s: expected %s after reset, got %s", character, tc.expected, fetched.Status)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	stale := testsupport.NewBundle(t, store, "run-1", "Waluigi", "/mods/Waluigi")
	stale.Status = queue.StatusPatching
	old := time.Now().UTC().Add(-10 * time.Minute)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh := testsupport.NewBundle(t, store, "run-1", "Wario", "/mods/Wario")
	fresh.Status = queue.StatusPatching
	recent := time.Now().UTC()
	fresh.LastHeartbeat = &recent
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed bundle, got %d", count)
	}

	reclaimed, _ := store.GetByID(ctx, stale.ID)
	if reclaimed.Status != queue.StatusResolved {
		t.Fatalf("expected resolved after reclaim, got %s", reclaimed.Status)
	}
	untouched, _ := store.GetByID(ctx, fresh.ID)
	if untouched.Status != queue.StatusPatching {
		t.Fatalf("expected fresh bundle untouched, got %s", untouched.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	failed := testsupport.NewBundle(t, store, "run-1", "Rosalina", "/mods/Rosalina")
	failed.SetFailed("archive corrupt")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	patchFailed := testsupport.NewBundle(t, store, "run-1", "Birdo", "/mods/Birdo")
	patchFailed.Status = queue.StatusPatchFailed
	if err := store.Update(ctx, patchFailed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 retried bundles, got %d", count)
	}

	for _, id := range []int64{failed.ID, patchFailed.ID} {
		fetched, _ := store.GetByID(ctx, id)
		if fetched.Status != queue.StatusDiscovered {
			t.Fatalf("expected discovered after retry, got %s", fetched.Status)
		}
		if fetched.ErrorMessage != "" {
			t.Fatalf("expected cleared error message, got %q", fetched.ErrorMessage)
		}
	}
}

func TestHealthCountsByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	statuses := []queue.Status{
		queue.StatusDiscovered,
		queue.StatusPatching,
		queue.StatusStaged,
		queue.StatusFailed,
		queue.StatusPatchFailed,
	}
	for i, status := range statuses {
		item := testsupport.NewBundle(t, store, "run-1", string(rune('A'+i))+"Char", "/mods/char")
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 5 {
		t.Fatalf("expected 5 total, got %d", health.Total)
	}
	if health.Discovered != 1 || health.Processing != 1 || health.Staged != 1 || health.Failed != 2 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestClearVariants(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	staged := testsupport.NewBundle(t, store, "run-1", "KingBoo", "/mods/KingBoo")
	staged.Status = queue.StatusStaged
	if err := store.Update(ctx, staged); err != nil {
		t.Fatalf("Update: %v", err)
	}
	failed := testsupport.NewBundle(t, store, "run-1", "DryBones", "/mods/DryBones")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewBundle(t, store, "run-1", "ShyGuy", "/mods/ShyGuy")

	count, err := store.ClearStaged(ctx)
	if err != nil || count != 1 {
		t.Fatalf("ClearStaged: count=%d err=%v", count, err)
	}
	count, err = store.ClearFailed(ctx)
	if err != nil || count != 1 {
		t.Fatalf("ClearFailed: count=%d err=%v", count, err)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Character != "ShyGuy" {
		t.Fatalf("expected one remaining bundle, got %+v", remaining)
	}

	count, err = store.Clear(ctx)
	if err != nil || count != 1 {
		t.Fatalf("Clear: count=%d err=%v", count, err)
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus(" Patched ")
	if !ok || status != queue.StatusPatched {
		t.Fatalf("expected patched, got %s ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected bogus status to be rejected")
	}
}
