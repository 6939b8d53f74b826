package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMissingKey(t *testing.T) {
	db := openTestDB(t)
	v, ok, err := db.Get("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || v != "" {
		t.Errorf("expected missing key, got %q (found=%v)", v, ok)
	}
}

func TestSetOverwrites(t *testing.T) {
	db := openTestDB(t)
	if err := db.Set("k", "one"); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if err := db.Set("k", "two"); err != nil {
		t.Fatalf("second set: %v", err)
	}
	v, ok, err := db.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: %v (found=%v)", err, ok)
	}
	if v != "two" {
		t.Errorf("expected 'two', got %q", v)
	}

	keys, err := db.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key, got %d", len(keys))
	}
}

func TestStoreRoundTripThroughSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	store := encyclopedia.NewStore(db, nil)
	if seeded := store.Load(); !seeded {
		t.Fatal("expected first load to seed")
	}
	link, err := store.AddLink(encyclopedia.CategoryNews, encyclopedia.NewLink{Title: "Persisted", URL: "https://p.example"})
	if err != nil {
		t.Fatalf("add link: %v", err)
	}
	db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	reloaded := encyclopedia.NewStore(db, nil)
	if seeded := reloaded.Load(); seeded {
		t.Fatal("expected reload to read the stored graph")
	}
	got, _, ok := reloaded.FindLink(encyclopedia.Ref{CategoryID: encyclopedia.CategoryNews, LinkID: link.ID})
	if !ok {
		t.Fatal("expected added link to survive reopen")
	}
	if got.Title != "Persisted" {
		t.Errorf("expected title 'Persisted', got %q", got.Title)
	}
}

func TestRunReports(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestRunReport()
	if err != nil {
		t.Fatalf("latest on empty: %v", err)
	}
	if latest != nil {
		t.Fatal("expected no report on empty db")
	}

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	msg := "feed timeout"
	reports := []RunReport{
		{StartedAt: base, FinishedAt: base.Add(time.Minute), Collected: 3},
		{StartedAt: base.Add(time.Hour), FinishedAt: base.Add(61 * time.Minute), Collected: 1, Analyzed: 2, Failed: 1, Error: &msg},
	}
	for _, r := range reports {
		if _, err := db.InsertRunReport(r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err = db.LatestRunReport()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Analyzed != 2 {
		t.Fatalf("expected latest report with 2 analyzed, got %+v", latest)
	}
	if latest.Error == nil || *latest.Error != msg {
		t.Errorf("expected error text %q", msg)
	}
	if !latest.StartedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected start time %v", latest.StartedAt)
	}

	recent, err := db.RecentRunReports(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[1].Collected != 3 {
		t.Errorf("expected 2 reports newest first, got %+v", recent)
	}
}
