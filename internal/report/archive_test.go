package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/vme-thermal/internal/infrastructure/database"
	"github.com/nerrad567/vme-thermal/internal/thermal"
	"github.com/nerrad567/vme-thermal/migrations"
)

func openArchive(t *testing.T, crateID string, retain int) (*Archive, *database.DB) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "archive.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewArchive(db.DB, crateID, retain), db
}

func TestArchive_StoreAndGet(t *testing.T) {
	archive, _ := openArchive(t, "crate-07", 0)
	ctx := context.Background()
	batch := testBatch()

	id, err := archive.Store(ctx, batch)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := archive.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != id || got.Crate != "crate-07" || got.RecordCount != 2 {
		t.Errorf("summary = %+v", got.Summary)
	}
	if !got.Timestamp.Equal(batch.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, batch.Timestamp)
	}
	if len(got.Records) != len(batch.Records) {
		t.Fatalf("records = %d, want %d", len(got.Records), len(batch.Records))
	}
	for i := range batch.Records {
		if got.Records[i] != batch.Records[i] {
			t.Errorf("record %d = %+v, want %+v", i, got.Records[i], batch.Records[i])
		}
	}
	if rebuilt := got.Batch(); rebuilt.FormatTimestamp() != batch.FormatTimestamp() {
		t.Errorf("Batch().FormatTimestamp() = %q, want %q", rebuilt.FormatTimestamp(), batch.FormatTimestamp())
	}
}

func TestArchive_GetUnknown(t *testing.T) {
	archive, _ := openArchive(t, "crate-07", 0)

	if _, err := archive.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestArchive_ListNewestFirst(t *testing.T) {
	archive, _ := openArchive(t, "crate-07", 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		batch := testBatch()
		batch.Timestamp = base.Add(time.Duration(i) * time.Minute)
		id, err := archive.Store(ctx, batch)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		ids = append(ids, id)
	}

	page, err := archive.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 3 || page.Limit != 2 || len(page.Batches) != 2 {
		t.Fatalf("List() = total %d limit %d len %d", page.Total, page.Limit, len(page.Batches))
	}
	if page.Batches[0].ID != ids[2] || page.Batches[1].ID != ids[1] {
		t.Errorf("List() order = %s, %s; want newest first", page.Batches[0].ID, page.Batches[1].ID)
	}

	next, err := archive.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(next.Batches) != 1 || next.Batches[0].ID != ids[0] {
		t.Errorf("second page = %+v, want oldest batch", next.Batches)
	}
}

func TestArchive_ListScopedToCrate(t *testing.T) {
	archive, db := openArchive(t, "crate-07", 0)
	other := NewArchive(db.DB, "crate-08", 0)
	ctx := context.Background()

	if _, err := other.Store(ctx, testBatch()); err != nil {
		t.Fatal(err)
	}

	page, err := archive.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 0 || len(page.Batches) != 0 {
		t.Errorf("List() = %+v, want empty for another crate", page)
	}
	if page.Limit != defaultListLimit {
		t.Errorf("Limit = %d, want default %d", page.Limit, defaultListLimit)
	}
}

func TestArchive_PublishPrunes(t *testing.T) {
	archive, db := openArchive(t, "crate-07", 2)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range 4 {
		batch := testBatch()
		batch.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := archive.Publish(ctx, batch); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	page, err := archive.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2 after pruning", page.Total)
	}
	if !page.Batches[0].Timestamp.Equal(base.Add(3 * time.Second)) {
		t.Errorf("newest kept = %v", page.Batches[0].Timestamp)
	}

	var records int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM report_records").Scan(&records); err != nil {
		t.Fatal(err)
	}
	if records != 4 {
		t.Errorf("report_records = %d, want 4 (records of pruned batches removed)", records)
	}
}

func TestArchive_EmptyBatch(t *testing.T) {
	archive, _ := openArchive(t, "crate-07", 0)
	ctx := context.Background()

	id, err := archive.Store(ctx, thermal.Batch{Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := archive.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RecordCount != 0 || len(got.Records) != 0 {
		t.Errorf("empty batch = %+v", got)
	}
}
