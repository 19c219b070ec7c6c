package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"socialpilot/internal/models"
)

func itemRow(rows *sqlmock.Rows, id uuid.UUID, content string, status models.ItemStatus, scheduled *time.Time, version int64) *sqlmock.Rows {
	var sched any
	if scheduled != nil {
		sched = *scheduled
	}
	return rows.AddRow(id.String(), content, "claude", string(status), sched, nil, nil, false, nil, nil, version, testNow, testNow)
}

func TestItemStoreCreate(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO content_items")).
		WithArgs(id, "Morning routine tip", "claude", models.StatusPending, nil, false, nil).
		WillReturnRows(itemRow(sqlmock.NewRows(itemColumnNames), id, "Morning routine tip", models.StatusPending, nil, 1))

	created, err := s.Create(context.Background(), &models.ContentItem{
		ID: id, Content: "Morning routine tip", Source: "claude",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != models.StatusPending {
		t.Errorf("status: got %q, want %q", created.Status, models.StatusPending)
	}
	if created.Version != 1 {
		t.Errorf("version: got %d, want 1", created.Version)
	}
}

func TestItemStoreCreateRejectsInvalidItem(t *testing.T) {
	db, _ := newMock(t)
	s := NewItemStore(db)

	_, err := s.Create(context.Background(), &models.ContentItem{
		Content: "x", Source: "claude", Status: models.StatusScheduled,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestItemStoreFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	id := uuid.New()
	mock.ExpectQuery("FROM content_items WHERE id = ").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByID(context.Background(), id)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemStoreListDue(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	older := testNow.Add(-2 * time.Hour)
	newer := testNow.Add(-time.Hour)
	a, b := uuid.New(), uuid.New()

	rows := sqlmock.NewRows(itemColumnNames)
	itemRow(rows, a, "first", models.StatusScheduled, &older, 3)
	itemRow(rows, b, "second", models.StatusScheduled, &newer, 1)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'scheduled' AND scheduled_time <= $1")).
		WithArgs(testNow).
		WillReturnRows(rows)

	items, err := s.ListDue(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != a || items[1].ID != b {
		t.Error("expected oldest-scheduled first")
	}
	if items[0].Version != 3 {
		t.Errorf("version: got %d, want 3", items[0].Version)
	}
}

func TestItemStoreListByStatusDefaults(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	mock.ExpectQuery("FROM content_items").
		WithArgs("", 50, 0).
		WillReturnRows(sqlmock.NewRows(itemColumnNames))

	items, err := s.ListByStatus(context.Background(), "", 0, -5)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestItemStoreDeletePending(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_items WHERE status = 'pending'")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.DeletePending(context.Background())
	if err != nil {
		t.Fatalf("DeletePending: %v", err)
	}
	if n != 7 {
		t.Errorf("deleted: got %d, want 7", n)
	}
}

func TestItemStoreCountByStatus(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	mock.ExpectQuery("GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 25).
			AddRow("posted", 3))

	counts, err := s.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.StatusPending] != 25 || counts[models.StatusPosted] != 3 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if _, ok := counts[models.StatusFailed]; ok {
		t.Error("expected no failed entry")
	}
}

func TestItemStoreUpdate(t *testing.T) {
	id := uuid.New()
	item := &models.ContentItem{ID: id, Content: "edited", Source: "claude", Status: models.StatusApproved}

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectQuery("UPDATE content_items SET").
			WithArgs("edited", models.StatusApproved, nil, false, nil, id, int64(4)).
			WillReturnRows(itemRow(sqlmock.NewRows(itemColumnNames), id, "edited", models.StatusApproved, nil, 5))

		updated, err := s.Update(context.Background(), item, 4)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Version != 5 {
			t.Errorf("version: got %d, want 5", updated.Version)
		}
	})

	t.Run("stale version", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectQuery("UPDATE content_items SET").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := s.Update(context.Background(), item, 2)
		if !errors.Is(err, models.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing item", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectQuery("UPDATE content_items SET").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := s.Update(context.Background(), item, 2)
		if !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestItemStoreClaim(t *testing.T) {
	id := uuid.New()

	t.Run("claimed", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectQuery("UPDATE content_items SET version = version \\+ 1").
			WithArgs(id, int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))

		v, err := s.Claim(context.Background(), id, 2)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if v != 3 {
			t.Errorf("version: got %d, want 3", v)
		}
	})

	t.Run("changed by reviewer", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectQuery("UPDATE content_items SET version = version \\+ 1").
			WithArgs(id, int64(2)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.Claim(context.Background(), id, 2)
		if !errors.Is(err, models.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestItemStoreMarkPostedAndFailed(t *testing.T) {
	id := uuid.New()

	t.Run("posted", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectExec("status = 'posted'").
			WithArgs(testNow, "1799", id, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := s.MarkPosted(context.Background(), id, 3, testNow, "1799"); err != nil {
			t.Fatalf("MarkPosted: %v", err)
		}
	})

	t.Run("posted with stale version", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectExec("status = 'posted'").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.MarkPosted(context.Background(), id, 3, testNow, "1799")
		if !errors.Is(err, models.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("failed", func(t *testing.T) {
		db, mock := newMock(t)
		s := NewItemStore(db)

		mock.ExpectExec("status = 'failed'").
			WithArgs("rate limited", id, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := s.MarkFailed(context.Background(), id, 3, "rate limited"); err != nil {
			t.Fatalf("MarkFailed: %v", err)
		}
	})
}

func TestItemStoreDelete(t *testing.T) {
	db, mock := newMock(t)
	s := NewItemStore(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM content_items WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), id); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestItemStoreLifecycle runs the whole schedule-claim-post flow against a
// real database.
func TestItemStoreLifecycle(t *testing.T) {
	db := testDB(t)
	s := NewItemStore(db)
	ctx := context.Background()

	created, err := s.Create(ctx, &models.ContentItem{Content: "lifecycle test " + uuid.NewString(), Source: "openai"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM content_items WHERE id = $1", created.ID) })

	due := time.Now().Add(-time.Minute)
	if err := created.TransitionTo(models.StatusScheduled, &due); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	scheduled, err := s.Update(ctx, created, created.Version)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A stale version must not overwrite.
	if _, err := s.Update(ctx, created, created.Version); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict on stale update, got %v", err)
	}

	v, err := s.Claim(ctx, scheduled.ID, scheduled.Version)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := s.MarkPosted(ctx, scheduled.ID, v, time.Now(), "ext-"+uuid.NewString()[:8]); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}

	found, err := s.FindByID(ctx, scheduled.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Status != models.StatusPosted {
		t.Errorf("status: got %q, want posted", found.Status)
	}
	if err := found.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}
