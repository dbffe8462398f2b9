package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	c, err := ParseCursor("  ")
	if err != nil || c != nil {
		t.Fatalf("expected nil cursor for blank input, got %+v / %v", c, err)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("expected capped limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

type pageRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

func TestNewPageDerivesNextCursor(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]pageRow, 4)
	for i := range rows {
		rows[i] = pageRow{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}

	page := NewPage(rows, 3, func(r pageRow) Cursor {
		return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 visible rows, got %d", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor for buffered page")
	}

	cur, err := ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("parse next cursor: %v", err)
	}
	if cur.ID != rows[2].ID {
		t.Fatal("next cursor should point at the last visible row")
	}

	exhausted := NewPage(rows[:2], 3, func(r pageRow) Cursor {
		return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	if exhausted.NextCursor != "" {
		t.Fatal("expected empty cursor when results fit the limit")
	}
}
