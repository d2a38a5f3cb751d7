package option

import (
	"fmt"
	"testing"
	"time"

	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type entryRow struct {
	ID        int64
	CreatedAt time.Time
}

func setupEntries(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	stmt := `CREATE TABLE entries (
		id BIGINT PRIMARY KEY,
		created_at DATETIME NOT NULL
	)`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("prepare schema: %v", err)
	}

	for i := int64(1); i <= 5; i++ {
		createdAt := baseTime.Add(time.Duration(i) * time.Second)
		if err := db.Exec(`INSERT INTO entries (id, created_at) VALUES (?, ?)`, i, createdAt).Error; err != nil {
			t.Fatalf("seed entry %d: %v", i, err)
		}
	}
	return db
}

func listEntries(t *testing.T, db *gorm.DB, page pagination.Pagination) []entryRow {
	t.Helper()
	stmt := db.Table("entries").Order("created_at DESC, id DESC")
	stmt = ApplyPagination(page).Apply(stmt)

	var rows []entryRow
	if err := stmt.Find(&rows).Error; err != nil {
		t.Fatalf("list entries: %v", err)
	}
	return rows
}

func TestApplyPaginationFirstPage(t *testing.T) {
	db := setupEntries(t)

	rows := listEntries(t, db, pagination.Pagination{PageSize: 2})
	if len(rows) != 3 {
		t.Fatalf("expected page size + 1 rows, got %d", len(rows))
	}
	if rows[0].ID != 5 || rows[1].ID != 4 {
		t.Fatalf("expected newest first, got %d, %d", rows[0].ID, rows[1].ID)
	}
}

// The cursor binds a time value, not its string form, so rows stored by
// the driver in its own timestamp text still compare correctly.
func TestApplyPaginationCursorAdvances(t *testing.T) {
	db := setupEntries(t)

	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        "4",
		CreatedAt: baseTime.Add(4 * time.Second).Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}

	rows := listEntries(t, db, pagination.Pagination{PageToken: token, PageSize: 2})
	if len(rows) != 3 {
		t.Fatalf("expected 3 remaining rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.ID >= 4 {
			t.Fatalf("entry %d repeated across pages", row.ID)
		}
	}
	if rows[0].ID != 3 || rows[1].ID != 2 || rows[2].ID != 1 {
		t.Fatalf("unexpected page order: %d, %d, %d", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}

func TestApplyPaginationTieBreaksOnID(t *testing.T) {
	db := setupEntries(t)

	// Two rows sharing one timestamp; the cursor at the higher id keeps
	// the lower-id row in the next page.
	shared := baseTime.Add(10 * time.Second)
	for i := int64(6); i <= 7; i++ {
		if err := db.Exec(`INSERT INTO entries (id, created_at) VALUES (?, ?)`, i, shared).Error; err != nil {
			t.Fatalf("seed entry %d: %v", i, err)
		}
	}

	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        "7",
		CreatedAt: shared.Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}

	rows := listEntries(t, db, pagination.Pagination{PageToken: token, PageSize: 1})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != 6 {
		t.Fatalf("expected the same-timestamp sibling next, got %d", rows[0].ID)
	}
}
