package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/audit/domain"
	"github.com/landworks/cadastre/internal/audit/repository"
	"github.com/landworks/cadastre/internal/clock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupAuditService(t *testing.T, node *snowflake.Node, fake *clock.FakeClock) (domain.Service, *gorm.DB) {
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

	stmt := `CREATE TABLE audit_records (
		id BIGINT PRIMARY KEY,
		entity_kind TEXT NOT NULL,
		entity_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		field_name TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		actor_id BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	)`
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("prepare schema: %v", err)
	}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})

	return svc, db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func strPtr(s string) *string { return &s }

func TestRecordChangesSharesTimestamp(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAuditService(t, node, fake)
	ctx := context.Background()

	entityID := node.Generate()
	actorID := node.Generate()

	err := svc.RecordChanges(ctx, domain.RecordChangesRequest{
		EntityKind: "CUSTOMER",
		EntityID:   entityID,
		Action:     "UPDATED",
		ActorID:    actorID,
		Changes: []domain.FieldChange{
			{Field: "name", Old: strPtr("Ari"), New: strPtr("Ari Wibowo")},
			{Field: "phone", New: strPtr("+62-811-000-111")},
			{Field: "  ", New: strPtr("dropped")},
		},
	})
	if err != nil {
		t.Fatalf("record changes: %v", err)
	}

	type row struct {
		FieldName string
		OldValue  *string
		NewValue  *string
		CreatedAt time.Time
	}
	var rows []row
	err = db.Raw(
		`SELECT field_name, old_value, new_value, created_at
		 FROM audit_records WHERE entity_id = ? ORDER BY field_name`,
		entityID,
	).Scan(&rows).Error
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 records after dropping the blank field, got %d", len(rows))
	}
	if rows[0].FieldName != "name" || rows[1].FieldName != "phone" {
		t.Fatalf("unexpected fields: %s, %s", rows[0].FieldName, rows[1].FieldName)
	}
	if rows[0].OldValue == nil || *rows[0].OldValue != "Ari" {
		t.Fatalf("unexpected old value: %+v", rows[0])
	}
	if rows[1].OldValue != nil {
		t.Fatal("expected nil old value for a fresh field")
	}
	if !rows[0].CreatedAt.Equal(rows[1].CreatedAt) {
		t.Fatal("expected records of one edit to share a timestamp")
	}
}

func TestRecordChangesEmptyIsNoOp(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, db := setupAuditService(t, node, fake)
	ctx := context.Background()

	err := svc.RecordChanges(ctx, domain.RecordChangesRequest{
		EntityKind: "CUSTOMER",
		EntityID:   node.Generate(),
		Action:     "UPDATED",
		ActorID:    node.Generate(),
	})
	if err != nil {
		t.Fatalf("empty change set: %v", err)
	}

	err = svc.RecordChanges(ctx, domain.RecordChangesRequest{
		EntityKind: "CUSTOMER",
		EntityID:   node.Generate(),
		Action:     "UPDATED",
		ActorID:    node.Generate(),
		Changes:    []domain.FieldChange{{Field: "   "}},
	})
	if err != nil {
		t.Fatalf("blank-only change set: %v", err)
	}

	var count int
	if err := db.Raw(`SELECT COUNT(1) FROM audit_records`).Scan(&count).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no records, got %d", count)
	}
}

func TestRecordChangesValidation(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, _ := setupAuditService(t, node, fake)
	ctx := context.Background()

	err := svc.RecordChanges(ctx, domain.RecordChangesRequest{
		EntityKind: "",
		EntityID:   node.Generate(),
		Action:     "UPDATED",
	})
	if !errors.Is(err, domain.ErrInvalidEntity) {
		t.Fatalf("expected ErrInvalidEntity, got %v", err)
	}

	err = svc.RecordChanges(ctx, domain.RecordChangesRequest{
		EntityKind: "CUSTOMER",
		EntityID:   node.Generate(),
		Action:     " ",
	})
	if !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestListByEntityFilters(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, _ := setupAuditService(t, node, fake)
	ctx := context.Background()

	entityID := node.Generate()
	firstActor := node.Generate()
	secondActor := node.Generate()

	record := func(action string, actorID snowflake.ID, field string) {
		t.Helper()
		err := svc.RecordChanges(ctx, domain.RecordChangesRequest{
			EntityKind: "PROPERTY",
			EntityID:   entityID,
			Action:     action,
			ActorID:    actorID,
			Changes:    []domain.FieldChange{{Field: field, New: strPtr("v")}},
		})
		if err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
	}

	record("CREATED", firstActor, "address")
	fake.Advance(time.Hour)
	cutoff := fake.Now()
	record("UPDATED", firstActor, "address")
	fake.Advance(time.Hour)
	record("UPDATED", secondActor, "area_sqm")

	resp, err := svc.ListByEntity(ctx, domain.ListAuditRequest{
		EntityKind: "PROPERTY",
		EntityID:   entityID.String(),
	})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(resp.Records) != 3 || resp.Total != 3 {
		t.Fatalf("expected 3 records, got %d (total %d)", len(resp.Records), resp.Total)
	}

	resp, err = svc.ListByEntity(ctx, domain.ListAuditRequest{
		EntityKind: "PROPERTY",
		EntityID:   entityID.String(),
		Action:     "UPDATED",
	})
	if err != nil {
		t.Fatalf("list by action: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 UPDATED records, got %d", len(resp.Records))
	}

	resp, err = svc.ListByEntity(ctx, domain.ListAuditRequest{
		EntityKind: "PROPERTY",
		EntityID:   entityID.String(),
		ActorID:    secondActor.String(),
	})
	if err != nil {
		t.Fatalf("list by actor: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].FieldName != "area_sqm" {
		t.Fatalf("unexpected actor filter result: %+v", resp.Records)
	}

	resp, err = svc.ListByEntity(ctx, domain.ListAuditRequest{
		EntityKind: "PROPERTY",
		EntityID:   entityID.String(),
		StartAt:    &cutoff,
	})
	if err != nil {
		t.Fatalf("list by start: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records at or after the cutoff, got %d", len(resp.Records))
	}
}

func TestListByEntityValidation(t *testing.T) {
	node := mustNode(t)
	fake := clock.NewFakeClock(baseTime)
	svc, _ := setupAuditService(t, node, fake)
	ctx := context.Background()

	if _, err := svc.ListByEntity(ctx, domain.ListAuditRequest{EntityID: node.Generate().String()}); !errors.Is(err, domain.ErrInvalidEntity) {
		t.Fatalf("expected ErrInvalidEntity, got %v", err)
	}
	if _, err := svc.ListByEntity(ctx, domain.ListAuditRequest{EntityKind: "CUSTOMER", EntityID: "junk"}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	start := baseTime.Add(time.Hour)
	end := baseTime
	_, err := svc.ListByEntity(ctx, domain.ListAuditRequest{
		EntityKind: "CUSTOMER",
		EntityID:   node.Generate().String(),
		StartAt:    &start,
		EndAt:      &end,
	})
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}
