package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"ecosense-relay/internal/record"
)

func TestPGStoreGetDecodesValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow(record.KeyAnalysisStatus, []byte(`"success"`)).
		AddRow(record.KeyHasMainProduct, []byte(`true`))
	mock.ExpectQuery("SELECT key, value FROM result_store WHERE key = ANY").
		WillReturnRows(rows)

	s := NewPGStore(db)
	values, err := s.Get(context.Background(), record.KeyAnalysisStatus, record.KeyHasMainProduct)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if values[record.KeyAnalysisStatus] != "success" {
		t.Fatalf("expected success, got %v", values[record.KeyAnalysisStatus])
	}
	if values[record.KeyHasMainProduct] != true {
		t.Fatalf("expected true, got %v", values[record.KeyHasMainProduct])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSetUpsertsAndClears(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	// Keys are applied in sorted order: analysisStatus, then errorMessage.
	mock.ExpectQuery("SELECT value FROM result_store WHERE key =").
		WithArgs(record.KeyAnalysisStatus).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec("INSERT INTO result_store").
		WithArgs(record.KeyAnalysisStatus, []byte(`"loading"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM result_store WHERE key =").
		WithArgs(record.KeyErrorMessage).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s := NewPGStore(db)
	var notified []string
	s.Subscribe(func(changed []string) { notified = changed })

	patch := record.Patch{
		record.KeyAnalysisStatus: "loading",
		record.KeyErrorMessage:   nil,
	}
	if err := s.Set(context.Background(), patch); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 changed keys, got %v", notified)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreSetSkipsUnchangedValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT value FROM result_store WHERE key =").
		WithArgs(record.KeyAnalysisStatus).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`"loading"`)))
	mock.ExpectCommit()

	s := NewPGStore(db)
	called := false
	s.Subscribe(func([]string) { called = true })

	if err := s.Set(context.Background(), record.Patch{record.KeyAnalysisStatus: "loading"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if called {
		t.Fatalf("expected no notification for unchanged value")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
