package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

var contractColumnNames = []string{
	"id", "contract_name", "file_url", "document_type", "reading_style", "status",
	"analysis_data", "created_by", "created_date", "updated_date",
}

func newRepoWithMock(t *testing.T) (*ContractRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewContractRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, contract_name, file_url").
		WithArgs("missing", "alice").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "alice", "missing")
	if !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesAnalysisData(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	analysis, _ := json.Marshal(domain.AnalysisResult{
		ReportTitle: "Lease explained",
		ImportantWordingAttentionPoints: []domain.AttentionPoint{
			{Title: "Renewal", AttentionLevel: domain.AttentionHigh},
		},
	})
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, contract_name, file_url").
		WithArgs("c1", "alice").
		WillReturnRows(sqlmock.NewRows(contractColumnNames).AddRow(
			"c1", "Lease", "https://x/doc.pdf", "personal", "plain", "completed",
			analysis, "alice", created, created,
		))

	c, err := repo.GetByID(context.Background(), "alice", "c1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if c.Status != domain.StatusCompleted || c.DocumentType != domain.DocumentTypePersonal {
		t.Fatalf("unexpected contract: %+v", c)
	}
	if c.AnalysisData == nil || c.AnalysisData.ReportTitle != "Lease explained" {
		t.Fatalf("unexpected analysis data: %+v", c.AnalysisData)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAppliesFilterAndSort(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)WHERE created_by = \$1 AND .*ORDER BY contract_name ASC, id ASC`).
		WithArgs("alice", "analyzing", "", "").
		WillReturnRows(sqlmock.NewRows(contractColumnNames).
			AddRow("c1", "A", "https://x/a.pdf", "other", "plain", "analyzing", nil, "alice", created, created).
			AddRow("c2", "B", "https://x/b.pdf", "other", "plain", "analyzing", nil, "alice", created, created))

	items, err := repo.List(context.Background(), "alice",
		domain.ContractFilter{Status: domain.StatusAnalyzing},
		domain.ContractSort{Field: domain.SortContractName})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != "c1" || items[1].AnalysisData != nil {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMatchesTypeAndNameLiterally(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`(?s)document_type = \$3.*contract_name ILIKE '%' \|\| \$4 \|\| '%'`).
		WithArgs("alice", "", "employment", `50\% off\_deal`).
		WillReturnRows(sqlmock.NewRows(contractColumnNames))

	items, err := repo.List(context.Background(), "alice",
		domain.ContractFilter{DocumentType: domain.DocumentTypeEmployment, NameQuery: "50% off_deal"},
		domain.ParseContractSort(""))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompleteUpdatesOnlyAnalyzingRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("c1", "completed", sqlmock.AnyArg(), sqlmock.AnyArg(), "analyzing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), "c1", &domain.AnalysisResult{ReportTitle: "ok"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedOnTerminalRecordIsInvalidTransition(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("c1", "failed", sqlmock.AnyArg(), sqlmock.AnyArg(), "analyzing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM contracts").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	err := repo.MarkFailed(context.Background(), "c1")
	if !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedOnMissingRecordIsNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("missing", "failed", sqlmock.AnyArg(), sqlmock.AnyArg(), "analyzing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM contracts").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := repo.MarkFailed(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRenameAndDeleteAreOwnerScoped(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE contracts").
		WithArgs("c1", "mallory", "Stolen", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM contracts").
		WithArgs("c1", "mallory").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Rename(context.Background(), "mallory", "c1", "Stolen"); !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound on rename, got %v", err)
	}
	if err := repo.Delete(context.Background(), "mallory", "c1"); !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound on delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS contracts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
