package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

const contractColumns = `id, contract_name, file_url, document_type, reading_style, status, analysis_data, created_by, created_date, updated_date`

type ContractRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *ContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	analysisJSON, err := marshalAnalysis(c.AnalysisData)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO contracts (`+contractColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		c.ID, c.ContractName, c.FileURL, string(c.DocumentType), string(c.ReadingStyle), string(c.Status),
		analysisJSON, c.CreatedBy, c.CreatedDate, c.UpdatedDate,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Contract, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+contractColumns+`
FROM contracts
WHERE id = $1 AND created_by = $2
`, id, ownerID)

	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrContractNotFound, "get contract", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return c, nil
}

func (r *ContractRepository) List(
	ctx context.Context,
	ownerID string,
	filter domain.ContractFilter,
	sort domain.ContractSort,
) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+contractColumns+`
FROM contracts
WHERE created_by = $1
  AND ($2::text = '' OR status = $2)
  AND ($3::text = '' OR document_type = $3)
  AND ($4::text = '' OR contract_name ILIKE '%' || $4 || '%')
ORDER BY `+orderClause(sort),
		ownerID, string(filter.Status), string(filter.DocumentType), escapeLike(filter.NameQuery))
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}

func (r *ContractRepository) Rename(ctx context.Context, ownerID, id, name string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE contracts
SET contract_name = $3, updated_date = $4
WHERE id = $1 AND created_by = $2
`, id, ownerID, name, r.now())
	if err != nil {
		return fmt.Errorf("rename contract: %w", err)
	}
	return requireAffected(res, "rename contract", id)
}

func (r *ContractRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	return requireAffected(res, "delete contract", id)
}

// Complete stores the analysis and moves the record to completed. Only an
// analyzing record can be completed; the first terminal write wins.
func (r *ContractRepository) Complete(ctx context.Context, id string, result *domain.AnalysisResult) error {
	analysisJSON, err := marshalAnalysis(result)
	if err != nil {
		return err
	}
	return r.transition(ctx, "complete contract", id, domain.StatusCompleted, analysisJSON)
}

// MarkFailed moves an analyzing record to failed. It is not owner-scoped.
func (r *ContractRepository) MarkFailed(ctx context.Context, id string) error {
	return r.transition(ctx, "mark contract failed", id, domain.StatusFailed, nil)
}

func (r *ContractRepository) transition(
	ctx context.Context,
	operation, id string,
	to domain.ContractStatus,
	analysisJSON []byte,
) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE contracts
SET status = $2, analysis_data = COALESCE($3, analysis_data), updated_date = $4
WHERE id = $1 AND status = $5
`, id, string(to), analysisJSON, r.now(), string(domain.StatusAnalyzing))
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM contracts WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrContractNotFound, operation, fmt.Errorf("id=%s", id))
	}
	if err != nil {
		return fmt.Errorf("%s lookup: %w", operation, err)
	}
	return domain.WrapError(domain.ErrInvalidTransition, operation, fmt.Errorf("id=%s is %s", id, current))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	var c domain.Contract
	var documentType, readingStyle, status string
	var analysisRaw []byte

	err := row.Scan(
		&c.ID, &c.ContractName, &c.FileURL, &documentType, &readingStyle, &status,
		&analysisRaw, &c.CreatedBy, &c.CreatedDate, &c.UpdatedDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan contract: %w", err)
	}

	c.DocumentType = domain.DocumentType(documentType)
	c.ReadingStyle = domain.ReadingStyle(readingStyle)
	c.Status = domain.ContractStatus(status)
	if len(analysisRaw) > 0 {
		var result domain.AnalysisResult
		if err := json.Unmarshal(analysisRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal analysis_data: %w", err)
		}
		c.AnalysisData = &result
	}
	return &c, nil
}

func marshalAnalysis(result *domain.AnalysisResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis_data: %w", err)
	}
	return data, nil
}

func orderClause(sort domain.ContractSort) string {
	column := "created_date"
	switch sort.Field {
	case domain.SortUpdatedDate:
		column = "updated_date"
	case domain.SortContractName:
		column = "contract_name"
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	return column + " " + direction + ", id " + direction
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrContractNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a user search term match literally inside ILIKE.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
