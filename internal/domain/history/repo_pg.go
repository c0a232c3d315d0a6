package history

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &historyRepoPG{pool: pool}
}

const recordCols = `id, query, patient_text, status, missing_parameters,
	predictions, report, follow_up_questions, routing_explanation,
	routing_summary, message, created_at`

func scanRecord(row pgx.Row) (*AssessmentRecord, error) {
	var r AssessmentRecord
	err := row.Scan(&r.ID, &r.Query, &r.PatientText, &r.Status, &r.MissingParameters,
		&r.Predictions, &r.Report, &r.FollowUpQuestions, &r.RoutingExplanation,
		&r.RoutingSummary, &r.Message, &r.CreatedAt)
	return &r, err
}

func (p *historyRepoPG) Insert(ctx context.Context, r *AssessmentRecord) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO assessment_record (id, query, patient_text, status,
			missing_parameters, predictions, report, follow_up_questions,
			routing_explanation, routing_summary, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.Query, r.PatientText, r.Status, r.MissingParameters,
		r.Predictions, r.Report, r.FollowUpQuestions, r.RoutingExplanation,
		r.RoutingSummary, r.Message, r.CreatedAt)
	return err
}

func (p *historyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	return scanRecord(p.pool.QueryRow(ctx, `SELECT `+recordCols+` FROM assessment_record WHERE id = $1`, id))
}

func (p *historyRepoPG) List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessment_record`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx, `SELECT `+recordCols+` FROM assessment_record ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AssessmentRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
