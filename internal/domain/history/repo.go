package history

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for assessment records.
type Repository interface {
	Insert(ctx context.Context, r *AssessmentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error)
	List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, int, error)
}
