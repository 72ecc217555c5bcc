package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uniflow-academic-api/pkg/database"
)

// SubjectRepository answers questions about subjects on behalf of the period domain.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// CountByPeriod returns the number of subjects referencing the period.
func (r *SubjectRepository) CountByPeriod(ctx context.Context, periodID string) (int, error) {
	var count int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM subjects WHERE period_id = $1`, periodID); err != nil {
		return 0, fmt.Errorf("count period subjects: %w", err)
	}
	return count, nil
}
