package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	"github.com/noah-isme/uniflow-academic-api/pkg/database"
)

const periodColumns = "id, name, type, year, start_date, end_date, student_id, is_active, created_at, updated_at"

// QueryObserver receives query timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type subjectCounter interface {
	CountByPeriod(ctx context.Context, periodID string) (int, error)
}

// PeriodRepository handles persistence for academic periods. Every query is scoped by student.
type PeriodRepository struct {
	db       *sqlx.DB
	subjects subjectCounter
	observer QueryObserver
}

// NewPeriodRepository instantiates a period repository.
func NewPeriodRepository(db *sqlx.DB, subjects subjectCounter, observer QueryObserver) *PeriodRepository {
	return &PeriodRepository{db: db, subjects: subjects, observer: observer}
}

func (r *PeriodRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// Create inserts a new period record.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	defer r.observe("periods.create", time.Now())
	const query = `INSERT INTO periods (id, name, type, year, start_date, end_date, student_id, is_active, created_at, updated_at) VALUES (:id, :name, :type, :year, :start_date, :end_date, :student_id, :is_active, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update overwrites the descriptive columns of a period owned by the period's student.
// is_active is only written through SetActive.
func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	defer r.observe("periods.update", time.Now())
	const query = `UPDATE periods SET name = :name, type = :type, year = :year, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id AND student_id = :student_id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, period)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return requireAffected(res, "update period")
}

// SetActive flips the active flag of a period owned by the student.
func (r *PeriodRepository) SetActive(ctx context.Context, id, studentID string, active bool, updatedAt time.Time) error {
	defer r.observe("periods.set_active", time.Now())
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE periods SET is_active = $1, updated_at = $2 WHERE id = $3 AND student_id = $4`,
		active, updatedAt, id, studentID)
	if err != nil {
		return fmt.Errorf("set period active: %w", err)
	}
	return requireAffected(res, "set period active")
}

// FindByID loads a period by identifier and owner.
func (r *PeriodRepository) FindByID(ctx context.Context, id, studentID string) (*models.Period, error) {
	defer r.observe("periods.find_by_id", time.Now())
	query := fmt.Sprintf("SELECT %s FROM periods WHERE id = $1 AND student_id = $2", periodColumns)
	var period models.Period
	if err := database.Conn(ctx, r.db).GetContext(ctx, &period, query, id, studentID); err != nil {
		return nil, err
	}
	return &period, nil
}

// Exists reports whether the period belongs to the student.
func (r *PeriodRepository) Exists(ctx context.Context, id, studentID string) (bool, error) {
	defer r.observe("periods.exists", time.Now())
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM periods WHERE id = $1 AND student_id = $2)`, id, studentID); err != nil {
		return false, fmt.Errorf("check period existence: %w", err)
	}
	return exists, nil
}

// List returns a page of the student's periods ordered by start date, newest first, plus the
// total number of matching rows. Params are expected to be normalised.
func (r *PeriodRepository) List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) ([]models.Period, int, error) {
	if filter.IsEmpty() {
		return r.listByStudent(ctx, studentID, params)
	}
	return r.listFiltered(ctx, studentID, params, filter)
}

func (r *PeriodRepository) listByStudent(ctx context.Context, studentID string, params models.PaginationParams) ([]models.Period, int, error) {
	defer r.observe("periods.list", time.Now())
	params = params.Normalize()
	conn := database.Conn(ctx, r.db)

	query := fmt.Sprintf("SELECT %s FROM periods WHERE student_id = $1 ORDER BY start_date DESC LIMIT %d OFFSET %d", periodColumns, params.Limit, params.Offset())
	periods := []models.Period{}
	if err := conn.SelectContext(ctx, &periods, query, studentID); err != nil {
		return nil, 0, fmt.Errorf("list periods: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM periods WHERE student_id = $1`, studentID); err != nil {
		return nil, 0, fmt.Errorf("count periods: %w", err)
	}
	return periods, total, nil
}

func (r *PeriodRepository) listFiltered(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) ([]models.Period, int, error) {
	defer r.observe("periods.list_filtered", time.Now())
	params = params.Normalize()
	conn := database.Conn(ctx, r.db)

	conditions := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	query := fmt.Sprintf("SELECT %s FROM periods %s ORDER BY start_date DESC LIMIT %d OFFSET %d", periodColumns, where, params.Limit, params.Offset())
	periods := []models.Period{}
	if err := conn.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list filtered periods: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM periods "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count filtered periods: %w", err)
	}
	return periods, total, nil
}

// ListAll returns every period of the student without pagination.
func (r *PeriodRepository) ListAll(ctx context.Context, studentID string) ([]models.Period, error) {
	defer r.observe("periods.list_all", time.Now())
	query := fmt.Sprintf("SELECT %s FROM periods WHERE student_id = $1 ORDER BY start_date DESC", periodColumns)
	periods := []models.Period{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &periods, query, studentID); err != nil {
		return nil, fmt.Errorf("list all periods: %w", err)
	}
	return periods, nil
}

// FindActive returns the student's active period.
func (r *PeriodRepository) FindActive(ctx context.Context, studentID string) (*models.Period, error) {
	defer r.observe("periods.find_active", time.Now())
	query := fmt.Sprintf("SELECT %s FROM periods WHERE student_id = $1 AND is_active = TRUE ORDER BY updated_at DESC LIMIT 1", periodColumns)
	var period models.Period
	if err := database.Conn(ctx, r.db).GetContext(ctx, &period, query, studentID); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindAllActive returns every period of the student flagged active.
func (r *PeriodRepository) FindAllActive(ctx context.Context, studentID string) ([]models.Period, error) {
	defer r.observe("periods.find_all_active", time.Now())
	query := fmt.Sprintf("SELECT %s FROM periods WHERE student_id = $1 AND is_active = TRUE", periodColumns)
	periods := []models.Period{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &periods, query, studentID); err != nil {
		return nil, fmt.Errorf("list active periods: %w", err)
	}
	return periods, nil
}

// Delete removes a period permanently.
func (r *PeriodRepository) Delete(ctx context.Context, id, studentID string) error {
	defer r.observe("periods.delete", time.Now())
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM periods WHERE id = $1 AND student_id = $2`, id, studentID)
	if err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	return requireAffected(res, "delete period")
}

// HasAssociatedSubjects reports whether any subject references the period.
func (r *PeriodRepository) HasAssociatedSubjects(ctx context.Context, id string) (bool, error) {
	count, err := r.subjects.CountByPeriod(ctx, id)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
