package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

// PeriodStore is the persistence port for periods. Every lookup is scoped by student.
type PeriodStore interface {
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	SetActive(ctx context.Context, id, studentID string, active bool, updatedAt time.Time) error
	FindByID(ctx context.Context, id, studentID string) (*models.Period, error)
	Exists(ctx context.Context, id, studentID string) (bool, error)
	List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) ([]models.Period, int, error)
	ListAll(ctx context.Context, studentID string) ([]models.Period, error)
	FindActive(ctx context.Context, studentID string) (*models.Period, error)
	FindAllActive(ctx context.Context, studentID string) ([]models.Period, error)
	Delete(ctx context.Context, id, studentID string) error
	HasAssociatedSubjects(ctx context.Context, id string) (bool, error)
}

// StudentTx runs fn in a transaction serialized per student.
type StudentTx interface {
	RunInStudentTx(ctx context.Context, studentID string, fn func(txCtx context.Context) error) error
}

// Clock returns the current time.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

// CreatePeriodRequest is the payload for creating a period.
type CreatePeriodRequest struct {
	Name      string      `json:"name" validate:"required,max=255"`
	Type      string      `json:"type" validate:"required"`
	Year      int         `json:"year" validate:"required"`
	StartDate models.Date `json:"startDate"`
	EndDate   models.Date `json:"endDate"`
}

// UpdatePeriodRequest carries optional fields; nil keeps the stored value.
type UpdatePeriodRequest struct {
	Name      *string      `json:"name,omitempty" validate:"omitempty,max=255"`
	Type      *string      `json:"type,omitempty"`
	Year      *int         `json:"year,omitempty"`
	StartDate *models.Date `json:"startDate,omitempty"`
	EndDate   *models.Date `json:"endDate,omitempty"`
}

// HasAnyField reports whether at least one field was supplied.
func (r UpdatePeriodRequest) HasAnyField() bool {
	return r.Name != nil || r.Type != nil || r.Year != nil || r.StartDate != nil || r.EndDate != nil
}

// PeriodService orchestrates the period lifecycle for an authenticated student.
type PeriodService struct {
	store     PeriodStore
	tx        StudentTx
	activator *PeriodActivator
	queries   *PeriodQueryService
	validator *validator.Validate
	metrics   *MetricsService
	now       Clock
	logger    *zap.Logger
}

// NewPeriodService wires the lifecycle service.
func NewPeriodService(store PeriodStore, tx StudentTx, activator *PeriodActivator, queries *PeriodQueryService, validate *validator.Validate, metrics *MetricsService, now Clock, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if now == nil {
		now = defaultClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{
		store:     store,
		tx:        tx,
		activator: activator,
		queries:   queries,
		validator: validate,
		metrics:   metrics,
		now:       now,
		logger:    logger,
	}
}

// Create validates the payload and stores a new inactive period.
func (s *PeriodService) Create(ctx context.Context, studentID string, req CreatePeriodRequest) (period *models.Period, err error) {
	defer func() { s.record("create", err) }()

	periodType, err := models.ParsePeriodType(req.Type)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPeriod.Code, appErrors.ErrInvalidPeriod.Status, "invalid period payload")
	}

	created, err := models.NewPeriod(models.NewPeriodParams{
		Name:      req.Name,
		Type:      periodType,
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StudentID: studentID,
	}, s.now())
	if err != nil {
		return nil, asInvalidPeriod(err)
	}

	if err := s.store.Create(ctx, &created); err != nil {
		return nil, internalError(err, "failed to create period")
	}
	s.queries.InvalidateStatistics(ctx, studentID)

	s.logger.Info("period created",
		zap.String("period_id", created.ID),
		zap.String("student_id", studentID),
		zap.String("type", string(created.Type)),
	)
	return &created, nil
}

// Update applies the supplied fields to the stored period.
func (s *PeriodService) Update(ctx context.Context, studentID, id string, req UpdatePeriodRequest) (period *models.Period, err error) {
	defer func() { s.record("update", err) }()

	if !req.HasAnyField() {
		return nil, appErrors.Clone(appErrors.ErrInvalidPeriod, "at least one field required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidPeriod.Code, appErrors.ErrInvalidPeriod.Status, "invalid period payload")
	}

	update := models.PeriodUpdate{
		Name:      req.Name,
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if req.Type != nil {
		periodType, err := models.ParsePeriodType(*req.Type)
		if err != nil {
			return nil, err
		}
		update.Type = &periodType
	}

	var next models.Period
	err = s.tx.RunInStudentTx(ctx, studentID, func(txCtx context.Context) error {
		current, err := s.load(txCtx, id, studentID)
		if err != nil {
			return err
		}
		next, err = current.WithUpdates(update, s.now())
		if err != nil {
			return asInvalidPeriod(err)
		}
		if err := s.store.Update(txCtx, &next); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return periodNotFound(id)
			}
			return internalError(err, "failed to update period")
		}
		return nil
	})
	if err != nil {
		return nil, internalError(err, "failed to update period")
	}
	s.queries.InvalidateStatistics(ctx, studentID)

	s.logger.Info("period updated", zap.String("period_id", id), zap.String("student_id", studentID))
	return &next, nil
}

// Delete removes a period that has no associated subjects. The checks and the delete share
// the student's transaction.
func (s *PeriodService) Delete(ctx context.Context, studentID, id string) (err error) {
	defer func() { s.record("delete", err) }()

	err = s.tx.RunInStudentTx(ctx, studentID, func(txCtx context.Context) error {
		exists, err := s.store.Exists(txCtx, id, studentID)
		if err != nil {
			return internalError(err, "failed to check period")
		}
		if !exists {
			return periodNotFound(id)
		}

		hasSubjects, err := s.store.HasAssociatedSubjects(txCtx, id)
		if err != nil {
			return internalError(err, "failed to check associated subjects")
		}
		if hasSubjects {
			return appErrors.Clone(appErrors.ErrPeriodHasDependents, "")
		}

		if err := s.store.Delete(txCtx, id, studentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return periodNotFound(id)
			}
			return internalError(err, "failed to delete period")
		}
		return nil
	})
	if err != nil {
		return internalError(err, "failed to delete period")
	}
	s.queries.InvalidateStatistics(ctx, studentID)

	s.logger.Info("period deleted", zap.String("period_id", id), zap.String("student_id", studentID))
	return nil
}

// Get returns a single period owned by the student.
func (s *PeriodService) Get(ctx context.Context, studentID, id string) (*models.Period, error) {
	return s.load(ctx, id, studentID)
}

// GetCurrent returns the period flagged active.
func (s *PeriodService) GetCurrent(ctx context.Context, studentID string) (*models.Period, error) {
	return s.queries.CurrentActive(ctx, studentID)
}

// Activate makes the period the student's only active one.
func (s *PeriodService) Activate(ctx context.Context, studentID, id string) (period *models.Period, err error) {
	defer func() { s.record("activate", err) }()

	period, err = s.activator.Activate(ctx, id, studentID)
	if err != nil {
		return nil, err
	}
	s.queries.InvalidateStatistics(ctx, studentID)
	return period, nil
}

// List returns a page of periods.
func (s *PeriodService) List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) (*models.PeriodPage, error) {
	return s.queries.FindAll(ctx, studentID, params, filter)
}

// Statistics returns derived period metrics.
func (s *PeriodService) Statistics(ctx context.Context, studentID string) (*models.PeriodStatistics, error) {
	return s.queries.Statistics(ctx, studentID)
}

// Export renders the filtered periods in the requested format.
func (s *PeriodService) Export(ctx context.Context, studentID string, filter models.PeriodFilter, format string) (*ExportFile, error) {
	return s.queries.Export(ctx, studentID, filter, format)
}

func (s *PeriodService) load(ctx context.Context, id, studentID string) (*models.Period, error) {
	period, err := s.store.FindByID(ctx, id, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, periodNotFound(id)
		}
		return nil, internalError(err, "failed to load period")
	}
	return period, nil
}

func (s *PeriodService) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.RecordPeriodOperation(operation, outcome)
}

func periodNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrPeriodNotFound, "period not found: "+id)
}

// asInvalidPeriod keeps domain errors and folds anything unexpected into InvalidPeriod.
func asInvalidPeriod(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInvalidPeriod.Code, appErrors.ErrInvalidPeriod.Status, "invalid period: "+err.Error())
}

// internalError passes typed errors through and wraps everything else as internal.
func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
