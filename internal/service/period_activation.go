package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

// PeriodActivator keeps at most one active period per student.
type PeriodActivator struct {
	store  PeriodStore
	tx     StudentTx
	now    Clock
	logger *zap.Logger
}

// NewPeriodActivator constructs an activator.
func NewPeriodActivator(store PeriodStore, tx StudentTx, now Clock, logger *zap.Logger) *PeriodActivator {
	if now == nil {
		now = defaultClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodActivator{store: store, tx: tx, now: now, logger: logger}
}

// Activate flags the period active and clears the flag on every other active period of the
// student. The whole sequence runs inside the student's transaction.
func (a *PeriodActivator) Activate(ctx context.Context, periodID, studentID string) (*models.Period, error) {
	var activated models.Period
	err := a.tx.RunInStudentTx(ctx, studentID, func(txCtx context.Context) error {
		target, err := a.store.FindByID(txCtx, periodID, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrPeriodNotFound, "period not found: "+periodID)
			}
			return internalError(err, "failed to load period")
		}

		active, err := a.store.FindAllActive(txCtx, studentID)
		if err != nil {
			return internalError(err, "failed to load active periods")
		}

		now := a.now()
		for _, current := range active {
			if current.ID == periodID {
				continue
			}
			deactivated, err := current.Deactivated(now)
			if err != nil {
				return err
			}
			if err := a.store.SetActive(txCtx, deactivated.ID, studentID, false, deactivated.UpdatedAt); err != nil {
				return internalError(err, "failed to deactivate period")
			}
			a.logger.Debug("period deactivated", zap.String("period_id", current.ID), zap.String("student_id", studentID))
		}

		next, err := target.Activated(now)
		if err != nil {
			return err
		}
		if err := a.store.SetActive(txCtx, next.ID, studentID, true, next.UpdatedAt); err != nil {
			return internalError(err, "failed to activate period")
		}
		activated = next
		return nil
	})
	if err != nil {
		return nil, internalError(err, "failed to activate period")
	}

	a.logger.Info("period activated", zap.String("period_id", periodID), zap.String("student_id", studentID))
	return &activated, nil
}
