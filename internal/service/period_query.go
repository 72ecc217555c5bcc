package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
	"github.com/noah-isme/uniflow-academic-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var periodExportColumns = []string{"Name", "Type", "Year", "Start", "End", "Active", "Duration (days)"}

// ExportFile is a rendered period export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PeriodQueryService answers read-side questions about a student's periods.
type PeriodQueryService struct {
	store    PeriodStore
	cache    *CacheService
	cacheTTL time.Duration
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	now      Clock
	logger   *zap.Logger
}

// NewPeriodQueryService constructs the query service. cache may be nil.
func NewPeriodQueryService(store PeriodStore, cache *CacheService, cacheTTL time.Duration, now Clock, logger *zap.Logger) *PeriodQueryService {
	if now == nil {
		now = defaultClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodQueryService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		now:      now,
		logger:   logger,
	}
}

// FindAll returns one page of the student's periods, newest first.
func (s *PeriodQueryService) FindAll(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) (*models.PeriodPage, error) {
	params = params.Normalize()
	periods, total, err := s.store.List(ctx, studentID, params, filter)
	if err != nil {
		return nil, internalError(err, "failed to list periods")
	}
	if periods == nil {
		periods = []models.Period{}
	}

	s.logger.Debug("periods listed",
		zap.String("student_id", studentID),
		zap.Int("page", params.Page),
		zap.Int("limit", params.Limit),
		zap.Int("returned", len(periods)),
		zap.Int("total", total),
	)
	return &models.PeriodPage{Data: periods, Pagination: models.NewPagination(params, total)}, nil
}

// CurrentActive returns the period flagged active for the student.
func (s *PeriodQueryService) CurrentActive(ctx context.Context, studentID string) (*models.Period, error) {
	period, err := s.store.FindActive(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("no active period", zap.String("student_id", studentID))
			return nil, appErrors.Clone(appErrors.ErrPeriodNotFound, "no active period found for student")
		}
		return nil, internalError(err, "failed to load active period")
	}
	return period, nil
}

// Statistics computes derived counts over every period of the student.
func (s *PeriodQueryService) Statistics(ctx context.Context, studentID string) (*models.PeriodStatistics, error) {
	today := models.DateOf(s.now())
	key := statisticsCacheKey(studentID, today)
	var cached models.PeriodStatistics
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	periods, err := s.store.ListAll(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load periods for statistics")
	}

	stats := ComputePeriodStatistics(periods, today)
	s.cache.Set(ctx, key, stats, s.cacheTTL)

	s.logger.Info("period statistics calculated",
		zap.String("student_id", studentID),
		zap.Int64("total", stats.Total),
		zap.Int64("active", stats.Active),
		zap.Int64("current", stats.Current),
	)
	return &stats, nil
}

// InvalidateStatistics drops today's cached statistics for the student. Entries of earlier days
// are never read again and expire on their TTL.
func (s *PeriodQueryService) InvalidateStatistics(ctx context.Context, studentID string) {
	s.cache.Invalidate(ctx, statisticsCacheKey(studentID, models.DateOf(s.now())))
}

// Export renders the student's periods matching filter as CSV or PDF.
func (s *PeriodQueryService) Export(ctx context.Context, studentID string, filter models.PeriodFilter, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	periods, err := s.store.ListAll(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load periods for export")
	}

	table := export.Table{Title: "Academic periods", Columns: periodExportColumns}
	for _, p := range periods {
		if !filter.Matches(p) {
			continue
		}
		table.AddRow(
			p.Name,
			string(p.Type),
			strconv.Itoa(p.Year),
			p.StartDate.String(),
			p.EndDate.String(),
			strconv.FormatBool(p.IsActive),
			strconv.Itoa(p.DurationDays()),
		)
	}

	stamp := s.now().Format("20060102")
	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, internalError(err, "failed to render periods pdf")
		}
		return &ExportFile{Filename: fmt.Sprintf("periods-%s.pdf", stamp), ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, internalError(err, "failed to render periods csv")
		}
		return &ExportFile{Filename: fmt.Sprintf("periods-%s.csv", stamp), ContentType: "text/csv", Data: data}, nil
	}
}

// ComputePeriodStatistics derives the statistics in a single pass. "Current" is date based and
// independent of the active flag: start and end are both exclusive.
func ComputePeriodStatistics(periods []models.Period, today models.Date) models.PeriodStatistics {
	stats := models.PeriodStatistics{ByType: map[string]int64{}}
	var totalDays int64
	for _, p := range periods {
		stats.Total++
		if p.IsActive {
			stats.Active++
		}
		if p.IsCurrentOn(today) {
			stats.Current++
		}
		if p.IsUpcomingOn(today) {
			stats.Upcoming++
		}
		if p.IsFinishedOn(today) {
			stats.Finished++
		}
		stats.ByType[string(p.Type)]++
		totalDays += int64(p.DurationDays())
	}
	if stats.Total > 0 {
		avg := float64(totalDays) / float64(stats.Total)
		stats.AverageDuration = math.Round(avg*100) / 100
	}
	return stats
}

// statisticsCacheKey is scoped to the day the statistics were classified against.
func statisticsCacheKey(studentID string, day models.Date) string {
	return "periods:stats:" + studentID + ":" + day.String()
}
