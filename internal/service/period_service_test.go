package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uniflow-academic-api/internal/models"
	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

type periodStoreStub struct {
	periods  map[string]models.Period
	subjects map[string]int
	updates  []models.Period
	deleted  []string
	listArgs []models.PaginationParams
	err      error
}

func newPeriodStoreStub() *periodStoreStub {
	return &periodStoreStub{periods: map[string]models.Period{}, subjects: map[string]int{}}
}

func (s *periodStoreStub) Create(ctx context.Context, period *models.Period) error {
	if s.err != nil {
		return s.err
	}
	s.periods[period.ID] = *period
	return nil
}

func (s *periodStoreStub) Update(ctx context.Context, period *models.Period) error {
	if s.err != nil {
		return s.err
	}
	stored, ok := s.periods[period.ID]
	if !ok || stored.StudentID != period.StudentID {
		return sql.ErrNoRows
	}
	next := *period
	next.IsActive = stored.IsActive
	s.periods[period.ID] = next
	s.updates = append(s.updates, next)
	return nil
}

func (s *periodStoreStub) SetActive(ctx context.Context, id, studentID string, active bool, updatedAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	stored, ok := s.periods[id]
	if !ok || stored.StudentID != studentID {
		return sql.ErrNoRows
	}
	stored.IsActive = active
	stored.UpdatedAt = updatedAt
	s.periods[id] = stored
	s.updates = append(s.updates, stored)
	return nil
}

func (s *periodStoreStub) FindByID(ctx context.Context, id, studentID string) (*models.Period, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.periods[id]
	if !ok || p.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (s *periodStoreStub) Exists(ctx context.Context, id, studentID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	p, ok := s.periods[id]
	return ok && p.StudentID == studentID, nil
}

func (s *periodStoreStub) List(ctx context.Context, studentID string, params models.PaginationParams, filter models.PeriodFilter) ([]models.Period, int, error) {
	s.listArgs = append(s.listArgs, params)
	all, err := s.ListAll(ctx, studentID)
	if err != nil {
		return nil, 0, err
	}
	var matched []models.Period
	for _, p := range all {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (s *periodStoreStub) ListAll(ctx context.Context, studentID string) ([]models.Period, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Period
	for _, p := range s.periods {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *periodStoreStub) FindActive(ctx context.Context, studentID string) (*models.Period, error) {
	active, err := s.FindAllActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, sql.ErrNoRows
	}
	return &active[0], nil
}

func (s *periodStoreStub) FindAllActive(ctx context.Context, studentID string) ([]models.Period, error) {
	all, err := s.ListAll(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var active []models.Period
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *periodStoreStub) Delete(ctx context.Context, id, studentID string) error {
	if _, err := s.FindByID(ctx, id, studentID); err != nil {
		return err
	}
	delete(s.periods, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *periodStoreStub) HasAssociatedSubjects(ctx context.Context, id string) (bool, error) {
	return s.subjects[id] > 0, nil
}

type studentTxStub struct {
	calls    []string
	nested   bool
	failWith error
}

func (t *studentTxStub) RunInStudentTx(ctx context.Context, studentID string, fn func(context.Context) error) error {
	t.calls = append(t.calls, studentID)
	if t.failWith != nil {
		return t.failWith
	}
	return fn(ctx)
}

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestPeriodService(store *periodStoreStub, tx *studentTxStub) *PeriodService {
	logger := zap.NewNop()
	activator := NewPeriodActivator(store, tx, fixedClock, logger)
	queries := NewPeriodQueryService(store, nil, time.Minute, fixedClock, logger)
	return NewPeriodService(store, tx, activator, queries, nil, nil, fixedClock, logger)
}

func firstSemesterRequest() CreatePeriodRequest {
	return CreatePeriodRequest{
		Name:      "I Semestre",
		Type:      "first-semester",
		Year:      2025,
		StartDate: models.NewDate(2025, time.February, 3),
		EndDate:   models.NewDate(2025, time.June, 20),
	}
}

func TestPeriodServiceCreate(t *testing.T) {
	store := newPeriodStoreStub()
	svc := newTestPeriodService(store, &studentTxStub{})

	period, err := svc.Create(context.Background(), "s1", firstSemesterRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, period.ID)
	assert.False(t, period.IsActive)
	assert.Equal(t, "s1", period.StudentID)
	assert.Equal(t, models.PeriodTypeFirstSemester, period.Type)
	assert.Equal(t, period.CreatedAt, period.UpdatedAt)
	assert.Contains(t, store.periods, period.ID)
}

func TestPeriodServiceCreateRejectsInvalidInput(t *testing.T) {
	cases := map[string]struct {
		mutate func(*CreatePeriodRequest)
		code   string
	}{
		"unknown type":     {func(r *CreatePeriodRequest) { r.Type = "invalid" }, appErrors.ErrInvalidPeriodType.Code},
		"uppercase type":   {func(r *CreatePeriodRequest) { r.Type = "First-Semester" }, appErrors.ErrInvalidPeriodType.Code},
		"equal dates":      {func(r *CreatePeriodRequest) { r.EndDate = r.StartDate }, appErrors.ErrInvalidPeriod.Code},
		"reversed dates":   {func(r *CreatePeriodRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }, appErrors.ErrInvalidPeriod.Code},
		"year too small":   {func(r *CreatePeriodRequest) { r.Year = 1899 }, appErrors.ErrInvalidPeriod.Code},
		"year too large":   {func(r *CreatePeriodRequest) { r.Year = 2101 }, appErrors.ErrInvalidPeriod.Code},
		"blank name":       {func(r *CreatePeriodRequest) { r.Name = "   " }, appErrors.ErrInvalidPeriod.Code},
		"missing end date": {func(r *CreatePeriodRequest) { r.EndDate = models.Date{} }, appErrors.ErrInvalidPeriod.Code},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := newPeriodStoreStub()
			svc := newTestPeriodService(store, &studentTxStub{})
			req := firstSemesterRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), "s1", req)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, tc.code), "got %v", err)
			assert.Empty(t, store.periods)
		})
	}
}

func TestPeriodServiceUpdate(t *testing.T) {
	store := newPeriodStoreStub()
	svc := newTestPeriodService(store, &studentTxStub{})
	ctx := context.Background()
	created, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)

	t.Run("no fields", func(t *testing.T) {
		_, err := svc.Update(ctx, "s1", created.ID, UpdatePeriodRequest{})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidPeriod.Code))
	})

	t.Run("name only keeps other fields", func(t *testing.T) {
		name := "Primer Semestre"
		updated, err := svc.Update(ctx, "s1", created.ID, UpdatePeriodRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, updated.Name)
		assert.Equal(t, created.Type, updated.Type)
		assert.Equal(t, created.Year, updated.Year)
		assert.Equal(t, created.StartDate, updated.StartDate)
		assert.Equal(t, created.EndDate, updated.EndDate)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, created.IsActive, updated.IsActive)
	})

	t.Run("invalid merged dates", func(t *testing.T) {
		end := models.NewDate(2025, time.January, 1)
		_, err := svc.Update(ctx, "s1", created.ID, UpdatePeriodRequest{EndDate: &end})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidPeriod.Code))
	})

	t.Run("invalid type", func(t *testing.T) {
		bad := "winter"
		_, err := svc.Update(ctx, "s1", created.ID, UpdatePeriodRequest{Type: &bad})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidPeriodType.Code))
	})

	t.Run("other student", func(t *testing.T) {
		year := 2026
		_, err := svc.Update(ctx, "s2", created.ID, UpdatePeriodRequest{Year: &year})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))
	})
}

func TestPeriodServiceDelete(t *testing.T) {
	store := newPeriodStoreStub()
	svc := newTestPeriodService(store, &studentTxStub{})
	ctx := context.Background()

	withSubjects, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)
	store.subjects[withSubjects.ID] = 2

	err = svc.Delete(ctx, "s1", withSubjects.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodHasDependents.Code))
	assert.Contains(t, store.periods, withSubjects.ID)

	empty, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "s1", empty.ID))
	assert.NotContains(t, store.periods, empty.ID)

	err = svc.Delete(ctx, "s1", empty.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))

	err = svc.Delete(ctx, "s2", withSubjects.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))
}

func TestPeriodServiceDeleteRunsInStudentTx(t *testing.T) {
	store := newPeriodStoreStub()
	tx := &studentTxStub{}
	svc := newTestPeriodService(store, tx)
	ctx := context.Background()

	created, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "s1", created.ID))
	assert.Equal(t, []string{"s1"}, tx.calls)

	kept, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)
	locked := newTestPeriodService(store, &studentTxStub{failWith: errors.New("lock timeout")})
	err = locked.Delete(ctx, "s1", kept.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Contains(t, store.periods, kept.ID)
}

// interleavingStore runs afterRead once, right after the first FindByID returns.
type interleavingStore struct {
	*periodStoreStub
	afterRead func()
}

func (s *interleavingStore) FindByID(ctx context.Context, id, studentID string) (*models.Period, error) {
	period, err := s.periodStoreStub.FindByID(ctx, id, studentID)
	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook()
	}
	return period, err
}

func TestPeriodServiceUpdateKeepsActivationFromConcurrentActivate(t *testing.T) {
	ctx := context.Background()
	inner := newPeriodStoreStub()
	first := mustPeriod(t, "s1", "first", models.NewDate(2025, 1, 10), models.NewDate(2025, 5, 1), true)
	second := mustPeriod(t, "s1", "second", models.NewDate(2025, 8, 4), models.NewDate(2025, 12, 12), false)
	inner.periods[first.ID] = first
	inner.periods[second.ID] = second

	store := &interleavingStore{periodStoreStub: inner}
	tx := &studentTxStub{}
	logger := zap.NewNop()
	activator := NewPeriodActivator(inner, tx, fixedClock, logger)
	queries := NewPeriodQueryService(inner, nil, time.Minute, fixedClock, logger)
	svc := NewPeriodService(store, tx, activator, queries, nil, nil, fixedClock, logger)

	store.afterRead = func() {
		_, err := activator.Activate(ctx, second.ID, "s1")
		require.NoError(t, err)
	}

	name := "Renamed"
	_, err := svc.Update(ctx, "s1", first.ID, UpdatePeriodRequest{Name: &name})
	require.NoError(t, err)

	active, err := inner.FindAllActive(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, "Renamed", inner.periods[first.ID].Name)
	assert.False(t, inner.periods[first.ID].IsActive)
	assert.Equal(t, []string{"s1", "s1"}, tx.calls)
}

func TestPeriodServiceActivationScenario(t *testing.T) {
	store := newPeriodStoreStub()
	tx := &studentTxStub{}
	svc := newTestPeriodService(store, tx)
	ctx := context.Background()

	first, err := svc.Create(ctx, "s1", firstSemesterRequest())
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	activated, err := svc.Activate(ctx, "s1", first.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	secondReq := firstSemesterRequest()
	secondReq.Name = "II Semestre"
	secondReq.Type = "second-semester"
	secondReq.StartDate = models.NewDate(2025, time.August, 4)
	secondReq.EndDate = models.NewDate(2025, time.December, 12)
	second, err := svc.Create(ctx, "s1", secondReq)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, "s1", second.ID)
	require.NoError(t, err)

	assert.False(t, store.periods[first.ID].IsActive)
	assert.True(t, store.periods[second.ID].IsActive)
	assert.Equal(t, []string{"s1", "s1"}, tx.calls)

	current, err := svc.GetCurrent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestPeriodActivatorClearsEveryOtherActivePeriod(t *testing.T) {
	store := newPeriodStoreStub()
	target := mustPeriod(t, "s1", "target", models.NewDate(2025, 1, 10), models.NewDate(2025, 5, 1), false)
	stale1 := mustPeriod(t, "s1", "stale-1", models.NewDate(2024, 1, 10), models.NewDate(2024, 5, 1), true)
	stale2 := mustPeriod(t, "s1", "stale-2", models.NewDate(2023, 1, 10), models.NewDate(2023, 5, 1), true)
	other := mustPeriod(t, "s2", "other", models.NewDate(2025, 1, 10), models.NewDate(2025, 5, 1), true)
	for _, p := range []models.Period{target, stale1, stale2, other} {
		store.periods[p.ID] = p
	}

	activator := NewPeriodActivator(store, &studentTxStub{}, fixedClock, nil)
	got, err := activator.Activate(context.Background(), target.ID, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, fixedNow, got.UpdatedAt)

	active, err := store.FindAllActive(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, target.ID, active[0].ID)
	assert.True(t, store.periods[other.ID].IsActive)
	assert.Equal(t, fixedNow, store.periods[stale1.ID].UpdatedAt)
}

func TestPeriodActivatorNotFoundLeavesStateUntouched(t *testing.T) {
	store := newPeriodStoreStub()
	active := mustPeriod(t, "s1", "active", models.NewDate(2025, 1, 10), models.NewDate(2025, 5, 1), true)
	store.periods[active.ID] = active

	activator := NewPeriodActivator(store, &studentTxStub{}, fixedClock, nil)
	_, err := activator.Activate(context.Background(), "missing", "s1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))
	assert.Empty(t, store.updates)
	assert.True(t, store.periods[active.ID].IsActive)
}

func TestPeriodActivatorPropagatesTxFailure(t *testing.T) {
	store := newPeriodStoreStub()
	activator := NewPeriodActivator(store, &studentTxStub{failWith: errors.New("lock timeout")}, fixedClock, nil)

	_, err := activator.Activate(context.Background(), "p1", "s1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestPeriodServiceGetCurrentWithoutActive(t *testing.T) {
	svc := newTestPeriodService(newPeriodStoreStub(), &studentTxStub{})
	_, err := svc.GetCurrent(context.Background(), "s1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))
}

func TestPeriodServiceGetIsScopedByStudent(t *testing.T) {
	store := newPeriodStoreStub()
	svc := newTestPeriodService(store, &studentTxStub{})
	created, err := svc.Create(context.Background(), "s1", firstSemesterRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), "s1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), "s2", created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPeriodNotFound.Code))
}

func TestPeriodServiceStoreFailureIsInternal(t *testing.T) {
	store := newPeriodStoreStub()
	store.err = errors.New("connection reset")
	svc := newTestPeriodService(store, &studentTxStub{})

	_, err := svc.Create(context.Background(), "s1", firstSemesterRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func mustPeriod(t *testing.T, studentID, name string, start, end models.Date, active bool) models.Period {
	t.Helper()
	p, err := models.NewPeriod(models.NewPeriodParams{
		Name:      name,
		Type:      models.PeriodTypeSpecial,
		Year:      start.Year(),
		StartDate: start,
		EndDate:   end,
		StudentID: studentID,
	}, fixedNow.Add(-24*time.Hour))
	require.NoError(t, err)
	if active {
		p, err = p.Activated(p.CreatedAt)
		require.NoError(t, err)
	}
	return p
}
