package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/expense-report/internal/models"
	"github.com/magabrotheeeer/expense-report/internal/report/xlsx"
)

// fakeReportStore memStore с загрузкой и выдачей ссылок.
type fakeReportStore struct {
	memStore
	uploaded  []string
	uploadErr error
}

func (f *fakeReportStore) Upload(_ context.Context, localPath, key string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeReportStore) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://expensereport-bucket.s3.amazonaws.com/" + key + "?X-Amz-Expires=" + ttl.String(), nil
}

// MockPopulator реализует интерфейс Populator
type MockPopulator struct {
	mock.Mock
}

func (m *MockPopulator) Populate(fields xlsx.Fields, records []models.ExpenseRecord) (string, error) {
	args := m.Called(fields, records)
	return args.String(0), args.Error(1)
}

func (m *MockPopulator) Release(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// mapCache кеш в памяти.
type mapCache struct {
	items map[string]cachedReport
}

func (c *mapCache) Get(_ context.Context, key string, result any) (bool, error) {
	v, ok := c.items[key]
	if !ok {
		return false, nil
	}
	*(result.(*cachedReport)) = v
	return true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if c.items == nil {
		c.items = make(map[string]cachedReport)
	}
	c.items[key] = value.(cachedReport)
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, key string) error {
	delete(c.items, key)
	return nil
}

func artifact(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	return p
}

func newService(store *fakeReportStore, pop *MockPopulator, cache Cache) *Service {
	return NewService(store, NewSelector(store, nil, newNoopLogger()), pop, cache, Options{
		PresignTTL:     time.Hour,
		CacheTTL:       time.Minute,
		RequestTimeout: 5 * time.Second,
	}, newNoopLogger())
}

func TestService_Generate(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/hotel.jpg", map[string]string{"date": "2024-06-14", "price": "120.50", "category": "Hotel"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.MatchedBy(func(f xlsx.Fields) bool {
		return f.PeriodEnding.Format(models.DateLayout) == "2024-06-16" &&
			f.Department == models.DefaultDepartment &&
			!f.Travel && f.TravelStart == nil
	}), mock.MatchedBy(func(r []models.ExpenseRecord) bool {
		return len(r) == 1 && r[0].Category == models.CategoryHotel
	})).Return(path, nil).Once()
	pop.On("Release", path).Return(nil).Once()

	svc := newService(store, pop, nil)
	res, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{PeriodEnding: "2024-06-16"})
	require.NoError(t, err)

	assert.Equal(t, "sub-1/expense_report_2024-06-16.xlsx", res.Key)
	assert.Contains(t, res.URL, "sub-1/expense_report_2024-06-16.xlsx")
	assert.False(t, res.Cached)
	assert.Equal(t, []string{"sub-1/expense_report_2024-06-16.xlsx"}, store.uploaded)
	pop.AssertExpectations(t)
}

func TestService_Generate_TravelFields(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.MatchedBy(func(f xlsx.Fields) bool {
		return f.Travel && f.TravelStart != nil && f.TravelEnd != nil &&
			f.TravelStart.Format(models.DateLayout) == "2024-06-10" &&
			f.TravelEnd.Format(models.DateLayout) == "2024-06-12"
	}), mock.Anything).Return(path, nil).Once()
	pop.On("Release", path).Return(nil).Once()

	svc := newService(store, pop, nil)
	_, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{
		PeriodEnding:    "2024-06-16",
		Travel:          "yes",
		TravelStartDate: "2024-06-10",
		TravelEndDate:   "2024-06-12",
	})
	require.NoError(t, err)
	pop.AssertExpectations(t)
}

func TestService_Generate_NotFound(t *testing.T) {
	pop := new(MockPopulator)
	svc := newService(&fakeReportStore{}, pop, nil)

	_, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{PeriodEnding: "2024-06-16"})
	assert.ErrorIs(t, err, models.ErrNotFound)
	pop.AssertNotCalled(t, "Populate", mock.Anything, mock.Anything)
}

func TestService_Generate_InvalidDate(t *testing.T) {
	svc := newService(&fakeReportStore{}, new(MockPopulator), nil)

	_, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{PeriodEnding: "16-06-2024"})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestService_Generate_ReleasesOnUploadFailure(t *testing.T) {
	store := &fakeReportStore{uploadErr: errors.New("upload failed")}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.Anything, mock.Anything).Return(path, nil).Once()
	pop.On("Release", path).Return(nil).Once()

	svc := newService(store, pop, nil)
	_, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{PeriodEnding: "2024-06-16"})
	assert.ErrorContains(t, err, "upload failed")
	pop.AssertExpectations(t)
}

func TestService_Generate_UploadFailureDropsCachedReport(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14", "price": "3"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.Anything, mock.Anything).Return(path, nil).Twice()
	pop.On("Release", path).Return(nil).Twice()

	cache := &mapCache{}
	svc := newService(store, pop, cache)
	req := models.ReportRequest{PeriodEnding: "2024-06-16"}

	_, err := svc.Generate(context.Background(), "sub-1", req)
	require.NoError(t, err)
	_, ok := cache.items[cacheKey("sub-1", "2024-06-16")]
	require.True(t, ok)

	store.add("sub-1/b.jpg", map[string]string{"date": "2024-06-15", "price": "4"})
	store.uploadErr = errors.New("upload failed")
	_, err = svc.Generate(context.Background(), "sub-1", req)
	assert.ErrorContains(t, err, "upload failed")

	_, ok = cache.items[cacheKey("sub-1", "2024-06-16")]
	assert.False(t, ok)
	pop.AssertExpectations(t)
}

func TestService_Generate_PopulateFailure(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14"})

	pop := new(MockPopulator)
	pop.On("Populate", mock.Anything, mock.Anything).Return("", errors.New("template broken")).Once()

	svc := newService(store, pop, nil)
	_, err := svc.Generate(context.Background(), "sub-1", models.ReportRequest{PeriodEnding: "2024-06-16"})
	assert.ErrorContains(t, err, "template broken")
	assert.Empty(t, store.uploaded)
	pop.AssertNotCalled(t, "Release", mock.Anything)
}

func TestService_Generate_ReusesUnchangedReport(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14", "price": "3"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.Anything, mock.Anything).Return(path, nil).Once()
	pop.On("Release", path).Return(nil).Once()

	svc := newService(store, pop, &mapCache{})
	req := models.ReportRequest{PeriodEnding: "2024-06-16", School: "North"}

	first, err := svc.Generate(context.Background(), "sub-1", req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Generate(context.Background(), "sub-1", req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Key, second.Key)
	assert.Len(t, store.uploaded, 1)
	pop.AssertExpectations(t)
}

func TestService_Generate_RebuildsWhenRecordsChange(t *testing.T) {
	store := &fakeReportStore{}
	store.add("sub-1/a.jpg", map[string]string{"date": "2024-06-14", "price": "3"})
	path := artifact(t)

	pop := new(MockPopulator)
	pop.On("Populate", mock.Anything, mock.Anything).Return(path, nil).Twice()
	pop.On("Release", path).Return(nil).Twice()

	svc := newService(store, pop, &mapCache{})
	req := models.ReportRequest{PeriodEnding: "2024-06-16"}

	_, err := svc.Generate(context.Background(), "sub-1", req)
	require.NoError(t, err)

	store.add("sub-1/b.jpg", map[string]string{"date": "2024-06-15", "price": "4"})
	res, err := svc.Generate(context.Background(), "sub-1", req)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, store.uploaded, 2)
	pop.AssertExpectations(t)
}

func TestFingerprintOf_Stable(t *testing.T) {
	req := models.ReportRequest{PeriodEnding: "2024-06-16"}
	a, err := fingerprintOf(req, nil)
	require.NoError(t, err)
	b, err := fingerprintOf(req, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	req.School = "Other"
	c, err := fingerprintOf(req, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
