package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"engineatlas/internal/dataset"
	apierrors "engineatlas/internal/errors"
	customMiddleware "engineatlas/internal/middleware"
	"engineatlas/pkg/contracts/domain"
)

// MockAnalyticsService is a mock implementation of AnalyticsServiceInterface
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Overview(ctx context.Context, f dataset.Filter) (domain.OverviewStats, error) {
	args := m.Called(f)
	return args.Get(0).(domain.OverviewStats), args.Error(1)
}

func (m *MockAnalyticsService) Trends(ctx context.Context, f dataset.Filter) ([]domain.TrendPoint, error) {
	args := m.Called(f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrendPoint), args.Error(1)
}

func (m *MockAnalyticsService) BrandBattles(ctx context.Context, f dataset.Filter) (domain.BrandBattles, error) {
	args := m.Called(f)
	return args.Get(0).(domain.BrandBattles), args.Error(1)
}

func (m *MockAnalyticsService) Leaderboards(ctx context.Context, f dataset.Filter) (domain.Leaderboards, error) {
	args := m.Called(f)
	return args.Get(0).(domain.Leaderboards), args.Error(1)
}

func (m *MockAnalyticsService) EngineCard(ctx context.Context, f dataset.Filter, signature string) (*domain.EngineCard, error) {
	args := m.Called(f, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EngineCard), args.Error(1)
}

func newTestAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validation := customMiddleware.NewValidationMiddleware(logger, errorHandler)
	return NewAnalyticsHandler(service, validation, logger, errorHandler)
}

func TestAnalyticsHandler_GetOverview(t *testing.T) {
	avgHP := 250.67

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockAnalyticsService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "unfiltered overview",
			query: "",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Overview", dataset.Filter{}).
					Return(domain.OverviewStats{Rows: 3, AvgHP: &avgHP}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"avg_hp":250.67`,
		},
		{
			name:  "make filter reaches the service",
			query: "?makes=Toyota",
			setupMock: func(m *MockAnalyticsService) {
				f := dataset.Filter{Makes: []string{"Toyota"}}
				m.On("Overview", f).Return(domain.OverviewStats{Rows: 2}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"rows":2`,
		},
		{
			name:           "malformed year bound",
			query:          "?year_min=old",
			setupMock:      func(m *MockAnalyticsService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `VALIDATION_FAILED`,
		},
		{
			name:  "dataset not loaded",
			query: "",
			setupMock: func(m *MockAnalyticsService) {
				m.On("Overview", dataset.Filter{}).
					Return(domain.OverviewStats{}, apierrors.ErrDatasetNotLoaded)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `Dataset Not Loaded`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAnalyticsService)
			tt.setupMock(mockService)
			handler := newTestAnalyticsHandler(mockService)

			req := httptest.NewRequest("GET", "/api/analytics/overview"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.GetOverview(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestAnalyticsHandler_GetTrends(t *testing.T) {
	meanHP := 181.0
	mockService := new(MockAnalyticsService)
	mockService.On("Trends", dataset.Filter{}).Return([]domain.TrendPoint{
		{Year: 2005, Count: 1},
		{Year: 2012, MeanHP: &meanHP, Count: 2},
	}, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/trends", nil)
	rec := httptest.NewRecorder()

	handler.GetTrends(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"year":2005`)
	mockService.AssertExpectations(t)
}

func TestAnalyticsHandler_GetBrandBattles(t *testing.T) {
	mockService := new(MockAnalyticsService)
	mockService.On("BrandBattles", dataset.Filter{}).Return(domain.BrandBattles{
		MedianHP: []domain.BrandStat{
			{Make: "BMW", Value: 431, Count: 1},
		},
	}, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/brands", nil)
	rec := httptest.NewRecorder()

	handler.GetBrandBattles(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"make":"BMW"`)
	mockService.AssertExpectations(t)
}

func TestAnalyticsHandler_GetLeaderboards(t *testing.T) {
	year := 2014
	mockService := new(MockAnalyticsService)
	mockService.On("Leaderboards", dataset.Filter{}).Return(domain.Leaderboards{
		Fastest: []domain.LeaderboardEntry{
			{Signature: "BMW 3.0L I6", Make: "BMW", Model: "M3", Year: &year, Value: 4.1},
		},
	}, nil)
	handler := newTestAnalyticsHandler(mockService)

	req := httptest.NewRequest("GET", "/api/analytics/leaderboards", nil)
	rec := httptest.NewRecorder()

	handler.GetLeaderboards(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"BMW 3.0L I6"`)
	mockService.AssertExpectations(t)
}
