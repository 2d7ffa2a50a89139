package slots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/mentorship-booking/internal/availability"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// MockService реализует интерфейс slots.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) GetAvailableSlots(ctx context.Context, mentorID string, r availability.DateRange) ([]models.Window, error) {
	args := m.Called(ctx, mentorID, r)
	res, _ := args.Get(0).([]models.Window)
	return res, args.Error(1)
}

func TestSlotsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	week := availability.DateRange{
		From: time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2030, 1, 13, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "окна за неделю",
			query: "?from=2030-01-07&to=2030-01-13",
			setupMock: func(m *MockService) {
				m.On("GetAvailableSlots", mock.Anything, "m1", week).Return([]models.Window{{
					Start: time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC),
					End:   time.Date(2030, 1, 7, 12, 0, 0, 0, time.UTC),
				}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"slots":[{"start":"2030-01-07T09:00:00Z","end":"2030-01-07T12:00:00Z"}]`,
		},
		{
			name:           "нет from",
			query:          "?to=2030-01-13",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `from must be a date`,
		},
		{
			name:           "неверный формат to",
			query:          "?from=2030-01-07&to=13.01.2030",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `to must be a date`,
		},
		{
			name:  "диапазон отвергнут сервисом",
			query: "?from=2030-01-13&to=2030-01-07",
			setupMock: func(m *MockService) {
				m.On("GetAvailableSlots", mock.Anything, "m1", mock.Anything).
					Return(nil, apperr.Validation("date range end 2030-01-07 is before start 2030-01-13"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `is before start`,
		},
		{
			name:  "ментор не найден",
			query: "?from=2030-01-07&to=2030-01-13",
			setupMock: func(m *MockService) {
				m.On("GetAvailableSlots", mock.Anything, "m1", week).Return(nil, apperr.NotFound("mentor %s", "m1"))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/mentors/m1/slots"+tt.query, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "m1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
