package reschedule

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// MockService реализует интерфейс reschedule.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) RescheduleBooking(ctx context.Context, caller models.Caller, bookingID string, newTime time.Time) (*models.Booking, error) {
	args := m.Called(ctx, caller, bookingID, newTime)
	if res := args.Get(0); res != nil {
		return res.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRescheduleHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	caller := models.Caller{UserID: "u1", Role: models.RoleUser}
	at := time.Date(2030, 1, 7, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный перенос",
			body: `{"scheduled_at":"2030-01-07T14:00:00Z"}`,
			setupMock: func(m *MockService) {
				m.On("RescheduleBooking", mock.Anything, caller, "b1", at).
					Return(&models.Booking{ID: "b1", ScheduledAt: at, Status: models.BookingScheduled}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"scheduled_at":"2030-01-07T14:00:00Z"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"scheduled_at":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет времени",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field ScheduledAt is a required field`,
		},
		{
			name: "сессия уже отменена",
			body: `{"scheduled_at":"2030-01-07T14:00:00Z"}`,
			setupMock: func(m *MockService) {
				m.On("RescheduleBooking", mock.Anything, caller, "b1", at).
					Return(nil, apperr.InvalidTransition("cannot reschedule booking in status CANCELLED"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `cannot reschedule booking in status CANCELLED`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/bookings/b1/reschedule", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "b1")
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			req = req.WithContext(middlewarectx.WithCaller(ctx, caller))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
