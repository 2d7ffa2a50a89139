package cancel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/mentorship-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/mentorship-booking/internal/lib/apperr"
	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// MockService реализует интерфейс cancel.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CancelBooking(ctx context.Context, caller models.Caller, bookingID, reason string) error {
	return m.Called(ctx, caller, bookingID, reason).Error(0)
}

func TestCancelHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	caller := models.Caller{UserID: "u1", Role: models.RoleUser}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "отмена с причиной",
			body: `{"reason":"sick"}`,
			setupMock: func(m *MockService) {
				m.On("CancelBooking", mock.Anything, caller, "b1", "sick").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"CANCELLED"`,
		},
		{
			name: "отмена без тела",
			body: "",
			setupMock: func(m *MockService) {
				m.On("CancelBooking", mock.Anything, caller, "b1", "").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"booking_id":"b1"`,
		},
		{
			name:           "слишком длинная причина",
			body:           `{"reason":"` + strings.Repeat("x", 501) + `"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Reason must be at most 500`,
		},
		{
			name: "повторная отмена",
			body: `{}`,
			setupMock: func(m *MockService) {
				m.On("CancelBooking", mock.Anything, caller, "b1", "").
					Return(apperr.InvalidTransition("cannot cancel booking in status CANCELLED"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `invalid state transition`,
		},
		{
			name: "чужая сессия",
			body: `{}`,
			setupMock: func(m *MockService) {
				m.On("CancelBooking", mock.Anything, caller, "b1", "").
					Return(apperr.Forbidden("caller cannot cancel booking b1"))
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/bookings/b1/cancel", strings.NewReader(tt.body))
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
