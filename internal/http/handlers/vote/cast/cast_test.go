package cast

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// MockService реализует интерфейс cast.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CastVote(ctx context.Context, userUID string, purchaseID int, approved bool) (*models.TallyResult, error) {
	args := m.Called(ctx, userUID, purchaseID, approved)
	if res := args.Get(0); res != nil {
		return res.(*models.TallyResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCastHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		urlID          string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "голос учтен без решения",
			urlID: "5",
			body:  `{"approved":true}`,
			setupMock: func(m *MockService) {
				m.On("CastVote", mock.Anything, "voter-uid", 5, true).
					Return(&models.TallyResult{Total: 2, Approved: 2, Decided: false}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"decided":false`,
		},
		{
			name:  "последний голос подтверждает закупку",
			urlID: "5",
			body:  `{"approved":true}`,
			setupMock: func(m *MockService) {
				m.On("CastVote", mock.Anything, "voter-uid", 5, true).
					Return(&models.TallyResult{Total: 3, Approved: 3, Decided: true, NewStatus: "CONFIRMED"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"new_status":"CONFIRMED"`,
		},
		{
			name:  "голос против",
			urlID: "5",
			body:  `{"approved":false}`,
			setupMock: func(m *MockService) {
				m.On("CastVote", mock.Anything, "voter-uid", 5, false).
					Return(&models.TallyResult{Total: 1, Approved: 0, Decided: false}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"approved":0`,
		},
		{
			name:           "пропущенное поле approved",
			urlID:          "5",
			body:           `{}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:  "повторный голос",
			urlID: "5",
			body:  `{"approved":true}`,
			setupMock: func(m *MockService) {
				m.On("CastVote", mock.Anything, "voter-uid", 5, true).
					Return(nil, domerr.Conflict("vote already cast"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"conflict: vote already cast"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/purchases/"+tt.urlID+"/votes", bytes.NewReader([]byte(tt.body)))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "voter-uid")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
