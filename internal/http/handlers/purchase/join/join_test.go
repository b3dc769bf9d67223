package join

import (
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
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/storage/repository"
)

// MockService реализует интерфейс join.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Join(ctx context.Context, userUID string, purchaseID int) (*repository.JoinResult, error) {
	args := m.Called(ctx, userUID, purchaseID)
	if res := args.Get(0); res != nil {
		return res.(*repository.JoinResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestJoinHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		urlID          string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное присоединение",
			urlID:   "7",
			userUID: "user-uid",
			setupMock: func(m *MockService) {
				m.On("Join", mock.Anything, "user-uid", 7).
					Return(&repository.JoinResult{NewCount: 2, BiddingStarted: false}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"participants":2`,
		},
		{
			name:    "кворум открывает аукцион",
			urlID:   "7",
			userUID: "user-uid",
			setupMock: func(m *MockService) {
				m.On("Join", mock.Anything, "user-uid", 7).
					Return(&repository.JoinResult{NewCount: 3, BiddingStarted: true}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"bidding_started":true`,
		},
		{
			name:           "некорректный id",
			urlID:          "abc",
			userUID:        "user-uid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid purchase id"`,
		},
		{
			name:    "повторное присоединение",
			urlID:   "7",
			userUID: "user-uid",
			setupMock: func(m *MockService) {
				m.On("Join", mock.Anything, "user-uid", 7).
					Return(nil, domerr.Conflict("user already joined purchase"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"conflict: user already joined purchase"`,
		},
		{
			name:    "продавец не может участвовать",
			urlID:   "7",
			userUID: "seller-uid",
			setupMock: func(m *MockService) {
				m.On("Join", mock.Anything, "seller-uid", 7).
					Return(nil, domerr.Eligibility("only consumers can join purchases"))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"eligibility: only consumers can join purchases"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/purchases/"+tt.urlID+"/join", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
