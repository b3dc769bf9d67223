package place

import (
	"bytes"
	"context"
	"encoding/json"
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

// MockService реализует интерфейс place.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) PlaceBid(ctx context.Context, sellerUID string, purchaseID int, req models.DummyBid) (*models.BidResult, error) {
	args := m.Called(ctx, sellerUID, purchaseID, req)
	if res := args.Get(0); res != nil {
		return res.(*models.BidResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestPlaceHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	validReq := models.DummyBid{Price: 45000, Description: "Поставка со склада"}

	tests := []struct {
		name           string
		urlID          string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "новая ставка принята",
			urlID:       "9",
			requestBody: validReq,
			setupMock: func(m *MockService) {
				m.On("PlaceBid", mock.Anything, "seller-uid", 9, validReq).
					Return(&models.BidResult{
						Bid:             &models.Bid{ID: 3},
						IsNew:           true,
						PointsDeducted:  10,
						RemainingPoints: 110,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"points_deducted":10`,
		},
		{
			name:           "некорректный json",
			urlID:          "9",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "ошибка валидации цены",
			urlID:          "9",
			requestBody:    models.DummyBid{Description: "без цены"},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:        "недостаточно баллов",
			urlID:       "9",
			requestBody: validReq,
			setupMock: func(m *MockService) {
				m.On("PlaceBid", mock.Anything, "seller-uid", 9, validReq).
					Return(nil, domerr.Eligibility("insufficient points for bidding"))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"eligibility: insufficient points for bidding"`,
		},
		{
			name:        "цена выше допустимого предела",
			urlID:       "9",
			requestBody: validReq,
			setupMock: func(m *MockService) {
				m.On("PlaceBid", mock.Anything, "seller-uid", 9, validReq).
					Return(nil, domerr.Validation("bid price %d exceeds limit %d", 45000, 30000))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"error":"validation: bid price 45000 exceeds limit 30000"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(v)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/purchases/"+tt.urlID+"/bids", bytes.NewReader(bodyBytes))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.urlID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "seller-uid")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
