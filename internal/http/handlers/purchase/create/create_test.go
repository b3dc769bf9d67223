package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, creatorUID string, req models.DummyPurchase) (int, error) {
	args := m.Called(ctx, creatorUID, req)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func validBody() models.DummyPurchase {
	return models.DummyPurchase{
		Title:           "Закупка кофе",
		Description:     "Зерно оптом",
		MinParticipants: 3,
		MaxParticipants: 10,
		ExpectedPrice:   50000,
	}
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		requestBody    any
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное создание закупки",
			requestBody: validBody(),
			userUID:     "creator-uid",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "creator-uid", mock.AnythingOfType("models.DummyPurchase")).
					Return(42, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":42`,
		},
		{
			name:           "некорректный json",
			requestBody:    "not a json",
			userUID:        "creator-uid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name: "ошибка валидации цены",
			requestBody: models.DummyPurchase{
				Title:           "Закупка",
				Description:     "Описание",
				MinParticipants: 3,
				MaxParticipants: 10,
				ExpectedPrice:   1,
			},
			userUID:        "creator-uid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "нет пользователя в контексте",
			requestBody:    validBody(),
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:        "превышен предел активных закупок",
			requestBody: validBody(),
			userUID:     "creator-uid",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "creator-uid", mock.AnythingOfType("models.DummyPurchase")).
					Return(0, domerr.Eligibility("creator already has %d active purchases", 2))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"eligibility: creator already has 2 active purchases"`,
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

			req := httptest.NewRequest(http.MethodPost, "/purchases", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, tt.userUID)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
