package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ReadPurchase(ctx context.Context, id int) (*models.GroupPurchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupPurchase), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpsertBid(ctx context.Context, sellerUID string, purchaseID, price int, description string, newCost, revisionCost int) (*models.BidResult, error) {
	args := m.Called(ctx, sellerUID, purchaseID, price, description, newCost, revisionCost)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BidResult), args.Error(1)
}

func (m *MockRepository) ListBids(ctx context.Context, purchaseID int) ([]*models.BidView, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BidView), args.Error(1)
}

func (m *MockRepository) SelectWinningBid(ctx context.Context, purchaseID int, voteWindow time.Duration) (*models.Bid, error) {
	args := m.Called(ctx, purchaseID, voteWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bid), args.Error(1)
}

func (m *MockRepository) ListParticipantEmails(ctx context.Context, purchaseID int) (map[string]string, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(event models.NotificationEvent) {
	m.Called(event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func biddingPurchase(expectedPrice int) *models.GroupPurchase {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(24 * time.Hour)
	return &models.GroupPurchase{
		ID:               1,
		Status:           models.StatusBidding,
		ExpectedPrice:    expectedPrice,
		AuctionStartTime: &start,
		AuctionEndTime:   &end,
	}
}

func TestBiddingService_PlaceBid(t *testing.T) {
	ctx := context.Background()
	seller := &models.User{UID: "s1", Role: models.RoleSeller, Points: 150}

	t.Run("places new bid within price bound", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		repo.On("GetUser", ctx, "s1").Return(seller, nil)
		repo.On("ReadPurchase", ctx, 1).Return(biddingPurchase(800), nil)
		repo.On("UpsertBid", ctx, "s1", 1, 1000, "in stock", NewBidCost, RevisionCost).
			Return(&models.BidResult{
				Bid:             &models.Bid{ID: 5, Price: 1000},
				IsNew:           true,
				PointsDeducted:  NewBidCost,
				RemainingPoints: 140,
			}, nil)

		result, err := service.PlaceBid(ctx, "s1", 1, models.DummyBid{Price: 1000, Description: "in stock"})
		require.NoError(t, err)
		assert.True(t, result.IsNew)
		assert.Equal(t, NewBidCost, result.PointsDeducted)
		repo.AssertExpectations(t)
	})

	t.Run("price above bound is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		repo.On("GetUser", ctx, "s1").Return(seller, nil)
		repo.On("ReadPurchase", ctx, 1).Return(biddingPurchase(600), nil)

		_, err := service.PlaceBid(ctx, "s1", 1, models.DummyBid{Price: 1000, Description: "in stock"})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindValidation))
		repo.AssertNotCalled(t, "UpsertBid", mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no bound when expected price is unset", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		repo.On("GetUser", ctx, "s1").Return(seller, nil)
		repo.On("ReadPurchase", ctx, 1).Return(biddingPurchase(0), nil)
		repo.On("UpsertBid", ctx, "s1", 1, 999999, "rare stock", NewBidCost, RevisionCost).
			Return(&models.BidResult{Bid: &models.Bid{ID: 5}, IsNew: true, PointsDeducted: NewBidCost}, nil)

		_, err := service.PlaceBid(ctx, "s1", 1, models.DummyBid{Price: 999999, Description: "rare stock"})
		require.NoError(t, err)
	})

	t.Run("consumer is rejected by the gate", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		repo.On("GetUser", ctx, "u1").Return(&models.User{UID: "u1", Role: models.RoleConsumer, Points: 500}, nil)
		repo.On("ReadPurchase", ctx, 1).Return(biddingPurchase(800), nil)

		_, err := service.PlaceBid(ctx, "u1", 1, models.DummyBid{Price: 700, Description: "in stock"})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})

	t.Run("seller below reserve is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		repo.On("GetUser", ctx, "s2").Return(&models.User{UID: "s2", Role: models.RoleSeller, Points: 50}, nil)
		repo.On("ReadPurchase", ctx, 1).Return(biddingPurchase(800), nil)

		_, err := service.PlaceBid(ctx, "s2", 1, models.DummyBid{Price: 700, Description: "in stock"})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})
}

func TestBiddingService_CloseAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("returns winner", func(t *testing.T) {
		repo := new(MockRepository)
		service := NewBiddingService(repo, new(MockNotifier), discardLogger())

		winner := &models.Bid{ID: 7, SellerUID: "s1", Price: 500, Status: models.BidAccepted}
		repo.On("SelectWinningBid", ctx, 1, VoteWindow).Return(winner, nil)

		got, err := service.CloseAuction(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, winner, got)
	})

	t.Run("no bids notifies participants about cancellation", func(t *testing.T) {
		repo := new(MockRepository)
		notif := new(MockNotifier)
		service := NewBiddingService(repo, notif, discardLogger())

		repo.On("SelectWinningBid", ctx, 1, VoteWindow).Return(nil, nil)
		repo.On("ListParticipantEmails", ctx, 1).Return(map[string]string{"u1": "u1@example.com"}, nil)
		notif.On("Notify", mock.MatchedBy(func(e models.NotificationEvent) bool {
			return e.Type == models.NotifyCancelled && e.Email == "u1@example.com"
		})).Return()

		got, err := service.CloseAuction(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
		notif.AssertExpectations(t)
	})
}
