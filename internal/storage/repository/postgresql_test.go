package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

func TestStorage_CreateUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("registers profile with generated uid", func(t *testing.T) {
		uid, err := storage.CreateUser(ctx, models.User{Name: "Анна", Email: "anna@example.com", Role: models.RoleConsumer})
		require.NoError(t, err)
		require.NotEmpty(t, uid)

		u, err := storage.GetUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, models.RoleConsumer, u.Role)
		assert.Equal(t, 0, u.Points)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := storage.CreateUser(ctx, models.User{Name: "Макс", Email: "dup@example.com", Role: models.RoleSeller, Points: 100})
		require.NoError(t, err)
		_, err = storage.CreateUser(ctx, models.User{Name: "Ольга", Email: "dup@example.com", Role: models.RoleSeller})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindConflict))
	})
}

func TestStorage_PublishPurchase(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)
	other := factory.CreateUser(t, "other", "other@example.com", models.RoleConsumer, 0)

	t.Run("creator publishes draft", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusDraft, 3, 10, 0, 50000)

		err := storage.PublishPurchase(ctx, id, creator)
		require.NoError(t, err)

		assert.Equal(t, models.StatusRecruiting, factory.GetPurchaseStatus(t, id))
		joined, err := storage.IsParticipant(ctx, creator, id)
		require.NoError(t, err)
		assert.True(t, joined)

		p, err := storage.ReadPurchase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, p.CurrentParticipants)
	})

	t.Run("non-creator is rejected", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusDraft, 3, 10, 0, 50000)

		err := storage.PublishPurchase(ctx, id, other)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})

	t.Run("already published", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 3, 10, 1, 50000)

		err := storage.PublishPurchase(ctx, id, creator)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})
}

func TestStorage_AddParticipant(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("join below quorum", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 3, 10, 1, 50000)
		user := factory.CreateUser(t, "joiner1", "joiner1@example.com", models.RoleConsumer, 0)

		result, err := storage.AddParticipant(ctx, user, id, 7*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, result.NewCount)
		assert.False(t, result.BiddingStarted)
		assert.Equal(t, models.StatusRecruiting, factory.GetPurchaseStatus(t, id))
	})

	t.Run("quorum opens bidding with auction window", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 2, 10, 1, 50000)
		user := factory.CreateUser(t, "joiner2", "joiner2@example.com", models.RoleConsumer, 0)

		result, err := storage.AddParticipant(ctx, user, id, 7*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, result.NewCount)
		assert.True(t, result.BiddingStarted)

		p, err := storage.ReadPurchase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusBidding, p.Status)
		require.NotNil(t, p.AuctionStartTime)
		require.NotNil(t, p.AuctionEndTime)
		assert.WithinDuration(t, p.AuctionStartTime.Add(7*24*time.Hour), *p.AuctionEndTime, time.Second)
	})

	t.Run("duplicate join is a conflict", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 5, 10, 1, 50000)
		user := factory.CreateUser(t, "joiner3", "joiner3@example.com", models.RoleConsumer, 0)

		_, err := storage.AddParticipant(ctx, user, id, 7*24*time.Hour)
		require.NoError(t, err)
		_, err = storage.AddParticipant(ctx, user, id, 7*24*time.Hour)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindConflict))
	})

	t.Run("full purchase rejects join", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 2, 3, 3, 50000)
		user := factory.CreateUser(t, "joiner4", "joiner4@example.com", models.RoleConsumer, 0)

		_, err := storage.AddParticipant(ctx, user, id, 7*24*time.Hour)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})

	t.Run("concurrent joins at the last seat", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 2, 3, 2, 50000)
		seated := factory.CreateUser(t, "seated", "seated@example.com", models.RoleConsumer, 0)
		factory.AddParticipantRow(t, creator, id)
		factory.AddParticipantRow(t, seated, id)
		userA := factory.CreateUser(t, "racerA", "racerA@example.com", models.RoleConsumer, 0)
		userB := factory.CreateUser(t, "racerB", "racerB@example.com", models.RoleConsumer, 0)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for _, uid := range []string{userA, userB} {
			wg.Add(1)
			go func(uid string) {
				defer wg.Done()
				_, err := storage.AddParticipant(ctx, uid, id, 7*24*time.Hour)
				errs <- err
			}(uid)
		}
		wg.Wait()
		close(errs)

		var succeeded, rejected int
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, domerr.Is(err, domerr.KindEligibility))
			rejected++
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, rejected)

		p, err := storage.ReadPurchase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, p.CurrentParticipants)
		assert.Equal(t, p.CurrentParticipants, factory.CountParticipantRows(t, id))
	})
}

func TestStorage_RemoveParticipant(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("withdraw deletes bids and reports them", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 5, 10, 2, 50000)
		seller := factory.CreateUser(t, "leaver1", "leaver1@example.com", models.RoleSeller, 100)
		factory.AddParticipantRow(t, seller, id)
		factory.CreateBid(t, seller, id, 45000, time.Now())

		result, err := storage.RemoveParticipant(ctx, seller, id)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Remaining)
		assert.False(t, result.Cancelled)
		assert.True(t, result.HadBids)

		bids, err := storage.ListBids(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, bids)
	})

	t.Run("last participant out cancels purchase", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 5, 10, 1, 50000)
		user := factory.CreateUser(t, "leaver2", "leaver2@example.com", models.RoleConsumer, 0)
		factory.AddParticipantRow(t, user, id)

		result, err := storage.RemoveParticipant(ctx, user, id)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Remaining)
		assert.True(t, result.Cancelled)
		assert.Equal(t, models.StatusCancelled, factory.GetPurchaseStatus(t, id))
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusRecruiting, 5, 10, 1, 50000)
		user := factory.CreateUser(t, "outsider", "outsider@example.com", models.RoleConsumer, 0)

		_, err := storage.RemoveParticipant(ctx, user, id)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})
}

func TestStorage_UpsertBid(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("new bid deducts full cost", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusBidding, 2, 10, 3, 50000)
		seller := factory.CreateUser(t, "seller1", "seller1@example.com", models.RoleSeller, 120)

		result, err := storage.UpsertBid(ctx, seller, id, 48000, "ship in two weeks", 10, 5)
		require.NoError(t, err)
		assert.True(t, result.IsNew)
		assert.Equal(t, 10, result.PointsDeducted)
		assert.Equal(t, 110, result.RemainingPoints)
		assert.Equal(t, models.BidPending, result.Bid.Status)
		assert.Equal(t, 110, factory.GetUserPoints(t, seller))
	})

	t.Run("revision deducts reduced cost", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusBidding, 2, 10, 3, 50000)
		seller := factory.CreateUser(t, "seller2", "seller2@example.com", models.RoleSeller, 120)

		first, err := storage.UpsertBid(ctx, seller, id, 48000, "ship in two weeks", 10, 5)
		require.NoError(t, err)
		second, err := storage.UpsertBid(ctx, seller, id, 46000, "ship in one week", 10, 5)
		require.NoError(t, err)

		assert.False(t, second.IsNew)
		assert.Equal(t, 5, second.PointsDeducted)
		assert.Equal(t, 105, second.RemainingPoints)
		assert.Equal(t, first.Bid.ID, second.Bid.ID)

		bids, err := storage.ListBids(ctx, id)
		require.NoError(t, err)
		require.Len(t, bids, 1)
		assert.Equal(t, 46000, bids[0].Price)
	})

	t.Run("insufficient points", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusBidding, 2, 10, 3, 50000)
		seller := factory.CreateUser(t, "seller3", "seller3@example.com", models.RoleSeller, 4)

		_, err := storage.UpsertBid(ctx, seller, id, 48000, "ship today", 10, 5)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})

	t.Run("bidding closed", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusVoting, 2, 10, 3, 50000)
		seller := factory.CreateUser(t, "seller4", "seller4@example.com", models.RoleSeller, 120)

		_, err := storage.UpsertBid(ctx, seller, id, 48000, "too late", 10, 5)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})
}

func TestStorage_SelectWinningBid(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("lowest price wins, earlier bid breaks ties", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusBidding, 2, 10, 3, 50000)
		sellerA := factory.CreateUser(t, "sellerA", "sellerA@example.com", models.RoleSeller, 100)
		sellerB := factory.CreateUser(t, "sellerB", "sellerB@example.com", models.RoleSeller, 100)
		sellerC := factory.CreateUser(t, "sellerC", "sellerC@example.com", models.RoleSeller, 100)

		base := time.Now().Add(-time.Hour)
		factory.CreateBid(t, sellerA, id, 47000, base)
		winnerID := factory.CreateBid(t, sellerB, id, 45000, base.Add(time.Minute))
		factory.CreateBid(t, sellerC, id, 45000, base.Add(2*time.Minute))

		winner, err := storage.SelectWinningBid(ctx, id, 72*time.Hour)
		require.NoError(t, err)
		require.NotNil(t, winner)
		assert.Equal(t, winnerID, winner.ID)
		assert.Equal(t, models.BidAccepted, winner.Status)

		p, err := storage.ReadPurchase(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusVoting, p.Status)
		require.NotNil(t, p.VoteEndTime)

		bids, err := storage.ListBids(ctx, id)
		require.NoError(t, err)
		for _, b := range bids {
			if b.ID == winnerID {
				assert.Equal(t, models.BidAccepted, b.Status)
			} else {
				assert.Equal(t, models.BidRejected, b.Status)
			}
		}
	})

	t.Run("no bids cancels purchase", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusBidding, 2, 10, 3, 50000)

		winner, err := storage.SelectWinningBid(ctx, id, 72*time.Hour)
		require.NoError(t, err)
		assert.Nil(t, winner)
		assert.Equal(t, models.StatusCancelled, factory.GetPurchaseStatus(t, id))
	})
}

func TestStorage_InsertVoteAndTally(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	setupVoting := func(t *testing.T, participants int) (int, []string) {
		id := factory.CreatePurchase(t, creator, models.StatusVoting, 2, 10, participants, 50000)
		uids := make([]string, 0, participants)
		for i := 0; i < participants; i++ {
			uid := factory.CreateUser(t, "voter", uuidEmail(t), models.RoleConsumer, 0)
			factory.AddParticipantRow(t, uid, id)
			uids = append(uids, uid)
		}
		return id, uids
	}

	t.Run("partial vote does not decide", func(t *testing.T) {
		id, uids := setupVoting(t, 3)

		result, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[0], GroupPurchaseID: id, Approved: true}, 0.8)
		require.NoError(t, err)
		assert.False(t, result.Decided)
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, models.StatusVoting, factory.GetPurchaseStatus(t, id))
	})

	t.Run("last vote confirms at threshold", func(t *testing.T) {
		id, uids := setupVoting(t, 2)

		_, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[0], GroupPurchaseID: id, Approved: true}, 1.0)
		require.NoError(t, err)
		result, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[1], GroupPurchaseID: id, Approved: true}, 1.0)
		require.NoError(t, err)

		assert.True(t, result.Decided)
		assert.Equal(t, models.StatusConfirmed, result.NewStatus)
		assert.Equal(t, models.StatusConfirmed, factory.GetPurchaseStatus(t, id))
	})

	t.Run("below threshold cancels", func(t *testing.T) {
		id, uids := setupVoting(t, 2)

		_, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[0], GroupPurchaseID: id, Approved: true}, 1.0)
		require.NoError(t, err)
		result, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[1], GroupPurchaseID: id, Approved: false}, 1.0)
		require.NoError(t, err)

		assert.True(t, result.Decided)
		assert.Equal(t, models.StatusCancelled, result.NewStatus)
	})

	t.Run("duplicate vote is a conflict", func(t *testing.T) {
		id, uids := setupVoting(t, 3)

		_, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[0], GroupPurchaseID: id, Approved: true}, 0.8)
		require.NoError(t, err)
		_, err = storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: uids[0], GroupPurchaseID: id, Approved: false}, 0.8)
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindConflict))
	})
}

func TestStorage_ForceTally(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("decides from cast votes", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusVoting, 2, 10, 3, 50000)
		voter := factory.CreateUser(t, "voter", uuidEmail(t), models.RoleConsumer, 0)
		factory.AddParticipantRow(t, voter, id)
		_, err := storage.InsertVoteAndTally(ctx,
			models.Vote{UserUID: voter, GroupPurchaseID: id, Approved: true}, 0.8)
		require.NoError(t, err)

		result, err := storage.ForceTally(ctx, id, 0.8)
		require.NoError(t, err)
		assert.True(t, result.Decided)
		assert.Equal(t, models.StatusConfirmed, result.NewStatus)
	})

	t.Run("no votes cancels", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusVoting, 2, 10, 3, 50000)

		result, err := storage.ForceTally(ctx, id, 0.8)
		require.NoError(t, err)
		assert.True(t, result.Decided)
		assert.Equal(t, models.StatusCancelled, result.NewStatus)
	})
}

func TestStorage_ApplyPenalty(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	durations := map[int]int{1: 48, 2: 72, 3: 168}
	durationFor := func(newCount int) int {
		if h, ok := durations[newCount]; ok {
			return h
		}
		return 720
	}

	t.Run("escalates with repeat offenses", func(t *testing.T) {
		user := factory.CreateUser(t, "offender", "offender@example.com", models.RoleConsumer, 0)

		first, err := storage.ApplyPenalty(ctx, user, models.PenaltyCancellation, "withdrew after bidding", nil, durationFor)
		require.NoError(t, err)
		assert.Equal(t, 48, first.DurationHours)

		second, err := storage.ApplyPenalty(ctx, user, models.PenaltyCancellation, "withdrew after bidding", nil, durationFor)
		require.NoError(t, err)
		assert.Equal(t, 72, second.DurationHours)

		u, err := storage.GetUser(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 2, u.PenaltyCount)
		require.NotNil(t, u.PenaltyEndTime)
		assert.True(t, u.UnderPenalty(time.Now()))

		history, err := storage.ListPenalties(ctx, user)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 72, history[0].DurationHours)
	})
}

func TestStorage_CreateReviewAndRate(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	ctx := context.Background()
	creator := factory.CreateUser(t, "creator", "creator@example.com", models.RoleConsumer, 0)

	t.Run("review recomputes creator rating", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusCompleted, 2, 10, 2, 50000)
		reviewerA := factory.CreateUser(t, "reviewerA", "reviewerA@example.com", models.RoleConsumer, 0)
		reviewerB := factory.CreateUser(t, "reviewerB", "reviewerB@example.com", models.RoleConsumer, 0)
		factory.AddParticipantRow(t, reviewerA, id)
		factory.AddParticipantRow(t, reviewerB, id)

		_, err := storage.CreateReviewAndRate(ctx, models.Review{
			UserUID: reviewerA, GroupPurchaseID: id, Rating: 5, Content: "smooth run",
		})
		require.NoError(t, err)
		_, err = storage.CreateReviewAndRate(ctx, models.Review{
			UserUID: reviewerB, GroupPurchaseID: id, Rating: 4, Content: "minor delays",
		})
		require.NoError(t, err)

		u, err := storage.GetUser(ctx, creator)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, u.Rating, 0.001)
	})

	t.Run("duplicate review is a conflict", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusCompleted, 2, 10, 2, 50000)
		reviewer := factory.CreateUser(t, "reviewerC", "reviewerC@example.com", models.RoleConsumer, 0)
		factory.AddParticipantRow(t, reviewer, id)

		_, err := storage.CreateReviewAndRate(ctx, models.Review{
			UserUID: reviewer, GroupPurchaseID: id, Rating: 5, Content: "smooth run",
		})
		require.NoError(t, err)
		_, err = storage.CreateReviewAndRate(ctx, models.Review{
			UserUID: reviewer, GroupPurchaseID: id, Rating: 1, Content: "changed my mind",
		})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindConflict))
	})

	t.Run("purchase not completed", func(t *testing.T) {
		id := factory.CreatePurchase(t, creator, models.StatusVoting, 2, 10, 2, 50000)
		reviewer := factory.CreateUser(t, "reviewerD", "reviewerD@example.com", models.RoleConsumer, 0)

		_, err := storage.CreateReviewAndRate(ctx, models.Review{
			UserUID: reviewer, GroupPurchaseID: id, Rating: 5, Content: "too early",
		})
		require.Error(t, err)
		assert.True(t, domerr.Is(err, domerr.KindEligibility))
	})
}
