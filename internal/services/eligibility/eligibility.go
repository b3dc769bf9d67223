// Package services содержит правила допуска к операциям жизненного цикла
// закупки. Проверка чистая: решение принимается по переданным фактам, без
// обращений к хранилищу, правила применяются по порядку до первого отказа.
package services

import (
	"time"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Action — операция жизненного цикла, для которой проверяется допуск.
type Action string

// Операции, охваченные правилами допуска.
const (
	ActionCreate   Action = "create"
	ActionJoin     Action = "join"
	ActionBid      Action = "bid"
	ActionVote     Action = "vote"
	ActionWithdraw Action = "withdraw"
)

// BiddingReserve — минимальный баланс баллов продавца для участия в аукционе.
const BiddingReserve = 100

// Facts — снимок состояния, по которому принимается решение о допуске.
// Собирается вызывающим сервисом до проверки.
type Facts struct {
	Now           time.Time
	User          *models.User
	Purchase      *models.GroupPurchase
	IsParticipant bool
	HasVoted      bool
}

// Check применяет правила допуска для операции и возвращает nil либо
// доменную ошибку с причиной первого нарушенного правила.
func Check(action Action, f Facts) error {
	switch action {
	case ActionCreate:
		return checkCreate(f)
	case ActionJoin:
		return checkJoin(f)
	case ActionBid:
		return checkBid(f)
	case ActionVote:
		return checkVote(f)
	case ActionWithdraw:
		return checkWithdraw(f)
	}
	return domerr.Validation("unknown action: %s", action)
}

func checkCreate(f Facts) error {
	if f.User.Role != models.RoleConsumer {
		return domerr.Eligibility("only consumers can create a purchase")
	}
	if f.User.UnderPenalty(f.Now) {
		return domerr.Eligibility("user is suspended until %s", f.User.PenaltyEndTime.Format(time.RFC3339))
	}
	return nil
}

func checkJoin(f Facts) error {
	if f.User.Role != models.RoleConsumer {
		return domerr.Eligibility("only consumers can join a purchase")
	}
	if f.User.UnderPenalty(f.Now) {
		return domerr.Eligibility("user is suspended until %s", f.User.PenaltyEndTime.Format(time.RFC3339))
	}
	if f.Purchase.Status != models.StatusRecruiting {
		return domerr.Eligibility("purchase is not recruiting")
	}
	if f.IsParticipant {
		return domerr.Eligibility("user is already a participant")
	}
	if f.Purchase.CurrentParticipants >= f.Purchase.MaxParticipants {
		return domerr.Eligibility("purchase is full")
	}
	return nil
}

func checkBid(f Facts) error {
	if f.User.Role != models.RoleSeller {
		return domerr.Eligibility("only sellers can bid")
	}
	if f.User.Points < BiddingReserve {
		return domerr.Eligibility("at least %d points required for bidding", BiddingReserve)
	}
	if f.User.UnderPenalty(f.Now) {
		return domerr.Eligibility("user is suspended until %s", f.User.PenaltyEndTime.Format(time.RFC3339))
	}
	if f.Purchase.Status != models.StatusBidding {
		return domerr.Eligibility("purchase is not in bidding")
	}
	if !f.Purchase.InAuctionWindow(f.Now) {
		return domerr.Eligibility("auction window is closed")
	}
	return nil
}

func checkVote(f Facts) error {
	if !f.IsParticipant {
		return domerr.Eligibility("only participants can vote")
	}
	if f.Purchase.Status != models.StatusVoting {
		return domerr.Eligibility("purchase is not in voting")
	}
	if !f.Purchase.InVoteWindow(f.Now) {
		return domerr.Eligibility("vote window is closed")
	}
	if f.HasVoted {
		return domerr.Eligibility("user has already voted")
	}
	return nil
}

func checkWithdraw(f Facts) error {
	if f.User.UID == f.Purchase.CreatorUID {
		return domerr.Eligibility("creator cannot withdraw from own purchase")
	}
	if !f.IsParticipant {
		return domerr.Eligibility("user is not a participant")
	}
	if f.Purchase.Status != models.StatusRecruiting {
		return domerr.Eligibility("withdrawal is only possible while recruiting")
	}
	return nil
}
