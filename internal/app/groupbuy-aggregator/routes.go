package groupbuyaggregator

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	bidlist "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/bid/list"
	bidplace "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/bid/place"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/bid/selectwinner"
	penaltyapply "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/penalty/apply"
	penaltylist "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/penalty/list"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/complete"
	purchasecreate "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/create"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/join"
	purchaselist "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/list"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/publish"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/read"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/remove"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/transition"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/purchase/withdraw"
	reviewcreate "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/review/create"
	reviewlist "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/review/list"
	userregister "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/user/register"
	votecast "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/vote/cast"
	votestatus "github.com/magabrotheeeer/groupbuy-aggregator/internal/http/handlers/vote/status"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/http/response"
	jwtlib "github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/jwt"
	biddingservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/bidding"
	lifecycleservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/lifecycle"
	penaltyservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/penalty"
	reviewservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/review"
	sweeperservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/sweeper"
	userservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/user"
	votingservice "github.com/magabrotheeeer/groupbuy-aggregator/internal/services/voting"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, maker jwtlib.Maker,
	lifecycleService *lifecycleservice.LifecycleService,
	biddingService *biddingservice.BiddingService,
	votingService *votingservice.VotingService,
	penaltyService *penaltyservice.PenaltyService,
	reviewService *reviewservice.ReviewService,
	sweeperService *sweeperservice.SweeperService,
	userService *userservice.UserService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/purchases", purchasecreate.New(logger, lifecycleService).ServeHTTP)
			r.Get("/purchases/list", purchaselist.New(logger, lifecycleService).ServeHTTP)
			r.Get("/purchases/{id}", read.New(logger, lifecycleService).ServeHTTP)
			r.Delete("/purchases/{id}", remove.New(logger, lifecycleService).ServeHTTP)
			r.Post("/purchases/{id}/publish", publish.New(logger, lifecycleService).ServeHTTP)
			r.Post("/purchases/{id}/join", join.New(logger, lifecycleService).ServeHTTP)
			r.Delete("/purchases/{id}/join", withdraw.New(logger, lifecycleService).ServeHTTP)
			r.Post("/purchases/{id}/complete", complete.New(logger, lifecycleService).ServeHTTP)
			r.Post("/purchases/{id}/transition", transition.New(logger, sweeperService).ServeHTTP)

			r.Post("/purchases/{id}/bids", bidplace.New(logger, biddingService).ServeHTTP)
			r.Get("/purchases/{id}/bids", bidlist.New(logger, biddingService).ServeHTTP)
			r.Post("/purchases/{id}/bids/select", selectwinner.New(logger, biddingService).ServeHTTP)

			r.Post("/purchases/{id}/votes", votecast.New(logger, votingService).ServeHTTP)
			r.Get("/purchases/{id}/votes", votestatus.New(logger, votingService).ServeHTTP)

			r.Post("/penalties", penaltyapply.New(logger, penaltyService).ServeHTTP)
			r.Get("/penalties", penaltylist.New(logger, penaltyService).ServeHTTP)

			r.Post("/reviews", reviewcreate.New(logger, reviewService).ServeHTTP)
			r.Get("/purchases/{id}/reviews", reviewlist.New(logger, reviewService).ServeHTTP)

			r.Post("/users", userregister.New(logger, userService).ServeHTTP)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, response.StatusOKWithData(map[string]any{
			"alive": true,
		}))
	})
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
