package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaulted-markets/vaulted-backend/api/controllers"
	"github.com/vaulted-markets/vaulted-backend/api/middleware"
	"github.com/vaulted-markets/vaulted-backend/internal/accounts"
	"github.com/vaulted-markets/vaulted-backend/internal/marketplace"
	"github.com/vaulted-markets/vaulted-backend/internal/pricing"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/internal/rent"
	"github.com/vaulted-markets/vaulted-backend/internal/storagefees"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/auth/session"
	"github.com/vaulted-markets/vaulted-backend/pkg/config"
	"github.com/vaulted-markets/vaulted-backend/pkg/db"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
	"github.com/vaulted-markets/vaulted-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	accountsService accounts.Service,
	treasuryService treasury.Service,
	registryService registry.Service,
	pricingService pricing.Service,
	rentService rent.Service,
	storageService storagefees.Service,
	marketService marketplace.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(accountsService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(accountsService, logg))
		r.Post("/refresh", controllers.AuthRefresh(accountsService, logg))
		r.Post("/logout", controllers.AuthLogout(accountsService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Get("/v1/accounts/me", controllers.AccountMe(accountsService, logg))

		r.Route("/v1/balances", func(r chi.Router) {
			r.Get("/", controllers.BalanceGet(treasuryService, logg))
			r.Get("/entries", controllers.LedgerEntries(treasuryService, logg))
			r.Post("/deposit", controllers.BalanceDeposit(treasuryService, logg))
			r.Post("/withdraw", controllers.BalanceWithdraw(treasuryService, logg))
		})

		r.Route("/v1/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(registryService, logg))
			r.Get("/{categoryId}", controllers.CategoryGet(registryService, logg))
			r.Get("/{categoryId}/fingerprints", controllers.FingerprintList(registryService, logg))
			// Owner-gated in the services themselves.
			r.Patch("/{categoryId}/fee", controllers.CategorySetFee(registryService, logg))
			r.Put("/{categoryId}/depositor", controllers.RentUpdateDepositor(rentService, logg))
		})
		r.Get("/v1/fingerprints/{fingerprintId}/price", controllers.PriceResolve(pricingService, logg))

		r.Route("/v1/market", func(r chi.Router) {
			r.Get("/listings", controllers.MarketListings(marketService, logg))
			r.Post("/primary/buy", controllers.MarketBuyUnminted(marketService, logg))
			r.Post("/sell", controllers.MarketSell(marketService, logg))
			r.Post("/stop", controllers.MarketStop(marketService, logg))
			r.Post("/listings/{listingId}/buy", controllers.MarketBuy(marketService, logg))
		})

		r.Route("/v1/assets", func(r chi.Router) {
			r.Get("/me", controllers.AssetListMine(registryService, logg))
			r.Get("/{assetId}", controllers.AssetGet(registryService, logg))
			r.Route("/{assetId}/rent", func(r chi.Router) {
				r.Get("/", controllers.RentRecord(rentService, logg))
				r.Get("/claimable", controllers.RentClaimable(rentService, logg))
				r.Post("/deposit", controllers.RentDeposit(rentService, logg))
				r.Post("/claim", controllers.RentClaim(rentService, logg))
				r.Post("/pause", controllers.RentPause(rentService, logg))
			})
			r.Patch("/{assetId}/blacklist", controllers.AssetSetBlacklisted(registryService, logg))
			r.Post("/{assetId}/storage/pay", controllers.StorageFeePay(storageService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.AccountRoleAdmin.String(), enums.AccountRoleDeployer.String()))
			r.Post("/v1/oracle/quotes", controllers.QuoteSubmit(pricingService, logg))
			r.Put("/v1/fingerprints/{fingerprintId}/price", controllers.FixedPriceSet(pricingService, logg))
		})

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.AccountRoleAdmin.String()))
			r.Post("/accounts", controllers.AdminCreateAccount(accountsService, logg))
			r.Route("/categories", func(r chi.Router) {
				r.Post("/", controllers.CategoryCreate(registryService, logg))
				r.Post("/{categoryId}/fingerprints", controllers.FingerprintCreate(registryService, logg))
				r.Post("/{categoryId}/whitelist", controllers.WhitelistAdd(registryService, logg))
				r.Delete("/{categoryId}/whitelist", controllers.WhitelistRemove(registryService, logg))
			})
		})
	})

	return r
}
