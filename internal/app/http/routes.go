package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	adminapi "soapnotes-app/internal/api/admin"
	authapi "soapnotes-app/internal/api/auth"
	"soapnotes-app/internal/api/billing"
	notesapi "soapnotes-app/internal/api/notes"
	plansapi "soapnotes-app/internal/api/plans"
	stripewebhooks "soapnotes-app/internal/api/stripewebhook"
	"soapnotes-app/internal/api/users"
	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	"soapnotes-app/internal/infra/payments"
	"soapnotes-app/internal/store"
)

// Deps is everything the router needs. Tokens is nil when bearer tokens are
// minted elsewhere (Firebase); the local auth routes are then not mounted.
type Deps struct {
	Profiles store.Profiles
	Notes    store.Notes
	Verifier middleware.Verifier
	Tokens   authapi.TokenIssuer
	Google   *authapi.GoogleSignIn
	// OnAuthenticated runs after each verified token, e.g. to provision profiles.
	OnAuthenticated middleware.OnAuthenticated
	Payments        payments.Gateway
	Prices          plans.PriceTable
	WebhookSecret   string
	AppURL          string
	FreeNoteLimit   int
	NotesPageSize   int
	Log             *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	webhookHandler := stripewebhooks.NewHandler(d.Profiles, d.Prices, d.WebhookSecret, d.Log)
	r.POST("/webhook", webhookHandler.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var lookup payments.PriceLookup
	if pl, ok := d.Payments.(payments.PriceLookup); ok {
		lookup = pl
	}
	plansHandler := plansapi.NewHandler(d.Prices, lookup, d.Log)
	r.GET("/plans", plansHandler.ListPlans)

	authHandler := authapi.NewHandler(d.Profiles, d.Tokens, d.Google, d.Log)
	public := r.Group("/")
	public.Use(middleware.SanitizeInput("password", "old_password", "new_password"))
	if d.Tokens != nil {
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
		if d.Google != nil {
			public.GET("/auth/google", authHandler.GoogleStart)
			public.GET("/auth/google/callback", authHandler.GoogleCallback)
		}
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Verifier, d.OnAuthenticated, d.Log))

	if d.Tokens != nil {
		auth.POST("/change-password", middleware.SanitizeInput("password", "old_password", "new_password"), authHandler.ChangePassword)
	}

	usersHandler := users.NewHandler(d.Profiles, d.Notes, d.FreeNoteLimit, d.Log)
	auth.GET("/me", usersHandler.GetCurrentUser)
	auth.PUT("/me", usersHandler.UpdateCurrentUser)

	billingHandler := billing.NewHandler(d.Profiles, d.Payments, d.AppURL, d.Log)
	auth.POST("/create-checkout-session", billingHandler.CreateCheckoutSession)
	auth.POST("/billing-portal", billingHandler.CreateBillingPortal)

	notesHandler := notesapi.NewHandler(d.Profiles, d.Notes, d.FreeNoteLimit, d.NotesPageSize, d.Log)
	auth.POST("/notes/format", notesHandler.Format)
	auth.POST("/notes", middleware.RequireNoteAllowance(d.Profiles, d.Notes, d.FreeNoteLimit, d.Log), notesHandler.Create)
	auth.GET("/notes", notesHandler.List)
	auth.GET("/notes/:id", notesHandler.Get)
	auth.PUT("/notes/:id", notesHandler.Update)
	auth.DELETE("/notes/:id", notesHandler.Delete)
	auth.GET("/notes/:id/export", notesHandler.Export)

	// Admin routes
	adminHandler := adminapi.NewHandler(d.Profiles, d.Notes, d.Log)
	admin := r.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(d.Verifier, d.OnAuthenticated, d.Log),
		middleware.RequireRole(d.Profiles, profiles.RoleAdmin, d.Log),
	)
	admin.GET("/users", adminHandler.ListAllUsers)
	admin.PUT("/users/:id/role", adminHandler.SetRole)
	admin.PUT("/users/:id/plan", adminHandler.SetPlan)
}

// NewRouter builds the engine with 405 handling enabled; CORS and request
// logging are added by the caller.
func NewRouter(d Deps, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(mw...)
	RegisterRoutes(r, d)
	return r
}

// ProvisionProfile returns a hook that creates a profile the first time an
// externally issued identity is seen.
func ProvisionProfile(ps store.Profiles, provider string, log *zap.Logger) middleware.OnAuthenticated {
	return func(ctx context.Context, claims *middleware.Claims) error {
		_, err := ps.GetProfile(ctx, claims.UserID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		p := profiles.New(claims.UserID, claims.Email, provider)
		err = ps.CreateProfile(ctx, &p)
		if errors.Is(err, store.ErrConflict) {
			// a concurrent first request may have won; anything else is a real clash
			if _, getErr := ps.GetProfile(ctx, claims.UserID); getErr != nil {
				return fmt.Errorf("provision profile %s: %w", claims.UserID, err)
			}
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("provisioned profile", zap.String("user_id", claims.UserID))
		return nil
	}
}
