package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/handler"
	"github.com/stemsi/quizdesk-portal/internal/middleware"
	"github.com/stemsi/quizdesk-portal/internal/model"
	"github.com/stemsi/quizdesk-portal/internal/response"
	"github.com/stemsi/quizdesk-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Quiz      *handler.QuizHandler
	Attempt   *handler.AttemptHandler
	Billing   *handler.BillingHandler
	Checkout  *handler.CheckoutHandler
	Webhook   *handler.WebhookHandler
	Plan      *handler.PlanHandler
	Vertical  *handler.VerticalHandler
	User      *handler.UserHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// rdb backs the rate limiter.
func SetupRouter(
	rdb *redis.Client,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID, middleware.HeaderIdempotencyKey}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID, "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli(middleware.APIBrotli))

	router.GET("/health", handlers.System.Health)

	// ─── Payment processor callbacks (signature verified, no JWT) ──────
	router.POST("/webhooks/payments", handlers.Webhook.PaymentWebhook)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())

	// Login and register share one budget of 30 requests per minute per IP.
	authLimiter := middleware.NewRateLimiter(rdb, "auth", 30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)

		// Logout only needs a valid token; the session may already be gone.
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)

		account := auth.Group("")
		account.Use(middleware.RequireAuth(authService)...)
		account.GET("/me", handlers.Auth.Me)
		account.PATCH("/name", middleware.RequireCapability(model.CapSettingsManage), handlers.Auth.UpdateName)
		account.PATCH("/email", middleware.RequireCapability(model.CapSettingsManage), handlers.Auth.UpdateEmail)
		account.PATCH("/password", middleware.RequireCapability(model.CapSettingsManage), handlers.Auth.UpdatePassword)
	}

	// ─── 2. Signed-in Group (JWT + live session) ───────────────────────
	app := api.Group("")
	app.Use(middleware.RequireAuth(authService)...)
	{
		app.GET("/navigation", handlers.Dashboard.GetNavigation)
		app.GET("/dashboard", middleware.RequireCapability(model.CapDashboardView), handlers.Dashboard.GetDashboard)

		quizzes := app.Group("/quizzes")
		{
			quizzes.GET("", middleware.RequireCapability(model.CapQuizzesRead), handlers.Quiz.ListQuizzes)
			quizzes.POST("", middleware.RequireCapability(model.CapQuizzesCreate), handlers.Quiz.SaveQuiz)
			quizzes.POST("/generate", middleware.RequireCapability(model.CapQuizzesCreate), handlers.Quiz.GenerateQuiz)
			quizzes.GET("/:id", middleware.RequireAnyCapability(model.CapQuizzesRead, model.CapQuizzesTake), handlers.Quiz.GetQuiz)
			quizzes.DELETE("/:id", middleware.RequireCapability(model.CapQuizzesCreate), handlers.Quiz.DeleteQuiz)
			quizzes.GET("/:id/share", middleware.RequireCapability(model.CapQuizzesRead), handlers.Quiz.ShareQuiz)
			quizzes.POST("/:id/attempts", middleware.RequireCapability(model.CapQuizzesTake), handlers.Attempt.StartAttempt)
		}

		attempts := app.Group("/attempts")
		attempts.Use(middleware.RequireCapability(model.CapQuizzesTake))
		{
			attempts.GET("/:attempt_id", handlers.Attempt.GetAttempt)
			attempts.PUT("/:attempt_id/answers/:question_id", handlers.Attempt.RecordAnswer)
			attempts.POST("/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		}

		results := app.Group("/results")
		results.Use(middleware.RequireCapability(model.CapResultsRead))
		{
			results.GET("", handlers.Quiz.ListResults)
			results.GET("/:id", handlers.Quiz.GetResult)
		}

		app.GET("/plans", handlers.Plan.ListPlans)
		app.GET("/verticals", handlers.Vertical.ListVerticals)

		billing := app.Group("/billing")
		billing.Use(middleware.RequireCapability(model.CapBillingManage))
		{
			billing.GET("", handlers.Billing.GetOverview)
			billing.GET("/subscription", handlers.Billing.GetSubscription)
			billing.POST("/cancel", handlers.Billing.CancelSubscription)
		}

		checkouts := app.Group("/checkouts")
		checkouts.Use(middleware.RequireCapability(model.CapBillingManage))
		{
			checkouts.POST("", middleware.RequireIdempotencyKey(), handlers.Checkout.CreateCheckout)
			checkouts.GET("/:id", handlers.Checkout.GetCheckout)
			checkouts.POST("/:id/confirm", handlers.Checkout.ConfirmCheckout)
			checkouts.GET("/:id/events", handlers.Checkout.StreamCheckoutEvents)
		}

		team := app.Group("/team")
		team.Use(middleware.RequireCapability(model.CapTeamManage))
		{
			team.GET("", handlers.User.ListTeam)
			team.POST("/members", handlers.User.AddTeamMember)
			team.DELETE("/members/:member_id", handlers.User.RemoveTeamMember)
		}
	}

	// ─── 3. Admin Group (capability-gated per route) ───────────────────
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(authService)...)
	{
		admin.GET("/quizzes", middleware.RequireCapability(model.CapQuizzesModerate), handlers.Quiz.ListAllQuizzes)
		admin.DELETE("/quizzes/:id", middleware.RequireCapability(model.CapQuizzesModerate), handlers.Quiz.DeleteAnyQuiz)

		admin.POST("/plans", middleware.RequireCapability(model.CapPlansManage), handlers.Plan.CreatePlan)
		admin.PUT("/plans/:id", middleware.RequireCapability(model.CapPlansManage), handlers.Plan.UpdatePlan)
		admin.DELETE("/plans/:id", middleware.RequireCapability(model.CapPlansManage), handlers.Plan.DeletePlan)

		admin.POST("/verticals", middleware.RequireCapability(model.CapVerticalsManage), handlers.Vertical.CreateVertical)
		admin.PUT("/verticals/:id", middleware.RequireCapability(model.CapVerticalsManage), handlers.Vertical.UpdateVertical)
		admin.DELETE("/verticals/:id", middleware.RequireCapability(model.CapVerticalsManage), handlers.Vertical.DeleteVertical)

		admin.GET("/users", middleware.RequireCapability(model.CapUsersManage), handlers.User.ListUsers)
		admin.DELETE("/users/:id", middleware.RequireCapability(model.CapUsersManage), handlers.User.DeleteUser)

		reconcile := admin.Group("/checkouts")
		reconcile.Use(middleware.RequireCapability(model.CapCheckoutsReconcile))
		{
			reconcile.GET("/unreconciled", handlers.Checkout.ListUnreconciled)
			reconcile.POST("/:id/retry", handlers.Checkout.RetryCheckout)
			reconcile.POST("/:id/resolve", handlers.Checkout.ResolveCheckout)
		}

		admin.GET("/system", middleware.RequireCapability(model.CapCheckoutsReconcile), handlers.System.GetStatus)
	}

	// ─── 4. WebSocket Group (token via ?token=) ────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireAuth(authService)...)
	wsGroup.Use(middleware.RequireCapability(model.CapQuizzesTake))
	{
		wsGroup.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
