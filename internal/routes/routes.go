package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinical-lab-server/internal/config"
	"clinical-lab-server/internal/database"
	"clinical-lab-server/internal/handlers"
	"clinical-lab-server/internal/middleware"
	"clinical-lab-server/internal/models"
)

// NewRouter builds the engine with the request-id, logging, recovery and
// CORS middleware, then mounts every route.
func NewRouter(store database.Store, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), middleware.Recovery(log))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, store, cfg, log)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, store database.Store, cfg *config.Config, log zerolog.Logger) {
	authHandler := handlers.NewAuthHandler(store, cfg, log)
	userHandler := handlers.NewUserHandler(store, log)
	testHandler := handlers.NewTestHandler(store, log)
	appointmentHandler := handlers.NewAppointmentHandler(store, log)
	resultHandler := handlers.NewTestResultHandler(store, log)

	staff := middleware.RequireRole(models.RolePersonnel, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}
	}

	// Authenticated routes
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(cfg, store, log))
	{
		private.GET("/auth/me", authHandler.Me)

		// Ownership checks for users and appointments live in the handlers.
		userRoutes := private.Group("/users")
		{
			userRoutes.GET("", staff, userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.PUT("/:id/deactivate", adminOnly, userHandler.DeactivateUser)
			userRoutes.GET("/:id/appointments", userHandler.GetUserAppointments)
		}

		testRoutes := private.Group("/tests")
		{
			testRoutes.GET("", testHandler.GetTests)
			testRoutes.GET("/category/:category", testHandler.GetTestsByCategory)
			testRoutes.GET("/:id", testHandler.GetTestByID)
			testRoutes.POST("", staff, testHandler.CreateTest)
			testRoutes.PUT("/:id", staff, testHandler.UpdateTest)
			testRoutes.DELETE("/:id", adminOnly, testHandler.DeleteTest)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.POST("", staff, appointmentHandler.CreateAppointment)
			appointmentRoutes.PUT("/:id/status", staff, appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PUT("/:id/tests/:testId/status", staff, appointmentHandler.UpdateAppointmentTestStatus)
			appointmentRoutes.PUT("/:id", staff, appointmentHandler.UpdateAppointment)
		}

		resultRoutes := private.Group("/test-results")
		{
			resultRoutes.GET("", resultHandler.GetTestResults)
			resultRoutes.GET("/:id", resultHandler.GetTestResultByID)
			resultRoutes.POST("", staff, resultHandler.CreateTestResult)
			resultRoutes.PUT("/:id/approve", adminOnly, resultHandler.ApproveTestResult)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
