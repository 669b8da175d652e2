package router

import (
	"log"

	"github.com/anonto42/buddyfeed/internal/bootstrap"
	"github.com/anonto42/buddyfeed/internal/handlers"
	"github.com/anonto42/buddyfeed/internal/middleware"
	"github.com/anonto42/buddyfeed/internal/services"
	"github.com/anonto42/buddyfeed/internal/session"
	"github.com/anonto42/buddyfeed/pkg/config"
	"github.com/labstack/echo/v4"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	config.SetupMiddleware(e)
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, rt *bootstrap.Runtime, guard session.Guard) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", handlers.RootRedirect(rt.Provider, guard))

	// --- Initialize Services ---
	accounts := services.NewAccountService(rt.Provider, rt.Users)
	composer := services.NewComposer(rt.Posts, rt.Images)
	feed := services.NewFeedService(rt.Posts)
	posts := services.NewPostService(rt.Posts)
	threads := services.NewThreadService(rt.Posts, rt.Comments)
	likes := services.NewLikesService(rt.Users, services.DefaultLookupConcurrency)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(accounts)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require a valid session) ---
	api := e.Group("/api/v1")
	api.Use(middleware.RequireSession(rt.Provider, guard))
	log.Println("Session guard applied to /api/v1 group.")

	authHandler.RegisterSessionRoutes(api)

	// User profile routes
	userHandler := handlers.NewUserHandler(accounts)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(composer, posts)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(feed)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(threads)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(posts, likes)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	log.Println("All routes configured.")
}
