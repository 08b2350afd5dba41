package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub/gateway/internal/api/handlers"
	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/config"
	"estatehub/gateway/internal/services"
)

// Services bundles what the public router serves.
type Services struct {
	Config        services.IConfigService
	Feed          services.IFeedService
	Conversations services.IConversationService
	Submissions   services.ISubmissionService
	Media         services.IMediaService
	Locations     services.ILocationService
	Snapshots     services.ISnapshotService
	Stream        handlers.ConversationStreamer
}

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// background work owned by the middleware.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, svc.Config, logger)

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	restConfigHandler := handlers.NewRestConfigHandler(cfg, svc.Config)
	restLocationHandler := handlers.NewRestLocationHandler(svc.Locations)
	restFeedHandler := handlers.NewRestFeedHandler(svc.Feed)
	restConversationHandler := handlers.NewRestConversationHandler(svc.Conversations, svc.Stream)
	restListingHandler := handlers.NewRestListingHandler(svc.Submissions)
	restMediaHandler := handlers.NewRestMediaHandler(svc.Media)
	restSessionHandler := handlers.NewRestSessionHandler(svc.Feed, svc.Snapshots, logger)

	v1 := r.Group("/v1")
	{
		public := v1.Group("/")
		public.Use(rateLimiter.Limit())
		{
			public.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})
			public.GET("/config", restConfigHandler.GetPublicConfig)
			public.GET("/location/search", restLocationHandler.SearchLocations)
			public.GET("/location/:country_code/search", restLocationHandler.SearchLocations)
		}

		// Limits run after auth so that callers are keyed by user.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.GET("/feed", restFeedHandler.GetFeed)
			authRequired.POST("/feed/next", restFeedHandler.Next)
			authRequired.POST("/feed/reset", restFeedHandler.Reset)

			authRequired.GET("/conversations", restConversationHandler.List)
			authRequired.POST("/conversations/sync", restConversationHandler.Sync)
			authRequired.POST("/conversations/refresh", restConversationHandler.Refresh)
			authRequired.GET("/conversations/stream", restConversationHandler.Stream)
			authRequired.PUT("/conversations/:id", restConversationHandler.Update)
			authRequired.DELETE("/conversations/:id", restConversationHandler.Remove)

			authRequired.POST("/listings", restListingHandler.CreateListing)
			authRequired.PUT("/listings/:id", restListingHandler.UpdateListing)
			authRequired.GET("/profile", restListingHandler.GetProfile)
			authRequired.PUT("/profile", restListingHandler.UpdateProfile)

			authRequired.POST("/media/presign", restMediaHandler.Presign)
			authRequired.POST("/media/confirm", restMediaHandler.Confirm)

			authRequired.DELETE("/session", restSessionHandler.SignOut)
		}
	}

	return r
}

// SetupServiceRouter configures the operator API. It must only listen on a
// private interface.
func SetupServiceRouter(svc Services, shutdownChan chan<- struct{}, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	jsonApiHandler := handlers.NewJsonApiHandler(svc.Config, svc.Conversations, svc.Feed, shutdownChan, logger)
	r.POST("/api", jsonApiHandler.HandleRequest)
	return r
}
