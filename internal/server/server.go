package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/books"
	"bookhub/internal/events"
	"bookhub/internal/favorites"
	"bookhub/internal/ratelimit"
	"bookhub/internal/reviews"
	"bookhub/internal/votes"
)

type Server struct {
	App    *App
	Hub    *events.Hub
	Engine *gin.Engine

	// Handler is the engine behind CORS and the access log.
	Handler http.Handler

	limiter *ratelimit.KeyedRateLimiter
}

func New(app *App, hub *events.Hub) *Server {
	if app.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{App: app, Hub: hub, Engine: gin.New()}
	s.Engine.Use(recovery(app.Log), auth.Gate(app.Sessions))
	s.routes()

	s.Handler = accessLog(app.Log, withCORS(app.Config.CORS.TrustedOrigins, s.Engine))
	return s
}

func (s *Server) routes() {
	app := s.App
	r := s.Engine

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	if s.Hub != nil {
		r.GET("/ws", events.WSHandler(s.Hub, app.Config.CORS.TrustedOrigins, app.Log))
	}

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	if app.Config.RateLimit.Enabled {
		s.limiter = ratelimit.New(app.Config.RateLimit.RPS, app.Config.RateLimit.Burst, ratelimit.DefaultIdleTTL)
		authGroup.Use(rateLimit(s.limiter, app.Log))
	}
	auth.NewHandler(app.Users, app.Sessions, app.Validator, app.Log).RegisterRoutes(authGroup)

	books.NewHandler(app.Books, app.BookRepo, app.Sessions, app.Validator, app.Log).RegisterRoutes(api)
	reviews.NewHandler(app.Reviews, app.Sessions, app.Log).RegisterRoutes(api)
	votes.NewHandler(app.Votes, app.Sessions, app.Log).RegisterRoutes(api)
	favorites.NewHandler(app.Favorites, app.Sessions, app.Log).RegisterRoutes(api)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	var stats events.Stats
	if s.Hub != nil {
		stats = s.Hub.Stats()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.App.DB.PingContext(ctx); err != nil {
		s.App.Log.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "not_ready",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ready",
		"db":             "ok",
		"tcp_clients":    stats.TCPClients,
		"ws_clients":     stats.WSClients,
		"dropped_events": stats.Dropped,
	})
}

// Close releases background resources. It does not close the database.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// HTTPServer returns an http.Server for addr. There are no whole-request
// read or write timeouts since /ws connections are long lived.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
