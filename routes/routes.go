package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnkhanh/vocasync/controllers"
	"github.com/vnkhanh/vocasync/middleware"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
	"github.com/vnkhanh/vocasync/store"
	"github.com/vnkhanh/vocasync/ws"
)

// Deps is everything the router hands out to handlers.
type Deps struct {
	Store    store.Store
	Sync     *services.SyncService
	Auth     *services.AuthService // nil disables the token exchange endpoints
	Resolver services.IdentityResolver
	Hub      *ws.Hub
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger

	AllowedOrigins []string
}

func SetupRouter(r *gin.Engine, d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	allowOrigin := OriginAllowed(d.AllowedOrigins)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := services.RegisterValidators(v); err != nil {
			panic(fmt.Sprintf("register binding validators: %v", err))
		}
	}

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	})

	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	health := controllers.NewHealthController(d.Store, d.Hub)
	r.GET("/health", health.HealthCheck)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	if d.Hub != nil {
		r.GET("/ws/sync", ws.HandleSyncWebSocket(d.Hub, d.Resolver, allowOrigin))
	}

	syncCtl := controllers.NewSyncController(d.Sync)
	auth := middleware.AuthMiddleware(d.Resolver)
	registerSync := func(g *gin.RouterGroup) {
		g.Use(auth)
		g.POST("/push", syncCtl.Push)
		g.GET("/pull", syncCtl.Pull)
	}
	registerSync(r.Group("/sync"))

	api := r.Group("/api")
	api.GET("/health", health.HealthCheck)
	registerSync(api.Group("/sync"))

	if d.Auth != nil {
		authCtl := controllers.NewAuthController(d.Auth)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/exchange-token", authCtl.ExchangeToken)
			authGroup.POST("/verify", authCtl.Verify)
		}
	}

	return r
}

// OriginAllowed accepts browser extensions plus the configured origins; "*"
// in origins accepts everything.
func OriginAllowed(origins []string) func(string) bool {
	allowed := make(map[string]struct{}, len(origins))
	all := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			all = true
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(origin string) bool {
		if all || strings.HasPrefix(origin, "chrome-extension://") {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
