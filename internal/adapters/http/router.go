package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/app/orch"
	"github.com/dkeye/tempvoice/internal/config"
	"github.com/dkeye/tempvoice/internal/domain"
)

// Service is the operator API the admin routes call into.
type Service interface {
	CreateRoom(ctx context.Context, guild domain.GuildID, user domain.UserID) (*app.CreateResult, error)
	DeleteRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID) error
	UpdateRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID, u orch.RoomUpdate) (*domain.ActiveRoom, error)
	SetKeepAlive(ctx context.Context, guild domain.GuildID, room domain.ChannelID, keep bool) (*domain.ActiveRoom, error)
	Allow(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, error)
	Deny(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (*domain.ActiveRoom, error)
	TransferOwnership(ctx context.Context, guild domain.GuildID, room domain.ChannelID, user domain.UserID) (bool, error)
	SavePreferenceFromRoom(ctx context.Context, guild domain.GuildID, room domain.ChannelID) (*domain.UserPreference, error)
	ResetPreference(ctx context.Context, guild domain.GuildID, user domain.UserID) error
	ListActiveRooms(ctx context.Context, guild domain.GuildID) ([]*domain.ActiveRoom, error)
	ListUserRooms(ctx context.Context, guild domain.GuildID, user domain.UserID) ([]*domain.ActiveRoom, error)
	GetOrCreateConfig(ctx context.Context, guild domain.GuildID) (*domain.TenantVoiceConfig, error)
	UpdateConfig(ctx context.Context, guild domain.GuildID, u domain.ConfigUpdate) (*domain.TenantVoiceConfig, error)
	Sweep(ctx context.Context) (int, bool)
}

var _ Service = (*orch.Orchestrator)(nil)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// AdminTokenMiddleware requires "Authorization: Bearer <token>". An empty
// token closes the API entirely.
func AdminTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			log.Warn().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).
				Str("path", c.FullPath()).Msg("admin request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// TimeoutMiddleware bounds the context handed to the service.
func TimeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, svc Service, gatherer prometheus.Gatherer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	h := &handlers{svc: svc}
	api := r.Group("/api", AdminTokenMiddleware(cfg.AdminToken), TimeoutMiddleware(cfg.RequestTimeout))

	g := api.Group("/guilds/:guild")
	g.GET("/config", h.getConfig)
	g.PATCH("/config", h.updateConfig)
	g.GET("/rooms", h.listRooms)
	g.POST("/rooms", h.createRoom)
	g.PATCH("/rooms/:room", h.updateRoom)
	g.DELETE("/rooms/:room", h.deleteRoom)
	g.POST("/rooms/:room/allow", h.allow)
	g.POST("/rooms/:room/deny", h.deny)
	g.POST("/rooms/:room/transfer", h.transfer)
	g.PUT("/rooms/:room/keep-alive", h.keepAlive)
	g.POST("/rooms/:room/preference", h.savePreference)
	g.GET("/users/:user/rooms", h.listUserRooms)
	g.DELETE("/users/:user/preference", h.resetPreference)
	api.POST("/sweep", h.sweep)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
