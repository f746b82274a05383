// Package api exposes the ledger over a JSON HTTP interface built on gin.
//
// Reads go through the query cache; every successful write invalidates the
// query tags it affects before responding, so the next read observes it.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/auth"
	"github.com/goliatone/go-expense-ledger/export"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/repository"
	"github.com/goliatone/go-expense-ledger/settings"
)

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Auth         *auth.Service
	Client       *querycache.Client
	Queries      *querycache.Queries
	Transactions *repository.Transactions
	Fields       *repository.Fields
	Users        *repository.Users
	AllowedUsers *repository.AllowedUsers
	Settings     settings.Store
	Exporter     *export.CSV

	Logger         *zap.Logger
	Now            func() time.Time
	AllowedOrigins []string
	Version        string
}

// Handler serves the ledger routes.
type Handler struct {
	auth         *auth.Service
	client       *querycache.Client
	queries      *querycache.Queries
	transactions *repository.Transactions
	fields       *repository.Fields
	users        *repository.Users
	allowedUsers *repository.AllowedUsers
	settings     settings.Store
	exporter     *export.CSV
	logger       *zap.Logger
	now          func() time.Time
	version      string
}

// NewHandler builds a Handler from d.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		auth:         d.Auth,
		client:       d.Client,
		queries:      d.Queries,
		transactions: d.Transactions,
		fields:       d.Fields,
		users:        d.Users,
		allowedUsers: d.AllowedUsers,
		settings:     d.Settings,
		exporter:     d.Exporter,
		logger:       d.Logger,
		now:          d.Now,
		version:      d.Version,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.exporter == nil {
		h.exporter = export.NewCSV()
	}
	return h
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	h := NewHandler(d)

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))

	h.Register(r)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", headerRequestID)
	cfg.ExposeHeaders = []string{headerRequestID, "Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/session", h.SignIn)

	authed := api.Group("")
	authed.Use(h.Authenticate())

	authed.GET("/me", h.Me)

	tx := authed.Group("/transactions")
	tx.GET("", h.ListTransactions)
	tx.GET("/summary", h.Summary)
	tx.GET("/export", h.Export)
	tx.POST("", h.CreateTransaction)
	tx.GET("/:id", h.GetTransaction)
	tx.PUT("/:id", h.UpdateTransaction)
	tx.DELETE("/:id", h.DeleteTransaction)

	fields := authed.Group("/fields")
	fields.GET("", h.ListFields)
	fields.POST("", h.CreateField)
	fields.PUT("/:id", h.UpdateField)
	fields.DELETE("/:id", h.DeleteField)

	users := authed.Group("/users")
	users.GET("", h.ListUsers)
	users.PUT("/:uid/admin", h.SetAdmin)

	allowed := authed.Group("/allowed-users")
	allowed.GET("", h.ListAllowedUsers)
	allowed.POST("", h.AddAllowedUser)
	allowed.DELETE("/:id", h.DeleteAllowedUser)

	authed.GET("/settings", h.GetSettings)
	authed.PUT("/settings", h.PutSettings)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
		"version":   h.version,
	})
}

// invalidate refreshes the queries behind tags after a write. The write
// already succeeded, so a failed refresh is only logged.
func (h *Handler) invalidate(ctx context.Context, tags ...string) {
	for _, tag := range tags {
		if err := h.client.InvalidateTag(ctx, tag); err != nil {
			h.logger.Warn("query invalidation failed", zap.String("tag", tag), zap.Error(err))
		}
	}
}
