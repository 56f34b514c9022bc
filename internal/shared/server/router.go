package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docsearch-backend/internal/documents"
	"docsearch-backend/internal/shared/config"
	"docsearch-backend/internal/shared/metrics"
	"docsearch-backend/internal/shared/server/middleware"
	"docsearch-backend/internal/shared/server/respond"
	localstore "docsearch-backend/internal/shared/storage/object/local"
)

// RouterDeps carries the handlers and optional dev-mode collaborators the
// router wires up.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler *documents.Handler

	// LocalStore enables the dev-only direct upload/download routes that
	// stand in for presigned URLs when no bucket is configured.
	LocalStore *localstore.Store
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.DocumentsHandler.RegisterRoutes(api)

	if deps.LocalStore != nil {
		registerLocalObjectRoutes(api, deps.LocalStore)
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// registerLocalObjectRoutes serves the targets of the local store's
// pseudo-presigned URLs.
func registerLocalObjectRoutes(api *gin.RouterGroup, store *localstore.Store) {
	api.PUT("/local-objects/*key", func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "object key is required", nil)
			return
		}
		_, err := store.Put(c.Request.Context(), key, c.ContentType(), c.Request.Body)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store object", nil)
			return
		}
		c.Status(http.StatusOK)
	})

	api.GET("/local-objects/*key", func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		reader, err := store.Open(c.Request.Context(), key)
		if err != nil {
			respond.Error(c, http.StatusNotFound, "not_found", "object not found", nil)
			return
		}
		defer reader.Close()
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, reader)
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
