package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"colony-counter/internal/infrastructure/events"
)

// BuildInfo сведения о сборке для /health и /version
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// NewRouter собирает маршруты API. hub может быть nil, тогда /api/v1/ws недоступен.
func NewRouter(handler *Handler, hub *events.Hub, info BuildInfo, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(logger))
	r.Use(CORS())
	if handler.limits.MaxSize > 0 {
		r.MaxMultipartMemory = handler.limits.MaxSize
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": info.Version,
		})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	})

	api := r.Group("/api/v1")
	{
		api.POST("/upload", handler.Upload)
		api.POST("/process/:image_id", handler.Process)
		api.GET("/images/:image_id/overlay", handler.Overlay)
		api.POST("/annotations/:image_id", handler.Annotate)
		api.GET("/sessions/:session_id/report", handler.Report)
		if hub != nil {
			api.GET("/ws", gin.WrapF(hub.ServeWS))
		}
	}

	return r
}
