package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/analyses"
	"quoteflow-backend/internal/groups"
	"quoteflow-backend/internal/quotes"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/config"
	"quoteflow-backend/internal/shared/metrics"
	"quoteflow-backend/internal/shared/server/middleware"
	"quoteflow-backend/internal/shared/server/respond"
	"quoteflow-backend/internal/sourcefiles"
)

// RouterDeps carries the handlers wired into the HTTP router.
type RouterDeps struct {
	Config          config.Config
	QuoteHandler    *quotes.Handler
	FileHandler     *sourcefiles.Handler
	AnalysisHandler *analyses.Handler
	GroupHandler    *groups.Handler
	RefDataHandler  *refdata.Handler
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
		middleware.RateLimit(rateLimitConfig()),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	if deps.RefDataHandler != nil {
		deps.RefDataHandler.RegisterRoutes(api)
	}
	if deps.QuoteHandler != nil {
		deps.QuoteHandler.RegisterRoutes(api)
	}
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.GroupHandler != nil {
		deps.GroupHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimitConfig throttles analysis endpoints harder than reads since each
// analysis call fans out to the document oracle.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			path := c.FullPath()
			switch {
			case c.Request.Method == http.MethodGet && path == "/api/v1/records/:id":
				return "POLLING"
			case pathTriggersAnalysis(c.Request.Method, path):
				return "ANALYZE"
			default:
				return "DEFAULT"
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 10, Burst: 30},
			"POLLING": {Rate: 20, Burst: 60},
			"ANALYZE": {Rate: 2, Burst: 5},
		},
	}
}

func pathTriggersAnalysis(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	switch path {
	case "/api/v1/files/:id/analyze",
		"/api/v1/files/:id/reanalyze",
		"/api/v1/quotes/:id/analyze-files",
		"/api/v1/quotes/:id/analyze-groups",
		"/api/v1/groups/:id/analyze":
		return true
	}
	return false
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
