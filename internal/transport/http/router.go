package httptransport

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"tensosense-server-go/internal/platform/config"
	"tensosense-server-go/internal/platform/observability"
	"tensosense-server-go/internal/utils"
)

// Options configures the HTTP router builder.
type Options struct {
	Config         *config.Config
	Logger         *utils.Logger
	AuthMiddleware gin.HandlerFunc
}

// Router bundles together the gin engine and common route groups.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
	// Secured is API behind AuthMiddleware, or API itself when no middleware is set.
	Secured *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with logging, recovery, CORS and observability middlewares.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	logger := opts.Logger

	if strings.EqualFold(opts.Config.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))
	engine.Use(observabilityMiddleware())

	_ = engine.SetTrustedProxies(nil)

	engine.Use(cors.New(corsConfig(opts.Config.Server.AllowedOrigins)))

	staticRoot := opts.Config.Server.StaticDir
	hasStatic := staticRoot != "" && dirExists(staticRoot)
	if hasStatic {
		engine.Use(static.Serve("/", static.LocalFile(staticRoot, true)))
	}

	engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") || !hasStatic {
			RespondError(c, http.StatusNotFound, "not found", gin.H{})
			return
		}
		c.File(filepath.Join(staticRoot, "index.html"))
	})

	api := engine.Group("/api")
	secured := api
	if opts.AuthMiddleware != nil {
		secured = api.Group("")
		secured.Use(opts.AuthMiddleware)
	}

	return &Router{
		Engine:  engine,
		API:     api,
		Secured: secured,
	}, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func loggingMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		logger.DebugTag(
			"HTTP",
			"%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			status,
			duration,
		)
	}
}

func observabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		reqCtx, spanEnd := observability.StartSpan(c.Request.Context(), "http.server", path)
		var spanErr error
		c.Request = c.Request.WithContext(reqCtx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		observability.RecordMetric(
			reqCtx,
			"http.requests",
			1,
			map[string]string{
				"component": "http.server",
				"method":    c.Request.Method,
				"path":      path,
				"status":    strconv.Itoa(c.Writer.Status()),
			},
		)
		observability.RecordMetric(
			reqCtx,
			"http.request.duration_ms",
			float64(duration.Milliseconds()),
			map[string]string{
				"component": "http.server",
				"method":    c.Request.Method,
				"path":      path,
			},
		)
	}
}
