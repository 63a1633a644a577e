// Package okusno is the engine behind a small admin-edited content site
// (posts, recipes, and friends) built with Go, Echo, and templ. Entities
// live in plain files — a JSON metadata index, a markdown blob per entity,
// and id-prefixed image files — and are served over a JSON API with an
// authenticated admin surface on top.
//
// Users provide their own templ components via the ViewFuncs struct for the
// admin pages; okusno handles the handler logic, middleware, and storage.
package okusno

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/ambrozic/okusno/analytics"
	"github.com/ambrozic/okusno/content"
)

// ViewFuncs holds user-provided templ components rendered by the admin and
// error pages. This keeps all presentation outside the engine.
type ViewFuncs struct {
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(entityTypes []string, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central application. It wires together the per-type content
// engines, caches, middleware, and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Views  ViewFuncs

	engines map[string]*content.Engine
	caches  map[string]*ListCache

	loginLimiter   *LoginLimiter
	analyticsStore *analytics.Store
	watcher        *content.Watcher
	customRoutes   []func(*App)
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:  cfg,
		Echo:    echo.New(),
		Views:   views,
		engines: make(map[string]*content.Engine),
		caches:  make(map[string]*ListCache),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Engine returns the content engine for an entity type, or nil.
func (a *App) Engine(name string) *content.Engine {
	return a.engines[name]
}

// Start initializes the stores, cache, middleware, and routes, then starts
// the server.
func (a *App) Start() error {
	// Validate required config
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("okusno: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("okusno: SessionSecret is required")
	}

	if err := a.initEngines(); err != nil {
		return err
	}

	// Initialize login limiter
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	// Initialize analytics if enabled
	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("okusno: init analytics: %w", err)
		}
		a.analyticsStore = store
		stopCleanup := store.StartCleanupScheduler(365, 24*time.Hour)
		defer stopCleanup()
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// initEngines builds one content engine, list cache, and index watcher per
// configured entity type.
func (a *App) initEngines() error {
	var indexPaths []string
	for _, ec := range a.Config.Entities {
		eng, err := content.NewEngine(content.Config{
			DataDir:     filepath.Join(a.Config.DataDir, ec.Name),
			AssetDir:    filepath.Join(a.Config.StaticDir, "uploads", ec.Name),
			AssetPrefix: "/public/uploads/" + ec.Name,
			SeedPath:    ec.SeedPath,
		})
		if err != nil {
			return fmt.Errorf("okusno: init %s engine: %w", ec.Name, err)
		}
		a.engines[ec.Name] = eng
		a.caches[ec.Name] = NewListCache(eng, a.Config.ListCacheTTL)
		indexPaths = append(indexPaths, eng.IndexPath())
	}

	// Out-of-band index edits must not be served stale from the cache.
	watcher, err := content.WatchFiles(indexPaths, func(path string) {
		for name, eng := range a.engines {
			if eng.IndexPath() == path {
				a.caches[name].Invalidate()
			}
		}
	})
	if err != nil {
		log.Printf("okusno: index watcher disabled: %v", err)
	} else {
		a.watcher = watcher
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets and uploaded images
	e.Static("/public", a.Config.StaticDir)

	// Entity API, one group per configured type
	for _, ec := range a.Config.Entities {
		h := &entityHandler{app: a, cfg: ec, engine: a.engines[ec.Name], cache: a.caches[ec.Name]}
		g := e.Group("/api/" + ec.Name)
		g.GET("", h.handleList)
		g.GET("/:id", h.handleGet)
		g.POST("", h.handleCreate)
		g.PUT("/:id", h.handleUpdate)
		g.DELETE("/:id", h.handleDelete)
	}

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	// Analytics routes
	if a.analyticsStore != nil {
		analytics.NewHandler(a.analyticsStore).RegisterRoutes(e, requireAdmin)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.analyticsStore != nil {
		a.analyticsStore.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("okusno: required environment variable %s is not set", key)
	}
	return v
}
