// Package app wires the routing service: config → engine client → route
// cache → orchestrator → HTTP engine.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johannbuere/lakbai-routing-api/internal/config"
	"github.com/johannbuere/lakbai-routing-api/internal/handler"
	"github.com/johannbuere/lakbai-routing-api/internal/middleware"
	"github.com/johannbuere/lakbai-routing-api/internal/routing"
	"github.com/johannbuere/lakbai-routing-api/internal/service"
)

// requestTimeout is the per-request deadline for the whole handler chain.
// It must exceed the engine timeout so a batch gets at least one full
// round-trip before the request gives up.
const requestTimeout = 30 * time.Second

// DBError represents a database-related error during startup.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db error during %q: %v", e.Op, e.Err)
}

func (e *DBError) Unwrap() error { return e.Err }

// App holds the application-level dependencies.
type App struct {
	DB     *pgxpool.Pool // nil when the in-memory cache is used
	Router *gin.Engine
	cfg    *config.Config
}

// New initializes the application: builds the OSRM engine client, selects
// the route cache backend, wires the orchestrator, and configures the HTTP
// engine with routes.
func New(cfg *config.Config) (*App, error) {
	// --- Routing engine client ---
	engineURLs := map[routing.Profile]string{
		routing.ProfileCar:     cfg.OSRMCarURL,
		routing.ProfileBicycle: cfg.OSRMBicycleURL,
		routing.ProfileFoot:    cfg.OSRMFootURL,
	}
	engine := routing.NewOSRMEngine(engineURLs, cfg.EngineTimeout)

	// --- Route cache ---
	var (
		store routing.Store
		pool  *pgxpool.Pool
	)
	if cfg.DBDSN != "" {
		var err error
		pool, store, err = newPgStore(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		log.Println("route cache: postgres store")
	} else {
		mem, err := routing.NewMemoryStore(cfg.CacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("app: build cache: %w", err)
		}
		store = mem
		log.Printf("route cache: in-memory LRU, capacity %d", cfg.CacheCapacity)
	}

	// --- Orchestrator ---
	routeService := service.NewRouteService(
		engine,
		store,
		service.WithMaxInFlight(cfg.MaxConcurrentFetches),
		service.WithLogger(log.Printf),
	)

	// --- HTTP engine ---
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Timeout(requestTimeout))

	h := handler.New(routeService, map[string]string{
		routing.ProfileCar.String():     cfg.OSRMCarURL,
		routing.ProfileBicycle.String(): cfg.OSRMBicycleURL,
		routing.ProfileFoot.String():    cfg.OSRMFootURL,
	})

	api := router.Group("/api")
	{
		api.POST("/route", h.GetRoute)
		api.POST("/routes/batch", h.GetRoutesBatch)
		api.GET("/cache/info", h.GetCacheInfo)
		api.POST("/cache/clear", h.ClearCache)
		api.GET("/health", h.Health)
	}

	return &App{
		DB:     pool,
		Router: router,
		cfg:    cfg,
	}, nil
}

// newPgStore connects the pgx pool and prepares the persistent route cache.
func newPgStore(dsn string) (*pgxpool.Pool, routing.Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, &DBError{Op: "parse_dsn", Err: err}
	}

	poolCfg.MaxConns = 20
	poolCfg.MaxConnLifetime = 30 * time.Second
	poolCfg.MaxConnIdleTime = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, &DBError{Op: "connect", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, &DBError{Op: "ping", Err: err}
	}

	store := routing.NewPgStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, &DBError{Op: "ensure_schema", Err: err}
	}

	log.Println("database connection pool established")
	return pool, store, nil
}

// Shutdown gracefully closes the database pool when one is in use.
func (a *App) Shutdown() {
	if a.DB != nil {
		a.DB.Close()
		log.Println("database connection pool closed")
	}
}
