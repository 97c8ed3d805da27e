package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	httpHandler "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/handler/http"
	wsHandler "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/handler/websocket"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/hub"
	gormpersistence "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/persistence/gorm"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/setup"
	redisstate "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/state/redis"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/middleware"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/worker"
)

// RequestIDHeader carries the per-request id set by LoggerMiddleware.
const RequestIDHeader = "X-Request-ID"

// App holds every long-lived component of the server.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	GridStore   *service.GridStore
	HttpServer  *http.Server
}

// NewApp loads the configuration from the environment and builds the app.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig builds the app from an already validated config.
func NewAppWithConfig(cfg *Config) (*App, error) {
	log := NewLogger(cfg)
	log.Info("Configuration loaded successfully")
	app := &App{Config: cfg, Log: log}

	log.Info("Initializing infrastructure...")
	if cfg.RedisAddr != "" {
		redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		app.RedisClient = redisClient
		log.Info("Redis client initialized")
	}

	repo, err := app.openRepository()
	if err != nil {
		app.closeInfra()
		return nil, err
	}
	log.WithField("backend", cfg.StoreBackend).Info("Cell repository initialized")

	// Viewers start from the same in-memory grid the broadcasts come from.
	app.Hub = hub.NewHub(func() domain.GridState { return app.GridStore.State() })

	storeOpts := []service.GridStoreOption{
		service.WithStateListener(app.Hub),
		service.WithPersistTimeout(cfg.PersistTimeout),
	}
	if cfg.ClearMode == ClearModeAsynq {
		redisClientOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		app.AsynqClient = asynq.NewClient(redisClientOpt)
		app.AsynqServer = worker.NewWorkerServer(redisClientOpt, repo, log)
		storeOpts = append(storeOpts, service.WithAsyncWriter(worker.NewAsynqWriter(app.AsynqClient, cfg.ClearMaxRetry, cfg.PersistTimeout)))
		log.Info("Asynq client and worker server initialized")
	}
	app.GridStore = service.NewGridStore(repo, storeOpts...)
	// Raw replaces go around the store; it adopts them and fans them out.
	cellService := service.NewCellService(repo, app.GridStore, cfg.PersistTimeout)
	log.Info("Services initialized")

	if err := app.GridStore.Load(context.Background()); err != nil {
		log.WithError(err).Warn("Could not load saved grid at startup, starting empty")
	}

	router := app.newRouter(httpHandler.NewGridHandler(cellService, app.GridStore), wsHandler.NewWebSocketHandler(app.Hub, cfg.CORSAllowedOrigin))
	app.HttpServer = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// NewLogger builds the server logger: JSON in production, text otherwise.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	// Packages log through the standard logger; keep it in step.
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(level)
	return log
}

func (a *App) openRepository() (repository.CellRepository, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case BackendRedis:
		if a.RedisClient == nil {
			return nil, errors.New("redis backend selected but no Redis client")
		}
		return redisstate.NewRedisCellRepository(a.RedisClient, cfg.KeyPrefix), nil
	default:
		db, err := setup.InitDB(setup.DBOptions{
			Driver:     cfg.StoreBackend,
			User:       cfg.DBUser,
			Password:   cfg.DBPassword,
			Host:       cfg.DBHost,
			Port:       cfg.DBPort,
			Name:       cfg.DBName,
			SQLitePath: cfg.SQLitePath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init DB: %w", err)
		}
		a.DB = db
		if err := setup.MigrateDB(db); err != nil {
			return nil, fmt.Errorf("failed to migrate DB: %w", err)
		}
		a.Log.Info("Database initialized and migrated")
		return gormpersistence.NewGormCellRepository(db), nil
	}
}

func (a *App) newRouter(grid *httpHandler.GridHandler, ws *wsHandler.WebSocketHandler) *gin.Engine {
	if a.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(a.Log))
	router.Use(cors.New(corsConfig(a.Config.CORSAllowedOrigin)))
	if a.RedisClient != nil {
		router.Use(middleware.RateLimit(a.RedisClient, a.Config.KeyPrefix, a.Config.RateLimitMax, a.Config.RateLimitWindow))
	} else {
		a.Log.Warn("No REDIS_ADDR configured, rate limiting disabled")
	}

	auth := middleware.Auth(a.Config.JWTSecret)
	api := router.Group("/api/grid")
	{
		api.GET("", grid.ListCells)
		api.GET("/state", grid.State)
		api.POST("", auth, grid.ReplaceCells)
		api.POST("/cells", auth, grid.AddCell)
		api.DELETE("", auth, grid.Clear)
	}
	router.GET("/ws/grid", ws.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	return router
}

// Start launches the hub, the worker (if any) and the HTTP listener.
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	if a.AsynqServer != nil {
		go a.AsynqServer.Start()
		a.Log.Info("Asynq worker server routine started")
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops accepting requests, then tears down background work and connections.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.HttpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.HttpServer.Shutdown(ctx); err != nil {
			a.Log.Errorf("Error shutting down HTTP server: %v", err)
		} else {
			a.Log.Info("HTTP server shut down gracefully.")
		}
	}
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	a.closeInfra()
	a.Log.Info("Application shutdown complete.")
}

func (a *App) closeInfra() {
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}
}

// corsConfig lets the configured browser origin call the API with credentials.
func corsConfig(allowedOrigin string) cors.Config {
	return cors.Config{
		AllowOrigins:     []string{allowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// LoggerMiddleware logs one line per request and tags it with a request id.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
			"request_id":  requestID,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
