package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/internal/access"
	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handler"
	"taskboard/internal/logging"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Log    *logrus.Logger

	revocations session.RevocationStore
}

// Deps are the collaborators the router is built from.
type Deps struct {
	DB          *gorm.DB
	Tokens      *auth.TokenManager
	Revocations session.RevocationStore
	Log         *logrus.Logger
}

func Init(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", cfg.DBDriver).Info("Connected to database")

	var revocations session.RevocationStore
	if cfg.RedisURL != "" {
		store, err := session.NewRedisStore(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to redis")
		revocations = store
	} else {
		logger.Warn("REDIS_URL not set, token revocations are kept in memory")
		revocations = session.NewMemoryStore()
	}

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := NewRouter(Deps{
		DB:          db,
		Tokens:      auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry),
		Revocations: revocations,
		Log:         logger,
	})

	return &Server{
		Engine:      engine,
		DB:          db,
		Config:      cfg,
		Log:         logger,
		revocations: revocations,
	}, nil
}

// NewRouter wires repositories, the access gate and handlers into a gin engine.
func NewRouter(d Deps) *gin.Engine {
	log := logging.WithService(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	userRepo := repository.NewUserRepository(d.DB)
	boardRepo := repository.NewBoardRepository(d.DB)
	listRepo := repository.NewListRepository(d.DB)
	cardRepo := repository.NewCardRepository(d.DB)
	gate := access.NewGate(boardRepo, listRepo, cardRepo)

	userHandler := handler.NewUserHandler(userRepo, d.Tokens, d.Revocations, log)
	boardHandler := handler.NewBoardHandler(boardRepo, userRepo, gate, log)
	listHandler := handler.NewListHandler(listRepo, gate, log)
	cardHandler := handler.NewCardHandler(cardRepo, gate, log)

	// Public routes
	r.GET("/health", healthHandler(d.DB, d.Revocations))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.POST("/auth/register", userHandler.Register)
	r.POST("/auth/login", userHandler.Login)

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(d.Tokens, d.Revocations, d.Log))
	{
		authorized.POST("/auth/logout", userHandler.Logout)
		authorized.GET("/user", userHandler.Me)
		authorized.GET("/users/search", userHandler.Search)

		// Board routes
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id", boardHandler.Delete)
		authorized.POST("/boards/:id/members", boardHandler.AddMember)
		authorized.DELETE("/boards/:id/members", boardHandler.RemoveMember)

		// List routes
		authorized.GET("/lists", listHandler.GetAll)
		authorized.POST("/lists", listHandler.Create)
		authorized.PUT("/lists/reorder", listHandler.Reorder)
		authorized.GET("/lists/:id", listHandler.GetByID)
		authorized.PUT("/lists/:id", listHandler.Update)
		authorized.DELETE("/lists/:id", listHandler.Delete)

		// Card routes
		authorized.GET("/cards", cardHandler.GetAll)
		authorized.POST("/cards", cardHandler.Create)
		authorized.PUT("/cards/move", cardHandler.Move)
		authorized.GET("/cards/:id", cardHandler.GetByID)
		authorized.PUT("/cards/:id", cardHandler.Update)
		authorized.DELETE("/cards/:id", cardHandler.Delete)
	}
	return r
}

func healthHandler(db *gorm.DB, revocations session.RevocationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "revocations": "ok"}

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		}
		if err := revocations.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["revocations"] = err.Error()
		}

		checks["status"] = http.StatusText(status)
		c.JSON(status, checks)
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		s.Log.WithField("port", s.Config.ServerPort).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.WithError(err).Fatal("Failed to listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Log.WithError(err).Fatal("Server forced to shutdown")
	}
	s.close()

	s.Log.Info("Server exited properly")
}

func (s *Server) close() {
	if closer, ok := s.revocations.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.Log.WithError(err).Warn("Failed to close redis")
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.Log.WithError(err).Warn("Failed to close database")
		}
	}
}
