package main

import (
	"flag"
	"os"
	"time"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/coindash/coindash-server/internal/auth"
	"github.com/coindash/coindash-server/internal/config"
	"github.com/coindash/coindash-server/internal/handlers"
	"github.com/coindash/coindash-server/internal/market"
	"github.com/coindash/coindash-server/internal/storages"
	"github.com/coindash/coindash-server/internal/storages/memory"
	"github.com/coindash/coindash-server/internal/storages/postgres"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	configPath := flag.String("c", "config.env", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	logger.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.StorageDriver,
	}).Info("configuration loaded")

	var store storages.Storage
	switch cfg.StorageDriver {
	case "postgres":
		store, err = postgres.NewStorage(cfg.DBConfig)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
	default:
		store = memory.NewStorage()
		logger.Info("using in-memory storage")
	}

	tokens := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	marketClient := market.NewClient(cfg.CoinGeckoURL, cfg.UpstreamTimeout)
	newsClient := market.NewNewsClient(cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.UpstreamTimeout)
	snapshot := market.NewSnapshotCache(cfg.CacheTTL)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(loggingMiddleware())

	h := handlers.NewHandler(store, tokens, marketClient, newsClient, snapshot)

	user := router.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/login", h.Login)

		authed := user.Group("", h.AuthMiddleware())
		{
			authed.GET("/watchlist", h.GetWatchlist)
			authed.POST("/watchlist", h.AddToWatchlist)
			authed.DELETE("/watchlist", h.RemoveFromWatchlist)
			authed.GET("/portfolio", h.GetPortfolio)
			authed.POST("/portfolio", h.UpsertHolding)
			authed.DELETE("/portfolio", h.RemoveHolding)
		}
	}

	coins := router.Group("/coins")
	{
		coins.GET("/list", h.GetCoinList)
		coins.GET("/:id", h.GetCoinDetail)
		coins.GET("/:id/history", h.GetCoinHistory)
		coins.GET("/:id/news", h.GetCoinNews)
		coins.GET("/:id/sentiment", h.GetCoinSentiment)
	}

	router.GET("/price/:coinId", h.GetPrice)

	logger.WithField("port", cfg.HTTPPort).Info("starting HTTP server")
	if err := router.Run(cfg.HTTPPort); err != nil {
		logger.WithError(err).Fatal("failed to run server")
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   path,
		}).Info("request received")

		c.Next()

		duration := time.Since(start)
		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": duration,
		}

		if len(c.Errors) > 0 {
			logger.WithFields(fields).WithError(c.Errors.Last()).Error("request failed")
		} else {
			logger.WithFields(fields).Info("request completed")
		}
	}
}
