package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/coindash/coindash-server/internal/apperrors"
	"github.com/coindash/coindash-server/internal/auth"
	"github.com/coindash/coindash-server/internal/market"
	"github.com/coindash/coindash-server/internal/storages"
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

type Handler struct {
	store    storages.Storage
	tokens   *auth.Service
	market   *market.Client
	news     *market.NewsClient
	snapshot *market.SnapshotCache
}

func NewHandler(store storages.Storage, tokens *auth.Service, marketClient *market.Client, news *market.NewsClient, snapshot *market.SnapshotCache) *Handler {
	return &Handler{
		store:    store,
		tokens:   tokens,
		market:   marketClient,
		news:     news,
		snapshot: snapshot,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind registration request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	logger.WithField("username", req.Username).Info("registration attempt")

	if err := h.store.RegisterUser(req.Username, req.Password); err != nil {
		logger.WithField("username", req.Username).WithError(err).Error("user registration failed")
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.WithField("username", req.Username).Info("user registered successfully")
	c.JSON(http.StatusOK, gin.H{"message": "User registered"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind login request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	logger.WithField("username", req.Username).Info("login attempt")

	// Same response for unknown user and wrong password, so usernames
	// cannot be enumerated.
	user, err := h.store.GetUser(req.Username)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.WithField("username", req.Username).Error("invalid username or password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		logger.WithError(err).Error("failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.WithField("username", req.Username).Info("login successful")
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.GetHeader("Authorization")
		if len(tokenStr) < 7 || tokenStr[:7] != "Bearer " {
			logger.Error("missing or invalid Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		username, err := h.tokens.Verify(tokenStr[7:])
		if err != nil {
			logger.WithError(err).Error("token verification failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("username", username)
		logger.WithField("username", username).Debug("user authenticated")
		c.Next()
	}
}

func (h *Handler) GetWatchlist(c *gin.Context) {
	username := c.GetString("username")

	watchlist, err := h.store.GetWatchlist(username)
	if err != nil {
		logger.WithField("username", username).WithError(err).Error("failed to get watchlist")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to retrieve watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"watchlist": watchlist})
}

func (h *Handler) AddToWatchlist(c *gin.Context) {
	var req struct {
		CoinID string `json:"coinId"`
	}

	if err := c.BindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind watchlist request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "coinId required"})
		return
	}

	username := c.GetString("username")
	watchlist, err := h.store.AddToWatchlist(username, req.CoinID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  req.CoinID,
		}).WithError(err).Error("failed to add to watchlist")
		c.JSON(errorStatus(err), gin.H{"error": "coinId required"})
		return
	}

	logger.WithFields(logrus.Fields{
		"username": username,
		"coin_id":  req.CoinID,
	}).Info("watchlist updated")
	c.JSON(http.StatusOK, gin.H{"watchlist": watchlist})
}

func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	var req struct {
		CoinID string `json:"coinId"`
	}

	if err := c.BindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind watchlist request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "coinId required"})
		return
	}

	username := c.GetString("username")
	watchlist, err := h.store.RemoveFromWatchlist(username, req.CoinID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  req.CoinID,
		}).WithError(err).Error("failed to remove from watchlist")
		c.JSON(errorStatus(err), gin.H{"error": "coinId required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"watchlist": watchlist})
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	username := c.GetString("username")

	portfolio, err := h.store.GetPortfolio(username)
	if err != nil {
		logger.WithField("username", username).WithError(err).Error("failed to get portfolio")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to retrieve portfolio"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

func (h *Handler) UpsertHolding(c *gin.Context) {
	var req struct {
		CoinID string   `json:"coinId"`
		Amount *float64 `json:"amount"`
	}

	if err := c.BindJSON(&req); err != nil || req.Amount == nil {
		logger.Error("failed to bind portfolio request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "coinId and amount required"})
		return
	}

	username := c.GetString("username")
	portfolio, err := h.store.UpsertHolding(username, req.CoinID, *req.Amount)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  req.CoinID,
			"amount":   *req.Amount,
		}).WithError(err).Error("failed to upsert holding")
		c.JSON(errorStatus(err), gin.H{"error": "coinId and amount required"})
		return
	}

	logger.WithFields(logrus.Fields{
		"username": username,
		"coin_id":  req.CoinID,
		"amount":   *req.Amount,
	}).Info("portfolio updated")
	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

func (h *Handler) RemoveHolding(c *gin.Context) {
	var req struct {
		CoinID string `json:"coinId"`
	}

	if err := c.BindJSON(&req); err != nil {
		logger.WithError(err).Error("failed to bind portfolio request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "coinId required"})
		return
	}

	username := c.GetString("username")
	portfolio, err := h.store.RemoveHolding(username, req.CoinID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  req.CoinID,
		}).WithError(err).Error("failed to remove holding")
		c.JSON(errorStatus(err), gin.H{"error": "coinId required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio": portfolio})
}

func (h *Handler) GetCoinList(c *gin.Context) {
	payload, err := h.snapshot.Get(c.Request.Context(), h.market.ListMarkets)
	if err != nil {
		logger.WithError(err).Error("failed to fetch coin list")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch coin list"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) GetCoinDetail(c *gin.Context) {
	coinID := c.Param("id")

	payload, err := h.market.CoinDetail(c.Request.Context(), coinID)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to fetch coin details")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch coin details"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) GetCoinHistory(c *gin.Context) {
	coinID := c.Param("id")
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		days = 30
	}

	payload, err := h.market.MarketChart(c.Request.Context(), coinID, days)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to fetch market chart")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch market chart"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) GetCoinNews(c *gin.Context) {
	coinID := c.Param("id")

	name, err := h.market.CoinName(c.Request.Context(), coinID)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to resolve coin name")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch news"})
		return
	}

	payload, err := h.news.Everything(c.Request.Context(), name)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to fetch news")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch news"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) GetCoinSentiment(c *gin.Context) {
	coinID := c.Param("id")

	name, err := h.market.CoinName(c.Request.Context(), coinID)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to resolve coin name")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch sentiment"})
		return
	}

	payload, err := h.news.Everything(c.Request.Context(), name)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to fetch news for sentiment")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch sentiment"})
		return
	}

	score, label := market.ScoreHeadlines(market.Headlines(payload))
	logger.WithFields(logrus.Fields{
		"coin_id": coinID,
		"score":   score,
		"label":   label,
	}).Info("sentiment computed")
	c.JSON(http.StatusOK, gin.H{"score": score, "label": label})
}

func (h *Handler) GetPrice(c *gin.Context) {
	coinID := c.Param("coinId")

	payload, err := h.market.SimplePrice(c.Request.Context(), coinID)
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("failed to fetch price")
		c.JSON(errorStatus(err), gin.H{"error": "Failed to fetch price"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrTokenMalformed),
		errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrUpstream), errors.Is(err, apperrors.ErrUpstreamTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
