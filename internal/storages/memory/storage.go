package memory

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/coindash/coindash-server/internal/apperrors"
	"github.com/coindash/coindash-server/internal/storages"
)

// Storage keeps all per-user state in process memory. One lock guards the
// three maps; bcrypt work happens before the lock is taken so concurrent
// registrations only contend on the check-then-insert itself.
type Storage struct {
	mu         sync.RWMutex
	users      map[string]storages.User
	watchlists map[string][]string
	portfolios map[string][]storages.Holding
}

func NewStorage() *Storage {
	return &Storage{
		users:      make(map[string]storages.User),
		watchlists: make(map[string][]string),
		portfolios: make(map[string][]storages.Holding),
	}
}

func (s *Storage) RegisterUser(username, password string) error {
	if username == "" || password == "" {
		return apperrors.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		logrus.WithField("username", username).Error("username already exists")
		return apperrors.ErrConflict
	}
	s.users[username] = storages.User{Username: username, PasswordHash: string(hash)}

	logrus.WithField("username", username).Info("user registered")
	return nil
}

func (s *Storage) GetUser(username string) (storages.User, error) {
	s.mu.RLock()
	user, exists := s.users[username]
	s.mu.RUnlock()

	if !exists {
		return storages.User{}, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Storage) GetWatchlist(username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyWatchlist(s.watchlists[username]), nil
}

func (s *Storage) AddToWatchlist(username, coinID string) ([]string, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.watchlists[username]
	if !contains(list, coinID) {
		list = append(list, coinID)
		s.watchlists[username] = list
		logrus.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  coinID,
		}).Info("coin added to watchlist")
	}
	return copyWatchlist(list), nil
}

func (s *Storage) RemoveFromWatchlist(username, coinID string) ([]string, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.watchlists[username]
	for i, id := range list {
		if id == coinID {
			list = append(list[:i], list[i+1:]...)
			s.watchlists[username] = list
			logrus.WithFields(logrus.Fields{
				"username": username,
				"coin_id":  coinID,
			}).Info("coin removed from watchlist")
			break
		}
	}
	return copyWatchlist(list), nil
}

func (s *Storage) GetPortfolio(username string) ([]storages.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPortfolio(s.portfolios[username]), nil
}

func (s *Storage) UpsertHolding(username, coinID string, amount float64) ([]storages.Holding, error) {
	if coinID == "" || amount < 0 {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.portfolios[username]
	updated := false
	for i := range holdings {
		if holdings[i].CoinID == coinID {
			holdings[i].Amount = amount
			updated = true
			break
		}
	}
	if !updated {
		holdings = append(holdings, storages.Holding{CoinID: coinID, Amount: amount})
	}
	s.portfolios[username] = holdings

	logrus.WithFields(logrus.Fields{
		"username": username,
		"coin_id":  coinID,
		"amount":   amount,
	}).Info("holding upserted")
	return copyPortfolio(holdings), nil
}

func (s *Storage) RemoveHolding(username, coinID string) ([]storages.Holding, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.portfolios[username]
	for i := range holdings {
		if holdings[i].CoinID == coinID {
			holdings = append(holdings[:i], holdings[i+1:]...)
			s.portfolios[username] = holdings
			logrus.WithFields(logrus.Fields{
				"username": username,
				"coin_id":  coinID,
			}).Info("holding removed")
			break
		}
	}
	return copyPortfolio(holdings), nil
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func copyWatchlist(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func copyPortfolio(holdings []storages.Holding) []storages.Holding {
	out := make([]storages.Holding, len(holdings))
	copy(out, holdings)
	return out
}
