package postgres

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/coindash/coindash-server/internal/apperrors"
	"github.com/coindash/coindash-server/internal/storages"
)

// uniqueViolation is the Postgres error code raised by the users primary key.
const uniqueViolation = "23505"

type Storage struct {
	db *sql.DB
}

func (s *Storage) RegisterUser(username, password string) error {
	if username == "" || password == "" {
		return apperrors.ErrValidation
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		return err
	}

	_, err = s.db.Exec(`
        INSERT INTO users (username, password_hash, created_at)
        VALUES ($1, $2, NOW())`,
		username, string(hashedPassword))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			logrus.WithField("username", username).Error("username already exists")
			return apperrors.ErrConflict
		}
		logrus.WithField("username", username).WithError(err).Error("failed to register user")
		return err
	}

	logrus.WithField("username", username).Info("user registered in database")
	return nil
}

func (s *Storage) GetUser(username string) (storages.User, error) {
	var user storages.User
	err := s.db.QueryRow(`
        SELECT username, password_hash
        FROM users
        WHERE username = $1`,
		username).Scan(&user.Username, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return storages.User{}, apperrors.ErrInvalidCredentials
		}
		logrus.WithField("username", username).WithError(err).Error("failed to get user")
		return storages.User{}, err
	}
	return user, nil
}

func (s *Storage) GetWatchlist(username string) ([]string, error) {
	rows, err := s.db.Query(`
        SELECT coin_id
        FROM watchlists
        WHERE username = $1
        ORDER BY added_at`,
		username)
	if err != nil {
		logrus.WithField("username", username).WithError(err).Error("failed to query watchlist")
		return nil, err
	}
	defer rows.Close()

	list := []string{}
	for rows.Next() {
		var coinID string
		if err := rows.Scan(&coinID); err != nil {
			logrus.WithField("username", username).WithError(err).Error("failed to scan watchlist")
			return nil, err
		}
		list = append(list, coinID)
	}
	return list, rows.Err()
}

func (s *Storage) AddToWatchlist(username, coinID string) ([]string, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	_, err := s.db.Exec(`
        INSERT INTO watchlists (username, coin_id, added_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (username, coin_id) DO NOTHING`,
		username, coinID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  coinID,
		}).WithError(err).Error("failed to add to watchlist")
		return nil, err
	}
	return s.GetWatchlist(username)
}

func (s *Storage) RemoveFromWatchlist(username, coinID string) ([]string, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	_, err := s.db.Exec(`
        DELETE FROM watchlists
        WHERE username = $1 AND coin_id = $2`,
		username, coinID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  coinID,
		}).WithError(err).Error("failed to remove from watchlist")
		return nil, err
	}
	return s.GetWatchlist(username)
}

func (s *Storage) GetPortfolio(username string) ([]storages.Holding, error) {
	rows, err := s.db.Query(`
        SELECT coin_id, amount
        FROM portfolios
        WHERE username = $1
        ORDER BY added_at`,
		username)
	if err != nil {
		logrus.WithField("username", username).WithError(err).Error("failed to query portfolio")
		return nil, err
	}
	defer rows.Close()

	holdings := []storages.Holding{}
	for rows.Next() {
		var h storages.Holding
		if err := rows.Scan(&h.CoinID, &h.Amount); err != nil {
			logrus.WithField("username", username).WithError(err).Error("failed to scan portfolio")
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *Storage) UpsertHolding(username, coinID string, amount float64) ([]storages.Holding, error) {
	if coinID == "" || amount < 0 {
		return nil, apperrors.ErrValidation
	}

	_, err := s.db.Exec(`
        INSERT INTO portfolios (username, coin_id, amount, added_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (username, coin_id)
        DO UPDATE SET amount = EXCLUDED.amount`,
		username, coinID, amount)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  coinID,
			"amount":   amount,
		}).WithError(err).Error("failed to upsert holding")
		return nil, err
	}
	return s.GetPortfolio(username)
}

func (s *Storage) RemoveHolding(username, coinID string) ([]storages.Holding, error) {
	if coinID == "" {
		return nil, apperrors.ErrValidation
	}

	_, err := s.db.Exec(`
        DELETE FROM portfolios
        WHERE username = $1 AND coin_id = $2`,
		username, coinID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": username,
			"coin_id":  coinID,
		}).WithError(err).Error("failed to remove holding")
		return nil, err
	}
	return s.GetPortfolio(username)
}
