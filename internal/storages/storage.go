package storages

// Storage holds all per-user state: registered identities, watchlists and
// portfolio holdings. Mutating calls return the full updated collection so
// handlers can echo it back without a second round trip.
type Storage interface {
	RegisterUser(username, password string) error
	GetUser(username string) (User, error)

	GetWatchlist(username string) ([]string, error)
	AddToWatchlist(username, coinID string) ([]string, error)
	RemoveFromWatchlist(username, coinID string) ([]string, error)

	GetPortfolio(username string) ([]Holding, error)
	UpsertHolding(username, coinID string, amount float64) ([]Holding, error)
	RemoveHolding(username, coinID string) ([]Holding, error)
}

type User struct {
	Username     string
	PasswordHash string
}

type Holding struct {
	CoinID string  `json:"coinId"`
	Amount float64 `json:"amount"`
}
