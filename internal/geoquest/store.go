package geoquest

import (
	"context"
	"time"

	"github.com/playperu/geoquest/internal/geo"
)

// GameStore persists games. Single-field updates are atomic statements;
// DeleteGame removes the game's points and the game in one transaction.
type GameStore interface {
	CreateGame(ctx context.Context, g Game) (Game, error)
	Game(ctx context.Context, id string) (Game, error)
	GamesByJudge(ctx context.Context, judgeID string) ([]Game, error)
	// GamesByReviewStatus lists games in one moderation state, or all games
	// when status is empty.
	GamesByReviewStatus(ctx context.Context, status ReviewStatus) ([]Game, error)
	PublishedGames(ctx context.Context) ([]Game, error)
	FirstActiveGame(ctx context.Context) (Game, error)
	SetGameActive(ctx context.Context, id string, active bool) error
	SetReviewStatus(ctx context.Context, id string, status ReviewStatus) error
	SetPublished(ctx context.Context, id string, published bool) error
	UpdateGameMeta(ctx context.Context, id string, meta GameMeta) error
	DeleteGame(ctx context.Context, id string) error
}

// PointStore persists control points. Points lists in insertion order,
// which is the scan order for proximity checks.
type PointStore interface {
	CreatePoint(ctx context.Context, p ControlPoint) (ControlPoint, error)
	Point(ctx context.Context, id string) (ControlPoint, error)
	Points(ctx context.Context, gameID string) ([]ControlPoint, error)
	CountPoints(ctx context.Context, gameID string) (int, error)
	CountPointsByGame(ctx context.Context, gameIDs []string) (map[string]int, error)
	UpdatePoint(ctx context.Context, id string, patch PointPatch) error
	SetPointActive(ctx context.Context, id string, active bool) error
	// SetChainStart deactivates every sequential point of the game except
	// pointID, which is activated.
	SetChainStart(ctx context.Context, gameID, pointID string) error
	// DeletePoint prunes the id from every found set of the game and then
	// deletes the point, atomically.
	DeletePoint(ctx context.Context, id string) error
}

// ProgressStore persists per-(game, player) progress rows.
type ProgressStore interface {
	// UpsertProgress creates the row for (gameID, playerID) or, if it exists,
	// only moves its current position. created reports which happened.
	UpsertProgress(ctx context.Context, gameID, playerID string, pos geo.Point, now time.Time) (p PlayerProgress, created bool, err error)
	Progress(ctx context.Context, gameID, playerID string) (PlayerProgress, error)
	ProgressByPlayer(ctx context.Context, playerID string) ([]PlayerProgress, error)
	ProgressByGame(ctx context.Context, gameID string) ([]PlayerProgress, error)
	IncompleteProgress(ctx context.Context) ([]PlayerProgress, error)
	// SetPosition reports false when the row does not exist.
	SetPosition(ctx context.Context, gameID, playerID string, pos geo.Point) (bool, error)
	// SaveFound writes p.FoundPoints if the stored version still equals
	// p.Version, bumping the version. Completion can only be set, never
	// cleared. It reports false when another writer got there first.
	SaveFound(ctx context.Context, p PlayerProgress) (bool, error)
	// MarkCompleted flags a row complete if it is not already.
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
}

// AccountStore persists judge and player accounts; roles are separate
// namespaces.
type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) (Account, error)
	Account(ctx context.Context, role Role, id string) (Account, error)
	AccountByNick(ctx context.Context, role Role, nick string) (Account, error)
	AccountByDevice(ctx context.Context, role Role, deviceID string) (Account, error)
	// UpdateAccountProfile overwrites nickname, contact fields, password hash
	// and status of an existing account.
	UpdateAccountProfile(ctx context.Context, a Account) error
	// Accounts lists accounts of role in one status, or all when status is empty.
	Accounts(ctx context.Context, role Role, status AccountStatus) ([]Account, error)
	SetAccountStatus(ctx context.Context, role Role, id string, status AccountStatus) error
}

// Event is a best-effort notification about a game. Consumers must poll for
// authoritative state.
type Event struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId,omitempty"`
	PointID  string `json:"pointId,omitempty"`
}

const (
	EventPointFound    = "point_found"
	EventPointUnlocked = "point_unlocked"
	EventGameCompleted = "game_completed"
	EventGameActivated = "game_activated"
)

// Publisher fans events out to subscribers of a game.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}
