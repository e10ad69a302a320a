// Package geoquest defines the core domain types, the pure game rules and the
// storage contracts. It depends only on the geo math package.
package geoquest

import (
	"time"

	"github.com/playperu/geoquest/internal/geo"
)

type ReviewStatus string

const (
	ReviewDraft    ReviewStatus = "draft"
	ReviewInReview ReviewStatus = "in_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewDraft, ReviewInReview, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

type Area struct {
	Country string
	Region  string
	City    string
}

func (a Area) IsZero() bool { return a == Area{} }

type Game struct {
	ID           string
	JudgeID      string
	Name         string
	Title        string
	Description  string
	Area         Area
	IsActive     bool
	MinPoints    int
	ReviewStatus ReviewStatus
	Published    bool
	CreatedAt    time.Time
}

// DisplayTitle falls back to the internal name for games without a store title.
func (g Game) DisplayTitle() string {
	if g.Title != "" {
		return g.Title
	}
	return g.Name
}

// Listed reports whether the game belongs in the public store.
func (g Game) Listed() bool {
	return g.Published && g.ReviewStatus == ReviewApproved
}

// GameMeta is a partial update of a game's descriptive fields. Nil fields
// are left unchanged.
type GameMeta struct {
	Name        *string
	Title       *string
	Description *string
	Area        *Area
	MinPoints   *int
}

type PointType string

const (
	PointVisible    PointType = "visible"
	PointSequential PointType = "sequential"
)

func (t PointType) Valid() bool {
	return t == PointVisible || t == PointSequential
}

// Content is the judge-authored payload revealed when a point is found.
type Content struct {
	QR     string
	Hint   string
	Symbol string
}

// Chain links a sequential point to the one it unlocks.
type Chain struct {
	ID          string
	Order       int
	NextPointID string
}

type ControlPoint struct {
	ID       string
	GameID   string
	Type     PointType
	Position geo.Point
	Content  Content
	Chain    *Chain
	// IsActive is shared by every player of the game. Finding a chained
	// point flips its successor for everyone.
	IsActive  bool
	CreatedAt time.Time
}

// NextPointID returns the chained successor, or "" when there is none.
func (p ControlPoint) NextPointID() string {
	if p.Chain == nil {
		return ""
	}
	return p.Chain.NextPointID
}

// PointPatch is a partial update of a control point. Nil fields are left unchanged.
type PointPatch struct {
	Type     *PointType
	Position *geo.Point
	Content  *Content
	Chain    *Chain
	IsActive *bool
}

type PlayerProgress struct {
	ID              string
	GameID          string
	PlayerID        string
	FoundPoints     []string
	CurrentPosition *geo.Point
	IsCompleted     bool
	StartedAt       time.Time
	CompletedAt     *time.Time
	Version         int64
}

// HasFound reports whether pointID is in the found set.
func (p PlayerProgress) HasFound(pointID string) bool {
	for _, id := range p.FoundPoints {
		if id == pointID {
			return true
		}
	}
	return false
}

// Summary is the per-game view of a player's history.
type Summary struct {
	ProgressID  string
	GameID      string
	PlayerID    string
	FoundPoints []string
	FoundCount  int
	TotalPoints int
	IsCompleted bool
	StartedAt   time.Time
	CompletedAt *time.Time
	GameTitle   string
	GameArea    *Area
}

type Role string

const (
	RoleJudge  Role = "judge"
	RolePlayer Role = "player"
)

func (r Role) Valid() bool { return r == RoleJudge || r == RolePlayer }

type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusApproved AccountStatus = "approved"
	StatusRejected AccountStatus = "rejected"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Account struct {
	ID           string
	Role         Role
	DeviceID     string
	PublicNick   string
	FullName     string
	Phone        string
	Email        string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
}

// LiveSnapshot is the moderator's map view of a running game.
type LiveSnapshot struct {
	Points  []ControlPoint
	Players []PlayerPosition
}

type PlayerPosition struct {
	PlayerID string
	Position geo.Point
}
