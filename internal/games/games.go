// Package games owns the game lifecycle: creation, activation, moderation
// and the public store listing.
package games

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/geoquest"
)

const DefaultMinPoints = 3

// Listing is the public-safe projection of a game in the store. OwnerID is
// an opaque tag; no judge profile data is exposed.
type Listing struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Area        geoquest.Area
	IsActive    bool
	PointCount  int
	OwnerID     string
}

type Service struct {
	games     geoquest.GameStore
	points    geoquest.PointStore
	gate      *admin.Gate
	publisher geoquest.Publisher
	logger    *slog.Logger

	minPoints int
	now       func() time.Time
}

func New(games geoquest.GameStore, points geoquest.PointStore, gate *admin.Gate, publisher geoquest.Publisher, logger *slog.Logger, minPoints int) *Service {
	if minPoints < 1 {
		minPoints = DefaultMinPoints
	}
	if publisher == nil {
		publisher = geoquest.Discard
	}
	return &Service{
		games:     games,
		points:    points,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		minPoints: minPoints,
		now:       time.Now,
	}
}

// Create starts a new draft game owned by judgeID.
func (s *Service) Create(ctx context.Context, judgeID, name string) (geoquest.Game, error) {
	name = strings.TrimSpace(name)
	if judgeID == "" {
		return geoquest.Game{}, geoquest.Invalidf("judgeId is required")
	}
	if name == "" {
		return geoquest.Game{}, geoquest.Invalidf("name is required")
	}
	g, err := s.games.CreateGame(ctx, geoquest.Game{
		JudgeID:      judgeID,
		Name:         name,
		MinPoints:    s.minPoints,
		ReviewStatus: geoquest.ReviewDraft,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return geoquest.Game{}, err
	}
	s.logger.Info("game created", "game_id", g.ID, "judge_id", judgeID)
	return g, nil
}

func (s *Service) Get(ctx context.Context, gameID string) (geoquest.Game, error) {
	return s.games.Game(ctx, gameID)
}

func (s *Service) ListByJudge(ctx context.Context, judgeID string) ([]geoquest.Game, error) {
	return s.games.GamesByJudge(ctx, judgeID)
}

// ActiveForJudge returns the judge's first active game.
func (s *Service) ActiveForJudge(ctx context.Context, judgeID string) (geoquest.Game, error) {
	games, err := s.games.GamesByJudge(ctx, judgeID)
	if err != nil {
		return geoquest.Game{}, err
	}
	for _, g := range games {
		if g.IsActive {
			return g, nil
		}
	}
	return geoquest.Game{}, geoquest.ErrNotFound
}

// AnyActive returns the oldest active game, the default for players who
// have not picked one from the store.
func (s *Service) AnyActive(ctx context.Context) (geoquest.Game, error) {
	return s.games.FirstActiveGame(ctx)
}

// Activate makes the game playable. If the game has sequential points and
// none of them is active, the head of the chain is activated so players
// always have an entry point.
func (s *Service) Activate(ctx context.Context, gameID string) error {
	if err := s.games.SetGameActive(ctx, gameID, true); err != nil {
		return err
	}

	points, err := s.points.Points(ctx, gameID)
	if err != nil {
		return fmt.Errorf("loading points: %w", err)
	}
	if start, ok := geoquest.ChainStart(points); ok {
		if err := s.points.SetPointActive(ctx, start.ID, true); err != nil && !errors.Is(err, geoquest.ErrNotFound) {
			return fmt.Errorf("activating chain start: %w", err)
		}
		s.logger.Info("chain start activated", "game_id", gameID, "point_id", start.ID)
		s.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventPointUnlocked, GameID: gameID, PointID: start.ID})
	}

	s.logger.Info("game activated", "game_id", gameID)
	s.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventGameActivated, GameID: gameID})
	return nil
}

// Deactivate stops play. Point activation flags are left as they are.
func (s *Service) Deactivate(ctx context.Context, gameID string) error {
	if err := s.games.SetGameActive(ctx, gameID, false); err != nil {
		return err
	}
	s.logger.Info("game deactivated", "game_id", gameID)
	return nil
}

// SubmitForReview moves a draft into the moderation queue. Resubmitting a
// queued game is a no-op; approved and rejected games only move by admin.
func (s *Service) SubmitForReview(ctx context.Context, gameID string) error {
	g, err := s.games.Game(ctx, gameID)
	if err != nil {
		return err
	}
	switch g.ReviewStatus {
	case geoquest.ReviewInReview:
		return nil
	case geoquest.ReviewDraft:
	default:
		return geoquest.Invalidf("game is %s, only drafts can be submitted", g.ReviewStatus)
	}
	if err := s.games.SetReviewStatus(ctx, gameID, geoquest.ReviewInReview); err != nil {
		return err
	}
	s.logger.Info("game submitted for review", "game_id", gameID)
	return nil
}

func (s *Service) SetReviewStatus(ctx context.Context, adminKey, gameID string, status geoquest.ReviewStatus) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	if !status.Valid() {
		return geoquest.Invalidf("unknown review status %q", status)
	}
	if err := s.games.SetReviewStatus(ctx, gameID, status); err != nil {
		return err
	}
	s.logger.Info("review status changed", "game_id", gameID, "status", status)
	return nil
}

func (s *Service) SetPublished(ctx context.Context, adminKey, gameID string, published bool) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	return s.games.SetPublished(ctx, gameID, published)
}

// UpdateMeta edits the descriptive fields of a game for its judge.
func (s *Service) UpdateMeta(ctx context.Context, gameID string, meta geoquest.GameMeta) error {
	if meta.Name != nil {
		name := strings.TrimSpace(*meta.Name)
		if name == "" {
			return geoquest.Invalidf("name must not be empty")
		}
		meta.Name = &name
	}
	if meta.MinPoints != nil && *meta.MinPoints < 1 {
		return geoquest.Invalidf("minPoints must be at least 1, got %d", *meta.MinPoints)
	}
	return s.games.UpdateGameMeta(ctx, gameID, meta)
}

func (s *Service) AdminUpdateMeta(ctx context.Context, adminKey, gameID string, meta geoquest.GameMeta) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	return s.UpdateMeta(ctx, gameID, meta)
}

// ListByReviewStatus is the moderation queue; an empty status lists every game.
func (s *Service) ListByReviewStatus(ctx context.Context, adminKey string, status geoquest.ReviewStatus) ([]geoquest.Game, error) {
	if err := s.gate.Check(adminKey); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, geoquest.Invalidf("unknown review status %q", status)
	}
	return s.games.GamesByReviewStatus(ctx, status)
}

// Delete removes the game and its points. Progress rows stay behind and are
// filtered by readers. A missing game is a no-op.
func (s *Service) Delete(ctx context.Context, gameID string) error {
	err := s.games.DeleteGame(ctx, gameID)
	if errors.Is(err, geoquest.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("game deleted", "game_id", gameID)
	return nil
}

// ListPublished returns the store: games that are published and approved.
func (s *Service) ListPublished(ctx context.Context) ([]Listing, error) {
	games, err := s.games.PublishedGames(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	counts, err := s.points.CountPointsByGame(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("counting points: %w", err)
	}

	out := make([]Listing, 0, len(games))
	for _, g := range games {
		if !g.Listed() {
			continue
		}
		out = append(out, Listing{
			ID:          g.ID,
			Slug:        Slug(g),
			Title:       g.DisplayTitle(),
			Description: g.Description,
			Area:        g.Area,
			IsActive:    g.IsActive,
			PointCount:  counts[g.ID],
			OwnerID:     g.JudgeID,
		})
	}
	return out, nil
}

// Slug is a readable store path segment for a game, made unique by a
// prefix of the game id.
func Slug(g geoquest.Game) string {
	short := g.ID
	if len(short) > 8 {
		short = short[:8]
	}
	base := slug.Make(g.DisplayTitle())
	if base == "" {
		return short
	}
	return base + "-" + short
}
