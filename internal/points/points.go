// Package points manages the control points of a game.
//
// A point's IsActive flag is game-global state. It is written only here:
// at creation, through admin patches, by SetStartSequential and by Activate,
// which the progress engine calls when a chained point is found.
package points

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
)

// DefaultPlacementRadius bounds how far from a judge's reported position a
// point may be placed, in meters.
const DefaultPlacementRadius = 50.0

// NewPoint is the input for creating a control point.
type NewPoint struct {
	Type     geoquest.PointType
	Position geo.Point
	Content  geoquest.Content
	Chain    *geoquest.Chain
}

type Service struct {
	points geoquest.PointStore
	games  geoquest.GameStore
	gate   *admin.Gate
	logger *slog.Logger

	placementRadius float64
	now             func() time.Time
}

func New(points geoquest.PointStore, games geoquest.GameStore, gate *admin.Gate, logger *slog.Logger, placementRadius float64) *Service {
	if placementRadius <= 0 {
		placementRadius = DefaultPlacementRadius
	}
	return &Service{
		points:          points,
		games:           games,
		gate:            gate,
		logger:          logger,
		placementRadius: placementRadius,
		now:             time.Now,
	}
}

// Create adds a point to an existing game. Visible points start active,
// sequential points inactive.
func (s *Service) Create(ctx context.Context, gameID string, in NewPoint) (geoquest.ControlPoint, error) {
	return s.create(ctx, gameID, in, in.Type == geoquest.PointVisible)
}

// CreateNear is Create with the position pulled to within the placement
// radius of origin, the judge's own reported location.
func (s *Service) CreateNear(ctx context.Context, gameID string, in NewPoint, origin geo.Point) (geoquest.ControlPoint, error) {
	if err := geoquest.ValidatePosition(origin); err != nil {
		return geoquest.ControlPoint{}, fmt.Errorf("origin: %w", err)
	}
	if err := geoquest.ValidatePosition(in.Position); err != nil {
		return geoquest.ControlPoint{}, err
	}
	in.Position = geo.ClampToRadius(origin, in.Position, s.placementRadius)
	return s.Create(ctx, gameID, in)
}

// AdminCreate is Create with an optional explicit activation state.
func (s *Service) AdminCreate(ctx context.Context, adminKey, gameID string, in NewPoint, isActive *bool) (geoquest.ControlPoint, error) {
	if err := s.gate.Check(adminKey); err != nil {
		return geoquest.ControlPoint{}, err
	}
	active := in.Type == geoquest.PointVisible
	if isActive != nil {
		active = *isActive
	}
	return s.create(ctx, gameID, in, active)
}

func (s *Service) create(ctx context.Context, gameID string, in NewPoint, active bool) (geoquest.ControlPoint, error) {
	if !in.Type.Valid() {
		return geoquest.ControlPoint{}, geoquest.Invalidf("unknown point type %q", in.Type)
	}
	if err := geoquest.ValidatePosition(in.Position); err != nil {
		return geoquest.ControlPoint{}, err
	}
	if _, err := s.games.Game(ctx, gameID); err != nil {
		return geoquest.ControlPoint{}, fmt.Errorf("game %s: %w", gameID, err)
	}

	chain := in.Chain
	if chain != nil && chain.ID == "" {
		c := *chain
		c.ID = s.chainID()
		chain = &c
	}

	p, err := s.points.CreatePoint(ctx, geoquest.ControlPoint{
		GameID:    gameID,
		Type:      in.Type,
		Position:  in.Position,
		Content:   in.Content,
		Chain:     chain,
		IsActive:  active,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return geoquest.ControlPoint{}, err
	}
	s.logger.Info("point created", "game_id", gameID, "point_id", p.ID, "type", p.Type, "active", p.IsActive)
	return p, nil
}

// Get returns a single point.
func (s *Service) Get(ctx context.Context, pointID string) (geoquest.ControlPoint, error) {
	return s.points.Point(ctx, pointID)
}

// List returns a game's points in listing order.
func (s *Service) List(ctx context.Context, gameID string) ([]geoquest.ControlPoint, error) {
	return s.points.Points(ctx, gameID)
}

func (s *Service) Count(ctx context.Context, gameID string) (int, error) {
	return s.points.CountPoints(ctx, gameID)
}

// ListDetailed is the moderator's view of every point of a game, including
// inactive ones and their content.
func (s *Service) ListDetailed(ctx context.Context, adminKey, gameID string) ([]geoquest.ControlPoint, error) {
	if err := s.gate.Check(adminKey); err != nil {
		return nil, err
	}
	return s.points.Points(ctx, gameID)
}

// UpdateContent replaces a point's content. A missing point is a no-op.
func (s *Service) UpdateContent(ctx context.Context, pointID string, content geoquest.Content) error {
	return ignoreMissing(s.points.UpdatePoint(ctx, pointID, geoquest.PointPatch{Content: &content}))
}

// AdminUpdate applies a partial patch. A missing point is a no-op.
func (s *Service) AdminUpdate(ctx context.Context, adminKey, pointID string, patch geoquest.PointPatch) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return geoquest.Invalidf("unknown point type %q", *patch.Type)
	}
	if patch.Position != nil {
		if err := geoquest.ValidatePosition(*patch.Position); err != nil {
			return err
		}
	}
	if patch.Chain != nil && patch.Chain.ID == "" {
		c := *patch.Chain
		c.ID = s.chainID()
		patch.Chain = &c
	}
	return ignoreMissing(s.points.UpdatePoint(ctx, pointID, patch))
}

// UpdateChain sets or, with an empty nextPointID, clears the point's
// successor. An existing chain id and order are kept. A missing point is a
// no-op.
func (s *Service) UpdateChain(ctx context.Context, pointID, nextPointID string) error {
	if nextPointID != "" && nextPointID == pointID {
		return geoquest.Invalidf("point %s cannot unlock itself", pointID)
	}
	p, err := s.points.Point(ctx, pointID)
	if errors.Is(err, geoquest.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	chain := geoquest.Chain{ID: s.chainID()}
	if p.Chain != nil {
		chain = *p.Chain
	}
	chain.NextPointID = nextPointID
	return ignoreMissing(s.points.UpdatePoint(ctx, pointID, geoquest.PointPatch{Chain: &chain}))
}

// SetStartSequential makes pointID the only active sequential point of the
// game. A point that is missing, foreign or not sequential is a no-op.
func (s *Service) SetStartSequential(ctx context.Context, gameID, pointID string) error {
	err := s.points.SetChainStart(ctx, gameID, pointID)
	if errors.Is(err, geoquest.ErrNotFound) {
		s.logger.Warn("chain start ignored", "game_id", gameID, "point_id", pointID)
		return nil
	}
	return err
}

// Activate unlocks a point for every player of its game. A missing point is
// a no-op.
func (s *Service) Activate(ctx context.Context, pointID string) error {
	return ignoreMissing(s.points.SetPointActive(ctx, pointID, true))
}

// Delete removes a point and prunes it from every player's found set. A
// missing point is a no-op.
func (s *Service) Delete(ctx context.Context, pointID string) error {
	if err := ignoreMissing(s.points.DeletePoint(ctx, pointID)); err != nil {
		return err
	}
	s.logger.Info("point deleted", "point_id", pointID)
	return nil
}

func (s *Service) AdminDelete(ctx context.Context, adminKey, pointID string) error {
	if err := s.gate.Check(adminKey); err != nil {
		return err
	}
	return s.Delete(ctx, pointID)
}

func (s *Service) chainID() string {
	return fmt.Sprintf("chain-%d", s.now().UnixMilli())
}

func ignoreMissing(err error) error {
	if errors.Is(err, geoquest.ErrNotFound) {
		return nil
	}
	return err
}
