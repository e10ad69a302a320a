// Package progress tracks each player's found points and completion per game
// and turns reported positions into discoveries.
//
// Sequential unlocks are shared: when a player finds a point whose chain
// names a successor, the successor is activated for every player of the
// game. The engine never writes point state itself; it asks its Unlocker.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
)

// maxAttempts bounds the optimistic retries of a found-set update.
const maxAttempts = 5

// Unlocker activates a point for every player of its game.
type Unlocker interface {
	Activate(ctx context.Context, pointID string) error
}

// Evaluation is the outcome of one proximity check.
type Evaluation struct {
	// Found is the point credited by this call, if any.
	Found      *geoquest.ControlPoint
	FoundCount int
	Progress   geoquest.PlayerProgress
}

// Summaries splits a player's history into games still in progress and
// games completed.
type Summaries struct {
	Active    []geoquest.Summary
	Completed []geoquest.Summary
}

type Engine struct {
	progress  geoquest.ProgressStore
	points    geoquest.PointStore
	games     geoquest.GameStore
	unlocker  Unlocker
	gate      *admin.Gate
	publisher geoquest.Publisher
	logger    *slog.Logger

	radius float64
	now    func() time.Time
}

type Options struct {
	Progress  geoquest.ProgressStore
	Points    geoquest.PointStore
	Games     geoquest.GameStore
	Unlocker  Unlocker
	Gate      *admin.Gate
	Publisher geoquest.Publisher
	Logger    *slog.Logger
	// Radius is the inclusive proximity threshold in meters.
	Radius float64
}

func New(o Options) *Engine {
	if o.Radius <= 0 {
		o.Radius = geoquest.DefaultProximityRadius
	}
	if o.Publisher == nil {
		o.Publisher = geoquest.Discard
	}
	return &Engine{
		progress:  o.Progress,
		points:    o.Points,
		games:     o.Games,
		unlocker:  o.Unlocker,
		gate:      o.Gate,
		publisher: o.Publisher,
		logger:    o.Logger,
		radius:    o.Radius,
		now:       time.Now,
	}
}

func validIDs(gameID, playerID string) error {
	if gameID == "" || playerID == "" {
		return geoquest.Invalidf("gameId and playerId are required")
	}
	return nil
}

// Start creates the player's progress row, or only moves the position when
// the player already started. It never resets found points or completion.
func (e *Engine) Start(ctx context.Context, gameID, playerID string, pos geo.Point) (geoquest.PlayerProgress, error) {
	if err := validIDs(gameID, playerID); err != nil {
		return geoquest.PlayerProgress{}, err
	}
	if err := geoquest.ValidatePosition(pos); err != nil {
		return geoquest.PlayerProgress{}, err
	}
	p, created, err := e.progress.UpsertProgress(ctx, gameID, playerID, pos, e.now().UTC())
	if err != nil {
		return geoquest.PlayerProgress{}, err
	}
	if created {
		e.logger.Info("player started", "game_id", gameID, "player_id", playerID, "progress_id", p.ID)
	}
	return p, nil
}

// ReportPosition stores the player's latest position. Players who have not
// started are ignored.
func (e *Engine) ReportPosition(ctx context.Context, gameID, playerID string, pos geo.Point) error {
	if err := geoquest.ValidatePosition(pos); err != nil {
		return err
	}
	_, err := e.progress.SetPosition(ctx, gameID, playerID, pos)
	return err
}

// Evaluate stores pos and credits at most one point: the first active,
// unfound point in listing order within the proximity radius. Nothing is
// credited while the game is inactive or before the player started.
func (e *Engine) Evaluate(ctx context.Context, gameID, playerID string, pos geo.Point) (Evaluation, error) {
	if err := geoquest.ValidatePosition(pos); err != nil {
		return Evaluation{}, err
	}
	started, err := e.progress.SetPosition(ctx, gameID, playerID, pos)
	if err != nil {
		return Evaluation{}, err
	}
	if !started {
		return Evaluation{}, nil
	}

	var ev Evaluation
	game, err := e.games.Game(ctx, gameID)
	switch {
	case errors.Is(err, geoquest.ErrNotFound):
	case err != nil:
		return Evaluation{}, err
	case game.IsActive:
		p, err := e.progress.Progress(ctx, gameID, playerID)
		if err != nil {
			return Evaluation{}, err
		}
		points, err := e.points.Points(ctx, gameID)
		if err != nil {
			return Evaluation{}, err
		}
		if hit, ok := geoquest.FirstInRange(points, p.FoundPoints, pos, e.radius); ok {
			if _, err := e.MarkFound(ctx, gameID, playerID, hit.ID); err != nil {
				return Evaluation{}, err
			}
			ev.Found = &hit
		}
	}

	ev.Progress, err = e.Get(ctx, gameID, playerID)
	if err != nil {
		return Evaluation{}, err
	}
	ev.FoundCount = len(ev.Progress.FoundPoints)
	return ev, nil
}

// MarkFound adds pointID to the player's found set and returns the number of
// distinct found points. A point that is missing or belongs to another game,
// or a player without progress, yields 0 and no change. The first insertion
// unlocks the point's chained successor and may complete the game.
func (e *Engine) MarkFound(ctx context.Context, gameID, playerID, pointID string) (int, error) {
	point, err := e.points.Point(ctx, pointID)
	if errors.Is(err, geoquest.ErrNotFound) || (err == nil && point.GameID != gameID) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for range maxAttempts {
		p, err := e.progress.Progress(ctx, gameID, playerID)
		if errors.Is(err, geoquest.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if p.HasFound(pointID) {
			// Retry an unlock that failed after the find was stored.
			if err := e.unlockSuccessor(ctx, point, playerID); err != nil {
				return 0, err
			}
			return len(geoquest.Dedupe(p.FoundPoints)), nil
		}

		all, err := e.points.Points(ctx, gameID)
		if err != nil {
			return 0, err
		}

		next := p
		next.FoundPoints = append(slices.Clone(p.FoundPoints), pointID)
		completes := !p.IsCompleted && geoquest.AllFound(next.FoundPoints, all)
		if completes {
			at := e.now().UTC()
			next.IsCompleted = true
			next.CompletedAt = &at
		}

		ok, err := e.progress.SaveFound(ctx, next)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		e.logger.Info("point found", "game_id", gameID, "player_id", playerID, "point_id", pointID)
		e.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventPointFound, GameID: gameID, PlayerID: playerID, PointID: pointID})

		if err := e.unlockSuccessor(ctx, point, playerID); err != nil {
			return 0, err
		}
		if completes {
			e.logger.Info("game completed", "game_id", gameID, "player_id", playerID)
			e.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventGameCompleted, GameID: gameID, PlayerID: playerID})
		}
		return len(geoquest.Dedupe(next.FoundPoints)), nil
	}
	return 0, fmt.Errorf("marking %s found for %s: %w", pointID, playerID, geoquest.ErrConflict)
}

// unlockSuccessor activates the chained successor of point unless it is
// already active or no longer exists.
func (e *Engine) unlockSuccessor(ctx context.Context, point geoquest.ControlPoint, playerID string) error {
	succ := point.NextPointID()
	if succ == "" {
		return nil
	}
	next, err := e.points.Point(ctx, succ)
	if errors.Is(err, geoquest.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading successor %s: %w", succ, err)
	}
	if next.IsActive {
		return nil
	}
	if err := e.unlocker.Activate(ctx, succ); err != nil {
		return fmt.Errorf("unlocking %s: %w", succ, err)
	}
	e.logger.Info("chain unlocked", "game_id", point.GameID, "point_id", succ, "by_player", playerID)
	e.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventPointUnlocked, GameID: point.GameID, PlayerID: playerID, PointID: succ})
	return nil
}

// Get returns the player's progress with found points filtered to points
// that still exist and completion recomputed. The filtered view is not
// written back.
func (e *Engine) Get(ctx context.Context, gameID, playerID string) (geoquest.PlayerProgress, error) {
	p, err := e.progress.Progress(ctx, gameID, playerID)
	if err != nil {
		return geoquest.PlayerProgress{}, err
	}
	points, err := e.points.Points(ctx, gameID)
	if err != nil {
		return geoquest.PlayerProgress{}, err
	}
	return sanitize(p, points), nil
}

func sanitize(p geoquest.PlayerProgress, points []geoquest.ControlPoint) geoquest.PlayerProgress {
	p.FoundPoints = geoquest.SanitizeFound(p.FoundPoints, points)
	p.IsCompleted = p.IsCompleted || geoquest.AllFound(p.FoundPoints, points)
	return p
}

// Summaries reports every game the player has started, with completion
// recomputed against the game's current points.
func (e *Engine) Summaries(ctx context.Context, playerID string) (Summaries, error) {
	rows, err := e.progress.ProgressByPlayer(ctx, playerID)
	if err != nil {
		return Summaries{}, err
	}

	type gameInfo struct {
		game   *geoquest.Game
		points []geoquest.ControlPoint
	}
	cache := make(map[string]gameInfo)

	out := Summaries{Active: []geoquest.Summary{}, Completed: []geoquest.Summary{}}
	for _, p := range rows {
		info, ok := cache[p.GameID]
		if !ok {
			g, err := e.games.Game(ctx, p.GameID)
			switch {
			case err == nil:
				info.game = &g
			case !errors.Is(err, geoquest.ErrNotFound):
				return Summaries{}, err
			}
			if info.points, err = e.points.Points(ctx, p.GameID); err != nil {
				return Summaries{}, err
			}
			cache[p.GameID] = info
		}

		found := geoquest.SanitizeFound(p.FoundPoints, info.points)
		s := geoquest.Summary{
			ProgressID:  p.ID,
			GameID:      p.GameID,
			PlayerID:    p.PlayerID,
			FoundPoints: found,
			FoundCount:  len(found),
			TotalPoints: len(info.points),
			IsCompleted: geoquest.CompletedByCount(p.IsCompleted, len(found), len(info.points)),
			StartedAt:   p.StartedAt,
			CompletedAt: p.CompletedAt,
			GameTitle:   "Untitled",
		}
		if info.game != nil {
			s.GameTitle = info.game.DisplayTitle()
			if !info.game.Area.IsZero() {
				area := info.game.Area
				s.GameArea = &area
			}
		}
		if s.IsCompleted {
			out.Completed = append(out.Completed, s)
		} else {
			out.Active = append(out.Active, s)
		}
	}
	return out, nil
}

// VisiblePoints lists the points a player may currently see in listing
// order. A player who has not started sees what a fresh player sees.
func (e *Engine) VisiblePoints(ctx context.Context, gameID, playerID string) ([]geoquest.ControlPoint, error) {
	game, err := e.games.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	points, err := e.points.Points(ctx, gameID)
	if err != nil {
		return nil, err
	}
	p, err := e.progress.Progress(ctx, gameID, playerID)
	if err != nil && !errors.Is(err, geoquest.ErrNotFound) {
		return nil, err
	}

	visible := make([]geoquest.ControlPoint, 0, len(points))
	for _, pt := range points {
		if geoquest.VisibleTo(pt, p, game.IsActive) {
			visible = append(visible, pt)
		}
	}
	return visible, nil
}

// LiveSnapshot is the moderator's map of a game: every point and every
// player with a known position.
func (e *Engine) LiveSnapshot(ctx context.Context, adminKey, gameID string) (geoquest.LiveSnapshot, error) {
	if err := e.gate.Check(adminKey); err != nil {
		return geoquest.LiveSnapshot{}, err
	}
	points, err := e.points.Points(ctx, gameID)
	if err != nil {
		return geoquest.LiveSnapshot{}, err
	}
	rows, err := e.progress.ProgressByGame(ctx, gameID)
	if err != nil {
		return geoquest.LiveSnapshot{}, err
	}

	snap := geoquest.LiveSnapshot{Points: points, Players: []geoquest.PlayerPosition{}}
	for _, p := range rows {
		if p.CurrentPosition != nil {
			snap.Players = append(snap.Players, geoquest.PlayerPosition{PlayerID: p.PlayerID, Position: *p.CurrentPosition})
		}
	}
	return snap, nil
}

// Reconcile flags rows that have found every point of their game but were
// never marked complete, such as rows written before completion was tracked.
// It never clears a flag. It returns the number of rows repaired.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	rows, err := e.progress.IncompleteProgress(ctx)
	if err != nil {
		return 0, err
	}

	pointsByGame := make(map[string][]geoquest.ControlPoint)
	repaired := 0
	for _, p := range rows {
		points, ok := pointsByGame[p.GameID]
		if !ok {
			if points, err = e.points.Points(ctx, p.GameID); err != nil {
				return repaired, err
			}
			pointsByGame[p.GameID] = points
		}
		if !geoquest.AllFound(p.FoundPoints, points) {
			continue
		}
		marked, err := e.progress.MarkCompleted(ctx, p.ID, e.now().UTC())
		if err != nil {
			return repaired, err
		}
		if marked {
			repaired++
			e.publisher.Publish(ctx, geoquest.Event{Type: geoquest.EventGameCompleted, GameID: p.GameID, PlayerID: p.PlayerID})
		}
	}
	if repaired > 0 {
		e.logger.Info("completion reconciled", "rows", repaired)
	}
	return repaired, nil
}
