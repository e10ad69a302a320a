package geoquest

import (
	"fmt"

	"github.com/playperu/geoquest/internal/geo"
)

// DefaultProximityRadius is the distance in meters within which a player is
// credited with a point. The boundary is inclusive.
const DefaultProximityRadius = 5.0

// Invalidf builds an error that wraps ErrInvalid.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidatePosition rejects non-finite or out-of-range coordinates.
func ValidatePosition(p geo.Point) error {
	if !p.Valid() {
		return Invalidf("coordinates must be finite degrees within range, got (%v, %v)", p.Lat, p.Lon)
	}
	return nil
}

// ChainStart picks the sequential point to activate when a game goes live.
// It returns false when the game has no sequential points or one of them is
// already active. The start is the chain head: the first sequential point, in
// listing order, that no other sequential point names as its successor. If
// every point is referenced (a cycle) the first sequential point is used.
func ChainStart(points []ControlPoint) (ControlPoint, bool) {
	var sequential []ControlPoint
	for _, p := range points {
		if p.Type != PointSequential {
			continue
		}
		if p.IsActive {
			return ControlPoint{}, false
		}
		sequential = append(sequential, p)
	}
	if len(sequential) == 0 {
		return ControlPoint{}, false
	}

	referenced := make(map[string]bool, len(sequential))
	for _, p := range sequential {
		if next := p.NextPointID(); next != "" {
			referenced[next] = true
		}
	}
	for _, p := range sequential {
		if !referenced[p.ID] {
			return p, true
		}
	}
	return sequential[0], true
}

// FirstInRange scans points in order and returns the first active point the
// player has not found yet that lies within radius meters of pos. Only one
// point is returned even if several qualify.
func FirstInRange(points []ControlPoint, found []string, pos geo.Point, radius float64) (ControlPoint, bool) {
	have := idSet(found)
	for _, p := range points {
		if !p.IsActive || have[p.ID] {
			continue
		}
		if geo.Distance(pos, p.Position) <= radius {
			return p, true
		}
	}
	return ControlPoint{}, false
}

// Dedupe returns ids without repeats, keeping first occurrences in order.
func Dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SanitizeFound keeps only ids that name one of the given points, deduplicated.
// It never mutates found.
func SanitizeFound(found []string, points []ControlPoint) []string {
	exists := make(map[string]bool, len(points))
	for _, p := range points {
		exists[p.ID] = true
	}
	out := make([]string, 0, len(found))
	for _, id := range Dedupe(found) {
		if exists[id] {
			out = append(out, id)
		}
	}
	return out
}

// AllFound reports whether every one of points is in found. A game without
// points can never be completed.
func AllFound(found []string, points []ControlPoint) bool {
	if len(points) == 0 {
		return false
	}
	return len(SanitizeFound(found, points)) == len(points)
}

// CompletedByCount is the count-only completion check used where the point
// set itself is not loaded. A stored completion flag always wins.
func CompletedByCount(stored bool, foundCount, total int) bool {
	return stored || (total > 0 && foundCount >= total)
}

// VisibleTo reports whether a player may see p. Visible points show whenever
// the game is active. Sequential points show once unlocked for the game, or
// when this player has already found them.
func VisibleTo(p ControlPoint, progress PlayerProgress, gameActive bool) bool {
	if !gameActive {
		return false
	}
	if p.Type == PointVisible {
		return true
	}
	return p.IsActive || progress.HasFound(p.ID)
}

func idSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
