package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
)

const pointColumns = `id, game_id, type, latitude, longitude, content_qr, content_hint, content_symbol,
	chain_id, chain_order, chain_next_id, is_active, created_at`

type pointRow struct {
	ID            string         `db:"id"`
	GameID        string         `db:"game_id"`
	Type          string         `db:"type"`
	Latitude      float64        `db:"latitude"`
	Longitude     float64        `db:"longitude"`
	ContentQR     sql.NullString `db:"content_qr"`
	ContentHint   sql.NullString `db:"content_hint"`
	ContentSymbol sql.NullString `db:"content_symbol"`
	ChainID       sql.NullString `db:"chain_id"`
	ChainOrder    sql.NullInt64  `db:"chain_order"`
	ChainNextID   sql.NullString `db:"chain_next_id"`
	IsActive      bool           `db:"is_active"`
	CreatedAt     int64          `db:"created_at"`
}

func (r pointRow) point() geoquest.ControlPoint {
	p := geoquest.ControlPoint{
		ID:       r.ID,
		GameID:   r.GameID,
		Type:     geoquest.PointType(r.Type),
		Position: geo.Point{Lat: r.Latitude, Lon: r.Longitude},
		Content: geoquest.Content{
			QR:     r.ContentQR.String,
			Hint:   r.ContentHint.String,
			Symbol: r.ContentSymbol.String,
		},
		IsActive:  r.IsActive,
		CreatedAt: fromMillis(r.CreatedAt),
	}
	if r.ChainID.Valid {
		p.Chain = &geoquest.Chain{
			ID:          r.ChainID.String,
			Order:       int(r.ChainOrder.Int64),
			NextPointID: r.ChainNextID.String,
		}
	}
	return p
}

func chainArgs(c *geoquest.Chain) []any {
	if c == nil {
		return []any{nil, nil, nil}
	}
	return []any{c.ID, c.Order, nullString(c.NextPointID)}
}

func (s *SQLiteStore) CreatePoint(ctx context.Context, p geoquest.ControlPoint) (geoquest.ControlPoint, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	args := []any{p.ID, p.GameID, string(p.Type), p.Position.Lat, p.Position.Lon,
		nullString(p.Content.QR), nullString(p.Content.Hint), nullString(p.Content.Symbol)}
	args = append(args, chainArgs(p.Chain)...)
	args = append(args, boolInt(p.IsActive), millis(p.CreatedAt))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO control_points (`+pointColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return geoquest.ControlPoint{}, fmt.Errorf("insert point: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) Point(ctx context.Context, id string) (geoquest.ControlPoint, error) {
	var r pointRow
	err := s.db.GetContext(ctx, &r, `SELECT `+pointColumns+` FROM control_points WHERE id = ?`, id)
	if err != nil {
		return geoquest.ControlPoint{}, notFound(err)
	}
	return r.point(), nil
}

// Points lists a game's points in insertion order.
func (s *SQLiteStore) Points(ctx context.Context, gameID string) ([]geoquest.ControlPoint, error) {
	var rows []pointRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+pointColumns+` FROM control_points WHERE game_id = ? ORDER BY rowid
	`, gameID); err != nil {
		return nil, err
	}
	points := make([]geoquest.ControlPoint, len(rows))
	for i, r := range rows {
		points[i] = r.point()
	}
	return points, nil
}

func (s *SQLiteStore) CountPoints(ctx context.Context, gameID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM control_points WHERE game_id = ?`, gameID)
	return n, err
}

// CountPointsByGame returns point totals keyed by game id. Games without
// points are absent from the map.
func (s *SQLiteStore) CountPointsByGame(ctx context.Context, gameIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(gameIDs))
	if len(gameIDs) == 0 {
		return counts, nil
	}
	query, args, err := sqlx.In(`
		SELECT game_id, COUNT(*) AS n FROM control_points WHERE game_id IN (?) GROUP BY game_id
	`, gameIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		GameID string `db:"game_id"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.GameID] = r.N
	}
	return counts, nil
}

// UpdatePoint applies every set field of patch in one statement.
func (s *SQLiteStore) UpdatePoint(ctx context.Context, id string, patch geoquest.PointPatch) error {
	var sets []string
	var args []any
	if patch.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*patch.Type))
	}
	if patch.Position != nil {
		sets = append(sets, "latitude = ?", "longitude = ?")
		args = append(args, patch.Position.Lat, patch.Position.Lon)
	}
	if patch.Content != nil {
		sets = append(sets, "content_qr = ?", "content_hint = ?", "content_symbol = ?")
		args = append(args, nullString(patch.Content.QR), nullString(patch.Content.Hint), nullString(patch.Content.Symbol))
	}
	if patch.Chain != nil {
		sets = append(sets, "chain_id = ?", "chain_order = ?", "chain_next_id = ?")
		args = append(args, chainArgs(patch.Chain)...)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolInt(*patch.IsActive))
	}
	if len(sets) == 0 {
		_, err := s.Point(ctx, id)
		return err
	}
	args = append(args, id)
	return mustAffect(s.db.ExecContext(ctx, `UPDATE control_points SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...))
}

func (s *SQLiteStore) SetPointActive(ctx context.Context, id string, active bool) error {
	return mustAffect(s.db.ExecContext(ctx, `UPDATE control_points SET is_active = ? WHERE id = ?`, boolInt(active), id))
}

func (s *SQLiteStore) SetChainStart(ctx context.Context, gameID, pointID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		err := tx.GetContext(ctx, &n, `
			SELECT COUNT(*) FROM control_points WHERE id = ? AND game_id = ? AND type = 'sequential'
		`, pointID, gameID)
		if err != nil {
			return err
		}
		if n == 0 {
			return geoquest.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE control_points SET is_active = CASE WHEN id = ? THEN 1 ELSE 0 END
			WHERE game_id = ? AND type = 'sequential'
		`, pointID, gameID)
		return err
	})
}

// DeletePoint removes id from every found set of its game, bumping each
// touched row's version so in-flight compare-and-swaps retry, then deletes
// the point.
func (s *SQLiteStore) DeletePoint(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var gameID string
		if err := tx.GetContext(ctx, &gameID, `SELECT game_id FROM control_points WHERE id = ?`, id); err != nil {
			return notFound(err)
		}

		var rows []struct {
			ID          string `db:"id"`
			FoundPoints string `db:"found_points"`
		}
		err := tx.SelectContext(ctx, &rows, `
			SELECT id, found_points FROM player_progress
			WHERE game_id = ? AND EXISTS (SELECT 1 FROM json_each(found_points) WHERE value = ?)
		`, gameID, id)
		if err != nil {
			return fmt.Errorf("find progress: %w", err)
		}
		for _, r := range rows {
			found, err := decodeFound(r.FoundPoints)
			if err != nil {
				return err
			}
			kept := found[:0]
			for _, f := range found {
				if f != id {
					kept = append(kept, f)
				}
			}
			raw, err := json.Marshal(kept)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE player_progress SET found_points = ?, version = version + 1 WHERE id = ?
			`, string(raw), r.ID); err != nil {
				return fmt.Errorf("prune progress: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM control_points WHERE id = ?`, id)
		return err
	})
}
