package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
)

const progressColumns = `id, game_id, player_id, found_points, cur_lat, cur_lon, is_completed,
	started_at, completed_at, version`

type progressRow struct {
	ID          string          `db:"id"`
	GameID      string          `db:"game_id"`
	PlayerID    string          `db:"player_id"`
	FoundPoints string          `db:"found_points"`
	CurLat      sql.NullFloat64 `db:"cur_lat"`
	CurLon      sql.NullFloat64 `db:"cur_lon"`
	IsCompleted bool            `db:"is_completed"`
	StartedAt   int64           `db:"started_at"`
	CompletedAt sql.NullInt64   `db:"completed_at"`
	Version     int64           `db:"version"`
}

func (r progressRow) progress() (geoquest.PlayerProgress, error) {
	found, err := decodeFound(r.FoundPoints)
	if err != nil {
		return geoquest.PlayerProgress{}, err
	}
	p := geoquest.PlayerProgress{
		ID:          r.ID,
		GameID:      r.GameID,
		PlayerID:    r.PlayerID,
		FoundPoints: found,
		IsCompleted: r.IsCompleted,
		StartedAt:   fromMillis(r.StartedAt),
		Version:     r.Version,
	}
	if r.CurLat.Valid && r.CurLon.Valid {
		p.CurrentPosition = &geo.Point{Lat: r.CurLat.Float64, Lon: r.CurLon.Float64}
	}
	if r.CompletedAt.Valid {
		t := fromMillis(r.CompletedAt.Int64)
		p.CompletedAt = &t
	}
	return p, nil
}

func progressFrom(rows []progressRow) ([]geoquest.PlayerProgress, error) {
	out := make([]geoquest.PlayerProgress, 0, len(rows))
	for _, r := range rows {
		p, err := r.progress()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeFound(raw string) ([]string, error) {
	found := []string{}
	if raw == "" {
		return found, nil
	}
	if err := json.Unmarshal([]byte(raw), &found); err != nil {
		return nil, fmt.Errorf("decode found points: %w", err)
	}
	if found == nil {
		found = []string{}
	}
	return found, nil
}

func (s *SQLiteStore) UpsertProgress(ctx context.Context, gameID, playerID string, pos geo.Point, now time.Time) (geoquest.PlayerProgress, bool, error) {
	id := newID()
	var r progressRow
	err := s.db.GetContext(ctx, &r, `
		INSERT INTO player_progress (id, game_id, player_id, found_points, cur_lat, cur_lon, is_completed, started_at, version)
		VALUES (?, ?, ?, '[]', ?, ?, 0, ?, 0)
		ON CONFLICT (game_id, player_id) DO UPDATE SET cur_lat = excluded.cur_lat, cur_lon = excluded.cur_lon
		RETURNING `+progressColumns, id, gameID, playerID, pos.Lat, pos.Lon, millis(now))
	if err != nil {
		return geoquest.PlayerProgress{}, false, fmt.Errorf("upsert progress: %w", err)
	}
	p, err := r.progress()
	return p, r.ID == id, err
}

func (s *SQLiteStore) Progress(ctx context.Context, gameID, playerID string) (geoquest.PlayerProgress, error) {
	var r progressRow
	err := s.db.GetContext(ctx, &r, `
		SELECT `+progressColumns+` FROM player_progress WHERE game_id = ? AND player_id = ?
	`, gameID, playerID)
	if err != nil {
		return geoquest.PlayerProgress{}, notFound(err)
	}
	return r.progress()
}

func (s *SQLiteStore) ProgressByPlayer(ctx context.Context, playerID string) ([]geoquest.PlayerProgress, error) {
	var rows []progressRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+progressColumns+` FROM player_progress WHERE player_id = ? ORDER BY started_at, rowid
	`, playerID); err != nil {
		return nil, err
	}
	return progressFrom(rows)
}

func (s *SQLiteStore) ProgressByGame(ctx context.Context, gameID string) ([]geoquest.PlayerProgress, error) {
	var rows []progressRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+progressColumns+` FROM player_progress WHERE game_id = ? ORDER BY started_at, rowid
	`, gameID); err != nil {
		return nil, err
	}
	return progressFrom(rows)
}

func (s *SQLiteStore) IncompleteProgress(ctx context.Context) ([]geoquest.PlayerProgress, error) {
	var rows []progressRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+progressColumns+` FROM player_progress WHERE is_completed = 0 ORDER BY rowid
	`); err != nil {
		return nil, err
	}
	return progressFrom(rows)
}

func (s *SQLiteStore) SetPosition(ctx context.Context, gameID, playerID string, pos geo.Point) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE player_progress SET cur_lat = ?, cur_lon = ? WHERE game_id = ? AND player_id = ?
	`, pos.Lat, pos.Lon, gameID, playerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) SaveFound(ctx context.Context, p geoquest.PlayerProgress) (bool, error) {
	raw, err := json.Marshal(geoquest.Dedupe(p.FoundPoints))
	if err != nil {
		return false, err
	}
	var completedAt any
	if p.IsCompleted && p.CompletedAt != nil {
		completedAt = millis(*p.CompletedAt)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE player_progress
		SET found_points = ?,
		    is_completed = MAX(is_completed, ?),
		    completed_at = COALESCE(completed_at, ?),
		    version = version + 1
		WHERE id = ? AND version = ?
	`, string(raw), boolInt(p.IsCompleted), completedAt, p.ID, p.Version)
	if err != nil {
		return false, fmt.Errorf("save found points: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE player_progress
		SET is_completed = 1, completed_at = COALESCE(completed_at, ?), version = version + 1
		WHERE id = ? AND is_completed = 0
	`, millis(at), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
