package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playperu/geoquest/internal/geoquest"
)

const gameColumns = `id, judge_id, name, title, description, area_country, area_region, area_city,
	is_active, min_points, review_status, published, created_at`

type gameRow struct {
	ID           string         `db:"id"`
	JudgeID      string         `db:"judge_id"`
	Name         string         `db:"name"`
	Title        sql.NullString `db:"title"`
	Description  sql.NullString `db:"description"`
	AreaCountry  sql.NullString `db:"area_country"`
	AreaRegion   sql.NullString `db:"area_region"`
	AreaCity     sql.NullString `db:"area_city"`
	IsActive     bool           `db:"is_active"`
	MinPoints    int            `db:"min_points"`
	ReviewStatus sql.NullString `db:"review_status"`
	Published    bool           `db:"published"`
	CreatedAt    int64          `db:"created_at"`
}

func (r gameRow) game() geoquest.Game {
	status := geoquest.ReviewStatus(r.ReviewStatus.String)
	if !status.Valid() {
		status = geoquest.ReviewDraft
	}
	return geoquest.Game{
		ID:          r.ID,
		JudgeID:     r.JudgeID,
		Name:        r.Name,
		Title:       r.Title.String,
		Description: r.Description.String,
		Area: geoquest.Area{
			Country: r.AreaCountry.String,
			Region:  r.AreaRegion.String,
			City:    r.AreaCity.String,
		},
		IsActive:     r.IsActive,
		MinPoints:    r.MinPoints,
		ReviewStatus: status,
		Published:    r.Published,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

func gamesFrom(rows []gameRow) []geoquest.Game {
	games := make([]geoquest.Game, len(rows))
	for i, r := range rows {
		games[i] = r.game()
	}
	return games
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g geoquest.Game) (geoquest.Game, error) {
	if g.ID == "" {
		g.ID = newID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.ReviewStatus == "" {
		g.ReviewStatus = geoquest.ReviewDraft
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (`+gameColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.JudgeID, g.Name, nullString(g.Title), nullString(g.Description),
		nullString(g.Area.Country), nullString(g.Area.Region), nullString(g.Area.City),
		boolInt(g.IsActive), g.MinPoints, string(g.ReviewStatus), boolInt(g.Published), millis(g.CreatedAt))
	if err != nil {
		return geoquest.Game{}, fmt.Errorf("insert game: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) Game(ctx context.Context, id string) (geoquest.Game, error) {
	var r gameRow
	err := s.db.GetContext(ctx, &r, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	if err != nil {
		return geoquest.Game{}, notFound(err)
	}
	return r.game(), nil
}

func (s *SQLiteStore) GamesByJudge(ctx context.Context, judgeID string) ([]geoquest.Game, error) {
	var rows []gameRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+gameColumns+` FROM games WHERE judge_id = ? ORDER BY created_at, rowid
	`, judgeID)
	return gamesFrom(rows), err
}

func (s *SQLiteStore) GamesByReviewStatus(ctx context.Context, status geoquest.ReviewStatus) ([]geoquest.Game, error) {
	var rows []gameRow
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT `+gameColumns+` FROM games ORDER BY created_at, rowid`)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT `+gameColumns+` FROM games
			WHERE COALESCE(review_status, 'draft') = ?
			ORDER BY created_at, rowid
		`, string(status))
	}
	return gamesFrom(rows), err
}

func (s *SQLiteStore) PublishedGames(ctx context.Context) ([]geoquest.Game, error) {
	var rows []gameRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+gameColumns+` FROM games
		WHERE published = 1 AND review_status = 'approved'
		ORDER BY created_at, rowid
	`)
	return gamesFrom(rows), err
}

func (s *SQLiteStore) FirstActiveGame(ctx context.Context) (geoquest.Game, error) {
	var r gameRow
	err := s.db.GetContext(ctx, &r, `
		SELECT `+gameColumns+` FROM games WHERE is_active = 1 ORDER BY created_at, rowid LIMIT 1
	`)
	if err != nil {
		return geoquest.Game{}, notFound(err)
	}
	return r.game(), nil
}

func (s *SQLiteStore) SetGameActive(ctx context.Context, id string, active bool) error {
	return mustAffect(s.db.ExecContext(ctx, `UPDATE games SET is_active = ? WHERE id = ?`, boolInt(active), id))
}

func (s *SQLiteStore) SetReviewStatus(ctx context.Context, id string, status geoquest.ReviewStatus) error {
	return mustAffect(s.db.ExecContext(ctx, `UPDATE games SET review_status = ? WHERE id = ?`, string(status), id))
}

func (s *SQLiteStore) SetPublished(ctx context.Context, id string, published bool) error {
	return mustAffect(s.db.ExecContext(ctx, `UPDATE games SET published = ? WHERE id = ?`, boolInt(published), id))
}

// UpdateGameMeta applies every set field of meta in one statement.
func (s *SQLiteStore) UpdateGameMeta(ctx context.Context, id string, meta geoquest.GameMeta) error {
	var sets []string
	var args []any
	if meta.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *meta.Name)
	}
	if meta.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, nullString(*meta.Title))
	}
	if meta.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*meta.Description))
	}
	if meta.Area != nil {
		sets = append(sets, "area_country = ?", "area_region = ?", "area_city = ?")
		args = append(args, nullString(meta.Area.Country), nullString(meta.Area.Region), nullString(meta.Area.City))
	}
	if meta.MinPoints != nil {
		sets = append(sets, "min_points = ?")
		args = append(args, *meta.MinPoints)
	}
	if len(sets) == 0 {
		_, err := s.Game(ctx, id)
		return err
	}
	args = append(args, id)
	return mustAffect(s.db.ExecContext(ctx, `UPDATE games SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...))
}

// DeleteGame removes the game's points and then the game. Progress rows are
// left behind; readers filter them against the remaining points.
func (s *SQLiteStore) DeleteGame(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM control_points WHERE game_id = ?`, id); err != nil {
			return fmt.Errorf("delete points: %w", err)
		}
		return mustAffect(tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id))
	})
}
