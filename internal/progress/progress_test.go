package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/games"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/points"
	"github.com/playperu/geoquest/internal/store"
	"github.com/playperu/geoquest/internal/store/storetest"
)

const testKey = "admin-key"

var base = geo.Point{Lat: -13.5319, Lon: -71.9675}

type fixture struct {
	st     *store.SQLiteStore
	points *points.Service
	games  *games.Service
	engine *Engine
	events *recorder
}

type recorder struct {
	mu     sync.Mutex
	events []geoquest.Event
}

func (r *recorder) Publish(_ context.Context, e geoquest.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := storetest.New(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := admin.NewGate(testKey, "")
	rec := &recorder{}
	pts := points.New(st, st, gate, logger, 50)
	return &fixture{
		st:     st,
		points: pts,
		games:  games.New(st, st, gate, rec, logger, 3),
		engine: New(Options{
			Progress:  st,
			Points:    st,
			Games:     st,
			Unlocker:  pts,
			Gate:      gate,
			Publisher: rec,
			Logger:    logger,
		}),
		events: rec,
	}
}

func (f *fixture) game(t *testing.T) geoquest.Game {
	t.Helper()
	g, err := f.games.Create(context.Background(), "judge", "hunt")
	require.NoError(t, err)
	return g
}

func (f *fixture) point(t *testing.T, gameID string, typ geoquest.PointType, at geo.Point) geoquest.ControlPoint {
	t.Helper()
	p, err := f.points.Create(context.Background(), gameID, points.NewPoint{Type: typ, Position: at})
	require.NoError(t, err)
	return p
}

func (f *fixture) chain(t *testing.T, from, to geoquest.ControlPoint) {
	t.Helper()
	require.NoError(t, f.points.UpdateChain(context.Background(), from.ID, to.ID))
}

func (f *fixture) isActive(t *testing.T, pointID string) bool {
	t.Helper()
	p, err := f.st.Point(context.Background(), pointID)
	require.NoError(t, err)
	return p.IsActive
}

func TestScenarioVisiblePoints(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	p1 := f.point(t, g.ID, geoquest.PointVisible, base)
	f.point(t, g.ID, geoquest.PointVisible, geo.Destination(base, 0, 100))
	f.point(t, g.ID, geoquest.PointVisible, geo.Destination(base, 1.5, 100))
	require.NoError(t, f.games.Activate(ctx, g.ID))

	_, err := f.engine.Start(ctx, g.ID, "p1", base)
	require.NoError(t, err)

	ev, err := f.engine.Evaluate(ctx, g.ID, "p1", base)
	require.NoError(t, err)
	require.NotNil(t, ev.Found)
	assert.Equal(t, p1.ID, ev.Found.ID)
	assert.Equal(t, []string{p1.ID}, ev.Progress.FoundPoints)
	assert.Equal(t, 1, ev.FoundCount)
	assert.False(t, ev.Progress.IsCompleted)
}

func TestProximityBoundaryIsInclusive(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	pt := f.point(t, g.ID, geoquest.PointVisible, base)
	require.NoError(t, f.games.Activate(ctx, g.ID))
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	outside := geo.Destination(base, 0, 5.1)
	ev, err := f.engine.Evaluate(ctx, g.ID, "p", outside)
	require.NoError(t, err)
	assert.Nil(t, ev.Found, "5.1 m is out of range")

	// Sit on the boundary of the default radius as computed by the distance function.
	onEdge := geo.Destination(base, 0, geoquest.DefaultProximityRadius)
	d := geo.Distance(base, onEdge)
	require.InDelta(t, geoquest.DefaultProximityRadius, d, 1e-6)
	require.LessOrEqual(t, d, geoquest.DefaultProximityRadius)
	require.Equal(t, geoquest.DefaultProximityRadius, f.engine.radius)

	ev, err = f.engine.Evaluate(ctx, g.ID, "p", onEdge)
	require.NoError(t, err)
	require.NotNil(t, ev.Found)
	assert.Equal(t, pt.ID, ev.Found.ID)
}

func TestSingleMatchPerEvaluation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	first := f.point(t, g.ID, geoquest.PointVisible, geo.Destination(base, 0, 3))
	second := f.point(t, g.ID, geoquest.PointVisible, geo.Destination(base, 3, 1))
	require.NoError(t, f.games.Activate(ctx, g.ID))
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	ev, err := f.engine.Evaluate(ctx, g.ID, "p", base)
	require.NoError(t, err)
	require.NotNil(t, ev.Found)
	assert.Equal(t, first.ID, ev.Found.ID, "listing order wins over distance")
	assert.Equal(t, []string{first.ID}, ev.Progress.FoundPoints)

	ev, err = f.engine.Evaluate(ctx, g.ID, "p", base)
	require.NoError(t, err)
	require.NotNil(t, ev.Found)
	assert.Equal(t, second.ID, ev.Found.ID)
	assert.True(t, ev.Progress.IsCompleted)

	ev, err = f.engine.Evaluate(ctx, g.ID, "p", base)
	require.NoError(t, err)
	assert.Nil(t, ev.Found)
}

func TestEvaluateIgnoresInactiveGameAndUnstartedPlayer(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	f.point(t, g.ID, geoquest.PointVisible, base)

	ev, err := f.engine.Evaluate(ctx, g.ID, "nobody", base)
	require.NoError(t, err)
	assert.Nil(t, ev.Found)

	_, err = f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)
	ev, err = f.engine.Evaluate(ctx, g.ID, "p", base)
	require.NoError(t, err)
	assert.Nil(t, ev.Found, "game is not active")
}

func TestMarkFoundIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	x := f.point(t, g.ID, geoquest.PointSequential, base)
	y := f.point(t, g.ID, geoquest.PointSequential, base)
	f.point(t, g.ID, geoquest.PointVisible, base)
	f.chain(t, x, y)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	n, err := f.engine.MarkFound(ctx, g.ID, "p", x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.isActive(t, y.ID))

	n, err = f.engine.MarkFound(ctx, g.ID, "p", x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.isActive(t, y.ID), "second call must not toggle the unlock")

	got, err := f.st.Progress(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{x.ID}, got.FoundPoints)
	assert.Equal(t, []string{geoquest.EventPointFound, geoquest.EventPointUnlocked}, f.events.types())
}

// flakyUnlocker fails its first call and delegates afterwards.
type flakyUnlocker struct {
	next   Unlocker
	failed bool
}

func (u *flakyUnlocker) Activate(ctx context.Context, pointID string) error {
	if !u.failed {
		u.failed = true
		return errors.New("db busy")
	}
	return u.next.Activate(ctx, pointID)
}

func TestMarkFoundRetriesFailedUnlock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	x := f.point(t, g.ID, geoquest.PointSequential, base)
	y := f.point(t, g.ID, geoquest.PointSequential, geo.Destination(base, 0, 200))
	f.chain(t, x, y)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)
	f.engine.unlocker = &flakyUnlocker{next: f.points}

	_, err = f.engine.MarkFound(ctx, g.ID, "p", x.ID)
	require.Error(t, err)
	require.False(t, f.isActive(t, y.ID))

	n, err := f.engine.MarkFound(ctx, g.ID, "p", x.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.isActive(t, y.ID), "a repeated find completes the pending unlock")
	assert.Equal(t, []string{geoquest.EventPointFound, geoquest.EventPointUnlocked}, f.events.types())
}

func TestMarkFoundIgnoresForeignPoints(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	other := f.game(t)
	foreign := f.point(t, other.ID, geoquest.PointVisible, base)
	own := f.point(t, g.ID, geoquest.PointVisible, base)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	n, err := f.engine.MarkFound(ctx, g.ID, "p", foreign.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.engine.MarkFound(ctx, g.ID, "p", "gone")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.engine.MarkFound(ctx, g.ID, "not-started", own.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Empty(t, got.FoundPoints)
}

func TestCompletionIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	a := f.point(t, g.ID, geoquest.PointVisible, base)
	b := f.point(t, g.ID, geoquest.PointVisible, base)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	_, err = f.engine.MarkFound(ctx, g.ID, "p", a.ID)
	require.NoError(t, err)
	_, err = f.engine.MarkFound(ctx, g.ID, "p", b.ID)
	require.NoError(t, err)

	got, err := f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	require.True(t, got.IsCompleted)
	require.NotNil(t, got.CompletedAt)

	// Shrinking the game and restarting must not undo completion.
	require.NoError(t, f.points.Delete(ctx, b.ID))
	f.point(t, g.ID, geoquest.PointVisible, base)
	_, err = f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)
	_, err = f.engine.Reconcile(ctx)
	require.NoError(t, err)

	got, err = f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, []string{a.ID}, got.FoundPoints)
}

func TestDeletedPointsAreFilteredOnRead(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	a := f.point(t, g.ID, geoquest.PointVisible, base)
	b := f.point(t, g.ID, geoquest.PointVisible, base)
	c := f.point(t, g.ID, geoquest.PointVisible, base)

	// A row whose stored history still names b, as legacy rows might.
	p, _, err := f.st.UpsertProgress(ctx, g.ID, "p", base, f.engine.now())
	require.NoError(t, err)
	p.FoundPoints = []string{a.ID, "deleted-long-ago", c.ID}
	ok, err := f.st.SaveFound(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, got.FoundPoints)
	assert.False(t, got.IsCompleted)

	require.NoError(t, f.points.Delete(ctx, b.ID))

	got, err = f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, c.ID}, got.FoundPoints)
	assert.True(t, got.IsCompleted, "completion is recomputed against the surviving points")

	stored, err := f.st.Progress(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.False(t, stored.IsCompleted, "reads do not write")
	assert.Contains(t, stored.FoundPoints, "deleted-long-ago")

	n, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, err = f.st.Progress(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted)
}

func TestChainUnlockIsSharedAcrossPlayers(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	x := f.point(t, g.ID, geoquest.PointSequential, base)
	y := f.point(t, g.ID, geoquest.PointSequential, geo.Destination(base, 0, 200))
	f.chain(t, x, y)
	require.NoError(t, f.games.Activate(ctx, g.ID))
	require.True(t, f.isActive(t, x.ID))

	for _, player := range []string{"p1", "p2"} {
		_, err := f.engine.Start(ctx, g.ID, player, base)
		require.NoError(t, err)
	}

	visible, err := f.engine.VisiblePoints(ctx, g.ID, "p2")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, x.ID, visible[0].ID)

	ev, err := f.engine.Evaluate(ctx, g.ID, "p1", base)
	require.NoError(t, err)
	require.NotNil(t, ev.Found)
	assert.True(t, f.isActive(t, y.ID))

	visible, err = f.engine.VisiblePoints(ctx, g.ID, "p2")
	require.NoError(t, err)
	assert.Len(t, visible, 2, "p2 sees y without having found x")
}

func TestVisiblePoints(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	v := f.point(t, g.ID, geoquest.PointVisible, base)
	s := f.point(t, g.ID, geoquest.PointSequential, base)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	visible, err := f.engine.VisiblePoints(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Empty(t, visible, "inactive games show nothing")

	require.NoError(t, f.games.Activate(ctx, g.ID))
	// Activation made s the chain start; take it back to check found points stay visible.
	off := false
	require.NoError(t, f.points.AdminUpdate(ctx, testKey, s.ID, geoquest.PointPatch{IsActive: &off}))

	visible, err = f.engine.VisiblePoints(ctx, g.ID, "p")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, v.ID, visible[0].ID)

	_, err = f.engine.MarkFound(ctx, g.ID, "p", s.ID)
	require.NoError(t, err)
	visible, err = f.engine.VisiblePoints(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	_, err = f.engine.VisiblePoints(ctx, "gone", "p")
	assert.ErrorIs(t, err, geoquest.ErrNotFound)
}

func TestConcurrentMarkFoundLosesNothing(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	var ids []string
	for range 4 {
		ids = append(ids, f.point(t, g.ID, geoquest.PointVisible, base).ID)
	}
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.MarkFound(ctx, g.ID, "p", id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.engine.Get(ctx, g.ID, "p")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got.FoundPoints)
	assert.True(t, got.IsCompleted)
}

func TestMarkFoundGivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	pt := f.point(t, g.ID, geoquest.PointVisible, base)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)

	f.engine.progress = losingStore{f.st}
	_, err = f.engine.MarkFound(ctx, g.ID, "p", pt.ID)
	assert.ErrorIs(t, err, geoquest.ErrConflict)
}

// losingStore loses every compare-and-swap.
type losingStore struct {
	*store.SQLiteStore
}

func (losingStore) SaveFound(context.Context, geoquest.PlayerProgress) (bool, error) {
	return false, nil
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	done := f.game(t)
	title := "Cusco Walk"
	require.NoError(t, f.games.UpdateMeta(ctx, done.ID, geoquest.GameMeta{Title: &title, Area: &geoquest.Area{City: "Cusco"}}))
	a := f.point(t, done.ID, geoquest.PointVisible, base)

	open := f.game(t)
	f.point(t, open.ID, geoquest.PointVisible, base)

	for _, g := range []geoquest.Game{done, open} {
		_, err := f.engine.Start(ctx, g.ID, "p", base)
		require.NoError(t, err)
	}
	_, err := f.engine.MarkFound(ctx, done.ID, "p", a.ID)
	require.NoError(t, err)
	_, err = f.engine.Start(ctx, "deleted-game", "p", base)
	require.NoError(t, err)

	s, err := f.engine.Summaries(ctx, "p")
	require.NoError(t, err)

	require.Len(t, s.Completed, 1)
	assert.Equal(t, "Cusco Walk", s.Completed[0].GameTitle)
	require.NotNil(t, s.Completed[0].GameArea)
	assert.Equal(t, "Cusco", s.Completed[0].GameArea.City)
	assert.Equal(t, 1, s.Completed[0].FoundCount)
	assert.Equal(t, 1, s.Completed[0].TotalPoints)

	require.Len(t, s.Active, 2)
	assert.Equal(t, "hunt", s.Active[0].GameTitle, "title falls back to the name")
	assert.Nil(t, s.Active[0].GameArea)
	assert.Equal(t, "Untitled", s.Active[1].GameTitle)
	assert.Zero(t, s.Active[1].TotalPoints)
	assert.False(t, s.Active[1].IsCompleted, "games without points never complete")
}

func TestLiveSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	g := f.game(t)
	f.point(t, g.ID, geoquest.PointVisible, base)
	_, err := f.engine.Start(ctx, g.ID, "p", base)
	require.NoError(t, err)
	moved := geo.Destination(base, 0, 30)
	require.NoError(t, f.engine.ReportPosition(ctx, g.ID, "p", moved))
	require.NoError(t, f.engine.ReportPosition(ctx, g.ID, "not-started", moved))

	_, err = f.engine.LiveSnapshot(ctx, "wrong", g.ID)
	assert.ErrorIs(t, err, geoquest.ErrForbidden)

	snap, err := f.engine.LiveSnapshot(ctx, testKey, g.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Points, 1)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, geoquest.PlayerPosition{PlayerID: "p", Position: moved}, snap.Players[0])
}

func TestStartValidates(t *testing.T) {
	f := setup(t)
	_, err := f.engine.Start(context.Background(), "", "p", base)
	assert.ErrorIs(t, err, geoquest.ErrInvalid)
	_, err = f.engine.Start(context.Background(), "g", "p", geo.Point{Lat: 100})
	assert.ErrorIs(t, err, geoquest.ErrInvalid)
}
