package points

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/geoquest/internal/admin"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/store"
	"github.com/playperu/geoquest/internal/store/storetest"
)

const testKey = "admin-key"

var origin = geo.Point{Lat: -12.0464, Lon: -77.0428}

func setup(t *testing.T) (*Service, *store.SQLiteStore, geoquest.Game) {
	t.Helper()
	st := storetest.New(t)
	g, err := st.CreateGame(context.Background(), geoquest.Game{JudgeID: "judge", Name: "Plaza", MinPoints: 3})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, st, admin.NewGate(testKey, ""), logger, 50), st, g
}

func TestCreateDefaultsActivation(t *testing.T) {
	ctx := context.Background()
	svc, _, g := setup(t)

	v, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointVisible, Position: origin})
	require.NoError(t, err)
	assert.True(t, v.IsActive)

	s, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointSequential, Position: origin})
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	n, err := svc.Count(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _, g := setup(t)

	tests := []struct {
		name   string
		gameID string
		in     NewPoint
		want   error
	}{
		{"unknown type", g.ID, NewPoint{Type: "hidden", Position: origin}, geoquest.ErrInvalid},
		{"NaN latitude", g.ID, NewPoint{Type: geoquest.PointVisible, Position: geo.Point{Lat: math.NaN()}}, geoquest.ErrInvalid},
		{"infinite longitude", g.ID, NewPoint{Type: geoquest.PointVisible, Position: geo.Point{Lon: math.Inf(1)}}, geoquest.ErrInvalid},
		{"missing game", "nope", NewPoint{Type: geoquest.PointVisible, Position: origin}, geoquest.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.gameID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := svc.Count(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is stored on rejection")
}

func TestCreateNearClampsToPlacementRadius(t *testing.T) {
	svc, _, g := setup(t)
	far := geo.Destination(origin, math.Pi/4, 400)

	p, err := svc.CreateNear(context.Background(), g.ID, NewPoint{Type: geoquest.PointVisible, Position: far}, origin)
	require.NoError(t, err)
	assert.InDelta(t, 50, geo.Distance(origin, p.Position), 0.01)
	assert.InDelta(t, geo.Bearing(origin, far), geo.Bearing(origin, p.Position), 1e-6)

	near := geo.Destination(origin, 1, 10)
	p, err = svc.CreateNear(context.Background(), g.ID, NewPoint{Type: geoquest.PointVisible, Position: near}, origin)
	require.NoError(t, err)
	assert.Equal(t, near, p.Position)
}

func TestAdminCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, g := setup(t)

	_, err := svc.AdminCreate(ctx, "wrong", g.ID, NewPoint{Type: geoquest.PointVisible, Position: origin}, nil)
	assert.ErrorIs(t, err, geoquest.ErrForbidden)

	off := false
	p, err := svc.AdminCreate(ctx, testKey, g.ID, NewPoint{Type: geoquest.PointVisible, Position: origin}, &off)
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	points, err := svc.ListDetailed(ctx, testKey, g.ID)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	_, err = svc.ListDetailed(ctx, "", g.ID)
	assert.ErrorIs(t, err, geoquest.ErrForbidden)
}

func TestAdminUpdate(t *testing.T) {
	ctx := context.Background()
	svc, st, g := setup(t)
	p, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointVisible, Position: origin})
	require.NoError(t, err)

	moved := geo.Point{Lat: 1, Lon: 2}
	assert.ErrorIs(t, svc.AdminUpdate(ctx, "wrong", p.ID, geoquest.PointPatch{Position: &moved}), geoquest.ErrForbidden)

	bad := geo.Point{Lat: math.NaN()}
	assert.ErrorIs(t, svc.AdminUpdate(ctx, testKey, p.ID, geoquest.PointPatch{Position: &bad}), geoquest.ErrInvalid)

	require.NoError(t, svc.AdminUpdate(ctx, testKey, p.ID, geoquest.PointPatch{Position: &moved}))
	got, err := st.Point(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, moved, got.Position)

	assert.NoError(t, svc.AdminUpdate(ctx, testKey, "gone", geoquest.PointPatch{Position: &moved}), "missing point is a no-op")
}

func TestUpdateChain(t *testing.T) {
	ctx := context.Background()
	svc, st, g := setup(t)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }

	a, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointSequential, Position: origin})
	require.NoError(t, err)
	b, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointSequential, Position: origin})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateChain(ctx, a.ID, b.ID))
	got, err := st.Point(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Chain)
	assert.Equal(t, geoquest.Chain{ID: "chain-1700000000123", Order: 0, NextPointID: b.ID}, *got.Chain)

	require.NoError(t, st.UpdatePoint(ctx, a.ID, geoquest.PointPatch{Chain: &geoquest.Chain{ID: "keep", Order: 4, NextPointID: b.ID}}))
	require.NoError(t, svc.UpdateChain(ctx, a.ID, ""))
	got, err = st.Point(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, geoquest.Chain{ID: "keep", Order: 4}, *got.Chain, "clearing keeps id and order")

	assert.NoError(t, svc.UpdateChain(ctx, "gone", b.ID))
	assert.ErrorIs(t, svc.UpdateChain(ctx, a.ID, a.ID), geoquest.ErrInvalid)
}

func TestSetStartSequential(t *testing.T) {
	ctx := context.Background()
	svc, st, g := setup(t)

	var seq []geoquest.ControlPoint
	for range 3 {
		p, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointSequential, Position: origin})
		require.NoError(t, err)
		seq = append(seq, p)
	}
	require.NoError(t, svc.Activate(ctx, seq[0].ID))

	require.NoError(t, svc.SetStartSequential(ctx, g.ID, seq[2].ID))

	points, err := st.Points(ctx, g.ID)
	require.NoError(t, err)
	for _, p := range points {
		assert.Equal(t, p.ID == seq[2].ID, p.IsActive, p.ID)
	}

	assert.NoError(t, svc.SetStartSequential(ctx, g.ID, "gone"))
	assert.NoError(t, svc.Activate(ctx, "gone"))
}

func TestDeleteIsNoOpWhenMissing(t *testing.T) {
	ctx := context.Background()
	svc, _, g := setup(t)
	p, err := svc.Create(ctx, g.ID, NewPoint{Type: geoquest.PointVisible, Position: origin})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AdminDelete(ctx, "wrong", p.ID), geoquest.ErrForbidden)
	require.NoError(t, svc.AdminDelete(ctx, testKey, p.ID))
	assert.NoError(t, svc.Delete(ctx, p.ID))
	assert.NoError(t, svc.UpdateContent(ctx, p.ID, geoquest.Content{Hint: "x"}))
}
