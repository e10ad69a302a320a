package geoquest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/geoquest/internal/geo"
)

func seq(id, next string, active bool) ControlPoint {
	p := ControlPoint{ID: id, Type: PointSequential, IsActive: active}
	if next != "" {
		p.Chain = &Chain{ID: "c", NextPointID: next}
	}
	return p
}

func TestChainStart(t *testing.T) {
	tests := []struct {
		name   string
		points []ControlPoint
		want   string
		ok     bool
	}{
		{
			name:   "head of X->Y->Z listed out of order",
			points: []ControlPoint{seq("Y", "Z", false), seq("Z", "", false), seq("X", "Y", false)},
			want:   "X",
			ok:     true,
		},
		{
			name:   "cycle falls back to first sequential",
			points: []ControlPoint{seq("A", "B", false), seq("B", "A", false)},
			want:   "A",
			ok:     true,
		},
		{
			name:   "already has an active sequential point",
			points: []ControlPoint{seq("A", "B", false), seq("B", "", true)},
			ok:     false,
		},
		{
			name:   "visible points only",
			points: []ControlPoint{{ID: "V", Type: PointVisible, IsActive: true}},
			ok:     false,
		},
		{
			name: "visible point references are ignored",
			points: []ControlPoint{
				{ID: "V", Type: PointVisible, Chain: &Chain{NextPointID: "A"}},
				seq("A", "", false),
			},
			want: "A",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChainStart(tt.points)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.ID)
			}
		})
	}
}

func TestFirstInRangeUsesListingOrder(t *testing.T) {
	origin := geo.Point{Lat: 55.75, Lon: 37.61}
	p1 := ControlPoint{ID: "p1", IsActive: true, Position: geo.Destination(origin, 0, 4)}
	p2 := ControlPoint{ID: "p2", IsActive: true, Position: geo.Destination(origin, 3, 1)}
	inactive := ControlPoint{ID: "off", IsActive: false, Position: origin}

	got, ok := FirstInRange([]ControlPoint{inactive, p1, p2}, nil, origin, DefaultProximityRadius)
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID, "first listed wins even though p2 is closer")

	got, ok = FirstInRange([]ControlPoint{inactive, p1, p2}, []string{"p1"}, origin, DefaultProximityRadius)
	require.True(t, ok)
	assert.Equal(t, "p2", got.ID)

	_, ok = FirstInRange([]ControlPoint{inactive, p1, p2}, []string{"p1", "p2"}, origin, DefaultProximityRadius)
	assert.False(t, ok)
}

func TestSanitizeFound(t *testing.T) {
	points := []ControlPoint{{ID: "A"}, {ID: "C"}}
	found := []string{"A", "B", "A", "C"}

	assert.Equal(t, []string{"A", "C"}, SanitizeFound(found, points))
	assert.Equal(t, []string{"A", "B", "A", "C"}, found, "input must not be mutated")
	assert.Empty(t, SanitizeFound(found, nil))
}

func TestAllFound(t *testing.T) {
	points := []ControlPoint{{ID: "A"}, {ID: "B"}}

	assert.False(t, AllFound(nil, nil), "empty games never complete")
	assert.False(t, AllFound([]string{"A", "A"}, points), "duplicates do not count twice")
	assert.True(t, AllFound([]string{"B", "A", "gone"}, points))
}

func TestCompletedByCount(t *testing.T) {
	assert.True(t, CompletedByCount(true, 0, 0), "stored flag is sticky")
	assert.False(t, CompletedByCount(false, 0, 0))
	assert.True(t, CompletedByCount(false, 3, 3))
	assert.False(t, CompletedByCount(false, 2, 3))
}

func TestVisibleTo(t *testing.T) {
	visible := ControlPoint{ID: "v", Type: PointVisible}
	locked := seq("s1", "", false)
	unlocked := seq("s2", "", true)
	progress := PlayerProgress{FoundPoints: []string{"s1"}}

	assert.False(t, VisibleTo(visible, progress, false), "nothing shows while the game is inactive")
	assert.True(t, VisibleTo(visible, PlayerProgress{}, true))
	assert.False(t, VisibleTo(locked, PlayerProgress{}, true))
	assert.True(t, VisibleTo(locked, progress, true), "found points stay visible")
	assert.True(t, VisibleTo(unlocked, PlayerProgress{}, true))
}

func TestValidatePosition(t *testing.T) {
	assert.NoError(t, ValidatePosition(geo.Point{Lat: 1, Lon: 2}))
	assert.ErrorIs(t, ValidatePosition(geo.Point{Lat: 91}), ErrInvalid)
}
