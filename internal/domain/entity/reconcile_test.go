package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	c := Colony{X: 1, Y: 1, Radius: 2}

	tests := []struct {
		name    string
		auto    int
		added   []Colony
		removed []Colony
		want    int
	}{
		{"empty", 0, nil, nil, 0},
		{"auto only", 7, nil, nil, 7},
		{"added", 3, []Colony{c, c}, nil, 5},
		{"removed", 3, nil, []Colony{c}, 2},
		{"both", 10, []Colony{c}, []Colony{c, c, c}, 8},
		{"more removed than detected", 1, nil, []Colony{c, c}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.auto, tt.added, tt.removed)
			require.Equal(t, tt.auto, got.AutoCount)
			require.Equal(t, len(tt.added), got.ManualAddedCount)
			require.Equal(t, len(tt.removed), got.ManualRemovedCount)
			require.Equal(t, tt.want, got.FinalCount)
		})
	}
}

func TestImageRecord_FinalCountFollowsLists(t *testing.T) {
	r := NewImageRecord("img", "sess", "plate.png")
	require.Equal(t, 0, r.FinalCount())

	r.LastCount = 4
	r.ManualAdded = []Colony{{X: 1, Y: 1}}
	require.Equal(t, 5, r.FinalCount())

	r.ManualRemoved = []Colony{{X: 2, Y: 2}, {X: 3, Y: 3}}
	require.Equal(t, 3, r.FinalCount())
}

func TestImageRecord_CloneIsDeep(t *testing.T) {
	p := DefaultParameters()
	r := NewImageRecord("img", "sess", "plate.png")
	r.AutoColonies = []Colony{{X: 1, Y: 1, Radius: 1}}
	r.LastParameters = &p

	cp := r.Clone()
	cp.AutoColonies[0].X = 9
	cp.LastParameters.GlobalThresh = 1

	require.Equal(t, 1.0, r.AutoColonies[0].X)
	require.Equal(t, 127, r.LastParameters.GlobalThresh)
}
