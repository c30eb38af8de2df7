package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/errors"
)

func newTestRegistry(t *testing.T, name string) (*Registry, *core.MockRuntime) {
	t.Helper()
	rt := core.NewMockRuntime()
	// A long cull interval keeps the background pass out of the way;
	// tests drive culling explicitly through CullAll.
	r := New(name, rt, WithCullInterval(time.Hour))
	t.Cleanup(func() { _ = r.Close() })
	return r, rt
}

func TestRegisterAndLookupBothKeys(t *testing.T) {
	r, _ := newTestRegistry(t, "lookup")
	tmpl := &core.MockTemplate{ID_: 1, Name_: "grunt"}

	require.NoError(t, r.Register(tmpl, 4))

	byName, ok := r.BinForName("grunt")
	require.True(t, ok)
	byID, ok := r.BinForID(1)
	require.True(t, ok)
	assert.Same(t, byName, byID)
}

func TestRegisterCollisionLeavesStateUntouched(t *testing.T) {
	r, _ := newTestRegistry(t, "collision")
	first := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	second := &core.MockTemplate{ID_: 2, Name_: "grunt"}

	require.NoError(t, r.Register(first, 4))

	err := r.Register(second, 8)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))

	// The colliding template got no entry under either key, and the
	// original registration is intact.
	_, ok := r.BinForID(2)
	assert.False(t, ok)
	bin, ok := r.BinForName("grunt")
	require.True(t, ok)
	assert.Equal(t, core.ID(1), bin.Template().TemplateID())
	assert.Equal(t, 4, bin.Capacity())
	assert.Len(t, r.Bins(), 1)
}

func TestUnregisterMissIsNoOp(t *testing.T) {
	r, _ := newTestRegistry(t, "unreg-miss")

	err := r.Unregister(&core.MockTemplate{ID_: 9, Name_: "ghost"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestUnregisterCascade(t *testing.T) {
	r, rt := newTestRegistry(t, "cascade")
	tmpl := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	require.NoError(t, r.Register(tmpl, 8))

	a, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)
	b, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)
	r.Despawn(a)
	r.Despawn(b)

	require.NoError(t, r.Unregister(tmpl))
	assert.Equal(t, 2, rt.DestroyedCount())

	_, ok := r.BinForName("grunt")
	assert.False(t, ok)
	_, ok = r.BinForID(1)
	assert.False(t, ok)
}

func TestSpawnReusesPooledInstance(t *testing.T) {
	r, _ := newTestRegistry(t, "reuse")
	tmpl := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	require.NoError(t, r.Register(tmpl, 4))

	first, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)
	r.Despawn(first)

	second, err := r.Spawn(tmpl, core.Placement{Position: [3]float64{1, 2, 3}})
	require.NoError(t, err)
	assert.Same(t, first, second)

	// The spawned instance is active and carries the requested placement,
	// detached from the pool container.
	mock := second.(*core.MockInstance)
	assert.True(t, mock.Active())
	assert.Equal(t, [3]float64{1, 2, 3}, mock.LastPlacement().Position)
	assert.Nil(t, mock.LastPlacement().Parent)
}

func TestSpawnFallbackForUnmanagedTemplate(t *testing.T) {
	r, rt := newTestRegistry(t, "fallback")
	tmpl := &core.MockTemplate{ID_: 7, Name_: "loose"}

	inst, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, 1, rt.LiveCount())

	// The fallback never creates a bin.
	_, ok := r.BinForName("loose")
	assert.False(t, ok)
}

func TestSpawnNamedMissIsNotFound(t *testing.T) {
	r, _ := newTestRegistry(t, "named-miss")

	inst, err := r.SpawnNamed("ghost", core.Placement{})
	require.Error(t, err)
	assert.Nil(t, inst)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDespawnUntrackedDestroys(t *testing.T) {
	r, rt := newTestRegistry(t, "untracked")
	tmpl := &core.MockTemplate{ID_: 7, Name_: "loose"}

	inst, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)

	r.Despawn(inst)
	assert.Equal(t, 1, rt.DestroyedCount())
	assert.Equal(t, 0, rt.LiveCount())
}

func TestCullAllAcrossBins(t *testing.T) {
	r, rt := newTestRegistry(t, "cull-all")
	grunt := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	tank := &core.MockTemplate{ID_: 2, Name_: "tank"}
	require.NoError(t, r.Register(grunt, 1))
	require.NoError(t, r.Register(tank, 1))

	for _, tmpl := range []*core.MockTemplate{grunt, tank} {
		var held []core.Instance
		for i := 0; i < 3; i++ {
			inst, err := r.Spawn(tmpl, core.Placement{})
			require.NoError(t, err)
			held = append(held, inst)
		}
		for _, inst := range held {
			r.Despawn(inst)
		}
	}

	assert.Equal(t, 4, r.CullAll())
	assert.Equal(t, 0, r.CullAll())
	assert.Equal(t, 4, rt.DestroyedCount())

	gruntBin, _ := r.BinForName("grunt")
	tankBin, _ := r.BinForName("tank")
	assert.Equal(t, 1, gruntBin.IdleCount())
	assert.Equal(t, 1, tankBin.IdleCount())
}

func TestPeriodicCullerRuns(t *testing.T) {
	rt := core.NewMockRuntime()
	r := New("periodic", rt, WithCullInterval(20*time.Millisecond))
	t.Cleanup(func() { _ = r.Close() })

	tmpl := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	require.NoError(t, r.Register(tmpl, 0))

	inst, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)
	r.Despawn(inst)

	require.Eventually(t, func() bool {
		return rt.DestroyedCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDespawnAfterDelay(t *testing.T) {
	r, _ := newTestRegistry(t, "delayed")
	tmpl := &core.MockTemplate{ID_: 1, Name_: "grunt"}
	require.NoError(t, r.Register(tmpl, 4))

	inst, err := r.Spawn(tmpl, core.Placement{})
	require.NoError(t, err)

	bin, _ := r.BinForName("grunt")
	r.DespawnAfterDelay(inst, 80*time.Millisecond)

	// Still in use well before the delay elapses.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, bin.IdleCount())

	require.Eventually(t, func() bool {
		return bin.IdleCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStatsSnapshot(t *testing.T) {
	r, _ := newTestRegistry(t, "stats")
	require.NoError(t, r.Register(&core.MockTemplate{ID_: 1, Name_: "grunt"}, 4))
	require.NoError(t, r.Register(&core.MockTemplate{ID_: 2, Name_: "tank"}, 2))

	stats := r.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "grunt", stats[0].Template)
	assert.Equal(t, "tank", stats[1].Template)
}
