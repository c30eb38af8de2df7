package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/errors"
)

func newTestBin(t *testing.T, capacity int) (*Bin, *core.MockRuntime) {
	t.Helper()
	rt := core.NewMockRuntime()
	bin := NewBin(&core.MockTemplate{ID_: 1, Name_: "grunt"}, capacity, rt)
	require.NoError(t, bin.Init(core.MockContainer("test/pool")))
	return bin, rt
}

func TestBinInitOnce(t *testing.T) {
	rt := core.NewMockRuntime()
	bin := NewBin(&core.MockTemplate{ID_: 1, Name_: "grunt"}, 4, rt)

	require.NoError(t, bin.Init(core.MockContainer("a")))

	err := bin.Init(core.MockContainer("b"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestBinSpawnInstantiatesOnEmpty(t *testing.T) {
	bin, rt := newTestBin(t, 4)

	inst, reused, err := bin.Spawn()
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.False(t, reused)
	assert.Equal(t, 1, bin.TotalCreated())
	assert.Equal(t, 0, bin.IdleCount())
	assert.Equal(t, 1, rt.LiveCount())
}

func TestBinSpawnPropagatesInstantiateFailure(t *testing.T) {
	bin, rt := newTestBin(t, 4)
	rt.FailInstantiate = true

	inst, _, err := bin.Spawn()
	require.Error(t, err)
	assert.Nil(t, inst)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRuntime))
	assert.Equal(t, 0, bin.TotalCreated())
}

func TestBinStackReuse(t *testing.T) {
	bin, _ := newTestBin(t, 4)

	a, _, err := bin.Spawn()
	require.NoError(t, err)
	b, _, err := bin.Spawn()
	require.NoError(t, err)

	bin.Despawn(a)
	bin.Despawn(b)
	require.Equal(t, 2, bin.IdleCount())

	// Most recently returned comes back first.
	got, reused, err := bin.Spawn()
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, b.InstanceID(), got.InstanceID())

	got, reused, err = bin.Spawn()
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, a.InstanceID(), got.InstanceID())

	assert.Equal(t, 2, bin.TotalCreated())
}

func TestBinDespawnDeactivatesAndParks(t *testing.T) {
	bin, _ := newTestBin(t, 4)

	inst, _, err := bin.Spawn()
	require.NoError(t, err)

	mock := inst.(*core.MockInstance)
	assert.True(t, mock.Active())

	bin.Despawn(inst)
	assert.False(t, mock.Active())
	require.NotNil(t, mock.LastPlacement().Parent)
	assert.Equal(t, "test/pool", mock.LastPlacement().Parent.ContainerName())
}

func TestBinCullExcessTrimsOldestFirst(t *testing.T) {
	bin, rt := newTestBin(t, 2)

	var spawned []core.Instance
	for i := 0; i < 5; i++ {
		inst, _, err := bin.Spawn()
		require.NoError(t, err)
		spawned = append(spawned, inst)
	}
	for _, inst := range spawned {
		bin.Despawn(inst)
	}
	require.Equal(t, 5, bin.IdleCount())
	require.Equal(t, 5, bin.TotalCreated())

	destroyed := bin.CullExcess()
	assert.Equal(t, 3, destroyed)
	assert.Equal(t, 2, bin.IdleCount())
	assert.Equal(t, 2, bin.TotalCreated())
	assert.Equal(t, 3, rt.DestroyedCount())

	// Survivors are the most recently returned instances.
	got, _, err := bin.Spawn()
	require.NoError(t, err)
	assert.Equal(t, spawned[4].InstanceID(), got.InstanceID())
	got, _, err = bin.Spawn()
	require.NoError(t, err)
	assert.Equal(t, spawned[3].InstanceID(), got.InstanceID())
}

func TestBinCullExcessIdempotent(t *testing.T) {
	bin, rt := newTestBin(t, 2)

	var spawned []core.Instance
	for i := 0; i < 4; i++ {
		inst, _, err := bin.Spawn()
		require.NoError(t, err)
		spawned = append(spawned, inst)
	}
	for _, inst := range spawned {
		bin.Despawn(inst)
	}

	assert.Equal(t, 2, bin.CullExcess())
	assert.Equal(t, 0, bin.CullExcess())
	assert.Equal(t, 0, bin.CullExcess())
	assert.Equal(t, 2, bin.IdleCount())
	assert.Equal(t, 2, rt.DestroyedCount())
}

func TestBinRemoveAll(t *testing.T) {
	bin, rt := newTestBin(t, 8)

	inUse, _, err := bin.Spawn()
	require.NoError(t, err)

	var returned []core.Instance
	for i := 0; i < 3; i++ {
		inst, _, err := bin.Spawn()
		require.NoError(t, err)
		returned = append(returned, inst)
	}
	for _, inst := range returned {
		bin.Despawn(inst)
	}

	destroyed := bin.RemoveAll()
	assert.Equal(t, 3, destroyed)
	assert.Equal(t, 0, bin.IdleCount())
	assert.Equal(t, 3, rt.DestroyedCount())

	// The in-use instance is orphaned, not reclaimed.
	assert.Equal(t, 1, rt.LiveCount())
	assert.Equal(t, inUse.TemplateName(), "grunt")
}

func TestBinRoundTripIdentity(t *testing.T) {
	bin, _ := newTestBin(t, 4)

	first, _, err := bin.Spawn()
	require.NoError(t, err)
	bin.Despawn(first)

	second, reused, err := bin.Spawn()
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Same(t, first, second)
}

func TestBinStats(t *testing.T) {
	bin, _ := newTestBin(t, 1)

	a, _, err := bin.Spawn()
	require.NoError(t, err)
	b, _, err := bin.Spawn()
	require.NoError(t, err)
	bin.Despawn(a)
	bin.Despawn(b)

	got, _, err := bin.Spawn()
	require.NoError(t, err)
	bin.Despawn(got)
	bin.CullExcess()

	stats := bin.Stats()
	assert.Equal(t, "grunt", stats.Template)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 1, stats.Capacity)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Culled)
}
