// Package pool implements the per-template idle-instance pool.
//
// A Bin owns every idle instance of one template. Retrieval is stack
// ordered: the most recently returned instance is reused first, so hot
// instances stay hot and the cold end of the stack is what culling trims.
// The bin mediates all instantiation and destruction through the host
// runtime collaborator; it never fabricates instances itself.
//
// Example:
//
//	bin := pool.NewBin(tmpl, 16, rt)
//	if err := bin.Init(container); err != nil {
//	    return err
//	}
//	inst, reused, err := bin.Spawn()
//	...
//	bin.Despawn(inst)
package pool

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/errors"
	"github.com/ajitpratap0/warren/pkg/logger"
	"github.com/ajitpratap0/warren/pkg/metrics"
)

// Bin owns the idle-instance pool for one template and mediates
// retrieval and return. All methods are safe for concurrent use.
//
// Caller contract: never despawn an instance that is not currently held.
// The bin does not track in-use membership, so returning an instance twice
// or returning a foreign instance corrupts the idle collection silently.
type Bin struct {
	template core.Template
	runtime  core.Runtime

	mu        sync.Mutex
	available []core.Instance // stack: top of stack is the hot end
	container core.Container
	inited    bool

	capacity     int
	totalCreated int

	stats struct {
		hits   int64
		misses int64
		culled int64
	}

	logger *zap.Logger
}

// Stats is a point-in-time snapshot of a bin's counters.
type Stats struct {
	Template     string `json:"template"`
	Idle         int    `json:"idle"`
	TotalCreated int    `json:"total_created"`
	Capacity     int    `json:"capacity"`
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Culled       int64  `json:"culled"`
}

// NewBin creates a bin for the template with the given idle-instance
// capacity. Instances idle beyond capacity are eligible for culling.
// The bin is inert until Init binds it to a container.
func NewBin(tmpl core.Template, capacity int, rt core.Runtime) *Bin {
	if capacity < 0 {
		capacity = 0
	}
	return &Bin{
		template: tmpl,
		runtime:  rt,
		capacity: capacity,
		logger:   logger.Get().With(zap.String("template", tmpl.Name())),
	}
}

// Init binds the bin to the logical container idle instances are parked
// under. It is called exactly once at registration; a second call logs
// and returns a conflict error without touching the existing binding.
func (b *Bin) Init(container core.Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inited {
		b.logger.Warn("bin already initialized", zap.String("container", b.container.ContainerName()))
		return errors.Newf(errors.ErrorTypeConflict, "bin %s already initialized", b.template.Name())
	}

	b.container = container
	b.inited = true
	return nil
}

// Spawn returns a ready-to-use instance: the most recently returned idle
// instance if any, otherwise a brand-new one instantiated from the
// template. The second return reports whether the instance was reused
// from the pool. Instantiation failure propagates to the caller.
func (b *Bin) Spawn() (core.Instance, bool, error) {
	b.mu.Lock()

	if n := len(b.available); n > 0 {
		inst := b.available[n-1]
		b.available[n-1] = nil
		b.available = b.available[:n-1]
		b.mu.Unlock()

		atomic.AddInt64(&b.stats.hits, 1)
		metrics.IdleInstances.WithLabelValues(b.template.Name()).Dec()
		return inst, true, nil
	}
	b.mu.Unlock()

	atomic.AddInt64(&b.stats.misses, 1)
	inst, err := b.runtime.Instantiate(b.template)
	if err != nil {
		b.logger.Error("instantiate failed", zap.Error(err))
		return nil, false, errors.Wrap(err, errors.ErrorTypeRuntime, "instantiate "+b.template.Name())
	}

	b.mu.Lock()
	b.totalCreated++
	b.mu.Unlock()
	return inst, false, nil
}

// Despawn deactivates the instance, parks it under the bin's container,
// and pushes it onto the idle stack.
func (b *Bin) Despawn(inst core.Instance) {
	b.runtime.SetActive(inst, false)

	b.mu.Lock()
	b.runtime.Place(inst, core.Placement{Parent: b.container})
	b.available = append(b.available, inst)
	b.mu.Unlock()

	metrics.IdleInstances.WithLabelValues(b.template.Name()).Inc()
}

// CullExcess destroys idle instances from the cold end of the stack until
// the idle count is back at capacity, and returns the number destroyed.
// A bin at or below capacity is untouched, so repeated passes with no new
// despawns are free.
func (b *Bin) CullExcess() int {
	b.mu.Lock()
	excess := len(b.available) - b.capacity
	if excess <= 0 {
		b.mu.Unlock()
		return 0
	}

	victims := make([]core.Instance, excess)
	copy(victims, b.available[:excess])
	rest := make([]core.Instance, len(b.available)-excess)
	copy(rest, b.available[excess:])
	b.available = rest
	b.totalCreated -= excess
	b.mu.Unlock()

	for _, inst := range victims {
		if err := b.runtime.Destroy(inst); err != nil {
			b.logger.Warn("cull destroy failed",
				zap.String("instance", inst.InstanceID()),
				zap.Error(err))
		}
	}

	atomic.AddInt64(&b.stats.culled, int64(excess))
	metrics.Culled.WithLabelValues(b.template.Name()).Add(float64(excess))
	metrics.IdleInstances.WithLabelValues(b.template.Name()).Sub(float64(excess))
	return excess
}

// RemoveAll destroys every idle instance and empties the pool. It is the
// teardown path used when the bin is unregistered. Instances currently in
// use are not tracked and are orphaned with respect to the bin.
func (b *Bin) RemoveAll() int {
	b.mu.Lock()
	victims := b.available
	b.available = nil
	b.totalCreated -= len(victims)
	b.mu.Unlock()

	for _, inst := range victims {
		if err := b.runtime.Destroy(inst); err != nil {
			b.logger.Warn("teardown destroy failed",
				zap.String("instance", inst.InstanceID()),
				zap.Error(err))
		}
	}

	if n := len(victims); n > 0 {
		metrics.IdleInstances.WithLabelValues(b.template.Name()).Sub(float64(n))
	}
	return len(victims)
}

// Template returns the template this bin reproduces.
func (b *Bin) Template() core.Template { return b.template }

// TemplateName returns the name of the bin's template.
func (b *Bin) TemplateName() string { return b.template.Name() }

// Capacity returns the idle-instance ceiling enforced by culling.
func (b *Bin) Capacity() int { return b.capacity }

// IdleCount returns the number of instances currently idle in the pool.
func (b *Bin) IdleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.available)
}

// TotalCreated returns the number of instances this bin has instantiated
// and not yet destroyed, idle and in-use combined.
func (b *Bin) TotalCreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalCreated
}

// Stats returns a snapshot of the bin's counters.
func (b *Bin) Stats() Stats {
	b.mu.Lock()
	idle := len(b.available)
	created := b.totalCreated
	b.mu.Unlock()

	return Stats{
		Template:     b.template.Name(),
		Idle:         idle,
		TotalCreated: created,
		Capacity:     b.capacity,
		Hits:         atomic.LoadInt64(&b.stats.hits),
		Misses:       atomic.LoadInt64(&b.stats.misses),
		Culled:       atomic.LoadInt64(&b.stats.culled),
	}
}
