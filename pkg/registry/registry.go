// Package registry implements the process-wide directory mapping template
// identity and template name to the bin that pools its instances.
//
// A Registry routes every spawn and despawn call: identity or name resolves
// to a bin, the bin serves or reclaims the instance, and misses degrade to
// direct instantiation or destruction through the host runtime. Multiple
// registries may coexist (one per scene or context boundary); exactly one
// is active at a time and serves the static API surface in package spawn.
package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/errors"
	"github.com/ajitpratap0/warren/pkg/logger"
	"github.com/ajitpratap0/warren/pkg/metrics"
	"github.com/ajitpratap0/warren/pkg/pool"
	"github.com/ajitpratap0/warren/pkg/scheduler"
)

// poolContainer is the default grouping context idle instances park under
// when the host does not supply one.
type poolContainer string

func (c poolContainer) ContainerName() string { return string(c) }

// Registry is the single source of truth mapping template identity and
// name to bins. The two maps are mutated only by Register/Unregister and
// stay consistent: a template is in both or in neither.
type Registry struct {
	name    string
	runtime core.Runtime

	mu        sync.Mutex
	byID      map[core.ID]*pool.Bin
	byName    map[string]core.ID
	order     []core.ID // registration order, drives the cull pass
	container core.Container
	closed    bool

	culler      *scheduler.Culler
	fallbackLog *rate.Limiter

	logger *zap.Logger
}

// Opt configures a Registry.
type Opt func(*Registry)

// WithContainer sets the grouping context idle instances are parked under.
func WithContainer(c core.Container) Opt {
	return func(r *Registry) { r.container = c }
}

// WithCullInterval sets the cadence of the periodic cull pass.
func WithCullInterval(d time.Duration) Opt {
	return func(r *Registry) {
		r.culler = scheduler.NewCuller(r, d)
	}
}

// New creates a registry, joins it to the live set, and starts its
// periodic cull pass. The first registry created becomes active.
func New(name string, rt core.Runtime, opts ...Opt) *Registry {
	r := &Registry{
		name:        name,
		runtime:     rt,
		byID:        make(map[core.ID]*pool.Bin),
		byName:      make(map[string]core.ID),
		container:   poolContainer(name + "/pool"),
		fallbackLog: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      logger.Get().With(zap.String("registry", name)),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.culler == nil {
		r.culler = scheduler.NewCuller(r, scheduler.DefaultCullInterval)
	}
	r.culler.Start(context.Background())

	join(r)
	return r
}

// Name returns the registry's name.
func (r *Registry) Name() string { return r.name }

// Register creates a bin for the template and inserts it under both keys.
// A template whose name is already registered is rejected with a conflict
// error and no partial mutation.
func (r *Registry) Register(tmpl core.Template, capacity int) error {
	return r.RegisterBin(pool.NewBin(tmpl, capacity, r.runtime))
}

// RegisterBin inserts a caller-constructed bin under both keys and binds
// it to the registry's container.
func (r *Registry) RegisterBin(bin *pool.Bin) error {
	tmpl := bin.Template()

	r.mu.Lock()
	if _, taken := r.byName[tmpl.Name()]; taken {
		r.mu.Unlock()
		r.logger.Warn("register rejected, name taken", zap.String("template", tmpl.Name()))
		return errors.Newf(errors.ErrorTypeConflict, "template %q already registered", tmpl.Name())
	}

	container := r.container
	r.mu.Unlock()

	// Bind the bin before publishing it: a bin that was already
	// initialized elsewhere must not end up under either key.
	if err := bin.Init(container); err != nil {
		return err
	}

	r.mu.Lock()
	if _, taken := r.byName[tmpl.Name()]; taken {
		r.mu.Unlock()
		return errors.Newf(errors.ErrorTypeConflict, "template %q already registered", tmpl.Name())
	}
	r.byID[tmpl.TemplateID()] = bin
	r.byName[tmpl.Name()] = tmpl.TemplateID()
	r.order = append(r.order, tmpl.TemplateID())
	r.mu.Unlock()

	metrics.RegisteredBins.WithLabelValues(r.name).Inc()
	r.logger.Info("bin registered",
		zap.String("template", tmpl.Name()),
		zap.Int("capacity", bin.Capacity()))
	return nil
}

// Unregister removes the template's bin from both keys and destroys every
// instance idle in it. A template with no bin is a logged no-op returning
// a not-found error.
func (r *Registry) Unregister(tmpl core.Template) error {
	return r.UnregisterID(tmpl.TemplateID())
}

// UnregisterID removes the bin registered under the identity token.
func (r *Registry) UnregisterID(id core.ID) error {
	r.mu.Lock()
	bin, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("unregister miss", zap.Uint64("template_id", uint64(id)))
		return errors.Newf(errors.ErrorTypeNotFound, "no bin for template id %d", id)
	}

	delete(r.byID, id)
	delete(r.byName, bin.TemplateName())
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	destroyed := bin.RemoveAll()
	metrics.RegisteredBins.WithLabelValues(r.name).Dec()
	r.logger.Info("bin unregistered",
		zap.String("template", bin.TemplateName()),
		zap.Int("destroyed", destroyed))
	return nil
}

// Spawn returns a ready-to-use instance of the template and applies the
// placement. A template with a registered bin is served from its pool;
// an unmanaged template degrades to direct instantiation with a
// diagnostic log. Only a host-runtime instantiation failure is an error.
func (r *Registry) Spawn(tmpl core.Template, p core.Placement) (core.Instance, error) {
	bin, ok := r.lookup(tmpl)
	if !ok {
		// Graceful degradation: no bin, instantiate a one-off that the
		// pool will never see again.
		if r.fallbackLog.Allow() {
			r.logger.Warn("spawn for unmanaged template, instantiating directly",
				zap.String("template", tmpl.Name()))
		}
		inst, err := r.runtime.Instantiate(tmpl)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeRuntime, "fallback instantiate "+tmpl.Name())
		}
		metrics.Spawns.WithLabelValues(tmpl.Name(), metrics.SpawnSourceFallback).Inc()
		r.runtime.SetActive(inst, true)
		r.runtime.Place(inst, p)
		return inst, nil
	}

	inst, reused, err := bin.Spawn()
	if err != nil {
		return nil, err
	}

	source := metrics.SpawnSourceNew
	if reused {
		source = metrics.SpawnSourcePool
	}
	metrics.Spawns.WithLabelValues(tmpl.Name(), source).Inc()

	// Activate and detach from the pool container before handing out.
	r.runtime.SetActive(inst, true)
	r.runtime.Place(inst, p)
	return inst, nil
}

// SpawnNamed spawns by template name alone. Unlike Spawn there is no
// prototype to fall back to on a miss, so an unregistered name returns a
// not-found error.
func (r *Registry) SpawnNamed(name string, p core.Placement) (core.Instance, error) {
	bin, ok := r.BinForName(name)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "no bin for template %q", name)
	}

	inst, reused, err := bin.Spawn()
	if err != nil {
		return nil, err
	}

	source := metrics.SpawnSourceNew
	if reused {
		source = metrics.SpawnSourcePool
	}
	metrics.Spawns.WithLabelValues(name, source).Inc()

	r.runtime.SetActive(inst, true)
	r.runtime.Place(inst, p)
	return inst, nil
}

// Despawn returns the instance to its bin's idle pool, or destroys it
// outright when no bin tracks its template.
//
// Caller contract: never despawn an instance not currently held.
func (r *Registry) Despawn(inst core.Instance) {
	bin, ok := r.BinForInstance(inst)
	if !ok {
		r.logger.Debug("despawn of untracked instance, destroying",
			zap.String("instance", inst.InstanceID()),
			zap.String("template", inst.TemplateName()))
		if err := r.runtime.Destroy(inst); err != nil {
			r.logger.Warn("destroy failed",
				zap.String("instance", inst.InstanceID()),
				zap.Error(err))
		}
		metrics.Despawns.WithLabelValues(inst.TemplateName(), metrics.DespawnOutcomeDestroyed).Inc()
		return
	}

	bin.Despawn(inst)
	metrics.Despawns.WithLabelValues(inst.TemplateName(), metrics.DespawnOutcomePooled).Inc()
}

// DespawnAfterDelay schedules a one-shot despawn of the instance after d.
// The task is not cancellable and fires exactly once; despawning the
// instance through another path first leaves the fired task subject to
// the same caller contract as a double despawn.
func (r *Registry) DespawnAfterDelay(inst core.Instance, d time.Duration) {
	scheduler.Delay(d, func() {
		r.Despawn(inst)
	})
}

// BinForName returns the bin registered under the template name.
func (r *Registry) BinForName(name string) (*pool.Bin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	bin, ok := r.byID[id]
	return bin, ok
}

// BinForID returns the bin registered under the identity token.
func (r *Registry) BinForID(id core.ID) (*pool.Bin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bin, ok := r.byID[id]
	return bin, ok
}

// BinForInstance returns the bin tracking the instance's template.
func (r *Registry) BinForInstance(inst core.Instance) (*pool.Bin, bool) {
	return r.BinForName(inst.TemplateName())
}

// Bins returns the registered bins in registration order.
func (r *Registry) Bins() []*pool.Bin {
	r.mu.Lock()
	defer r.mu.Unlock()

	bins := make([]*pool.Bin, 0, len(r.order))
	for _, id := range r.order {
		bins = append(bins, r.byID[id])
	}
	return bins
}

// CullAll runs one cull pass over every bin in registration order and
// returns the total number of instances destroyed.
func (r *Registry) CullAll() int {
	total := 0
	for _, bin := range r.Bins() {
		total += bin.CullExcess()
	}
	return total
}

// Stats returns a snapshot of every bin in registration order.
func (r *Registry) Stats() []pool.Stats {
	bins := r.Bins()
	stats := make([]pool.Stats, 0, len(bins))
	for _, bin := range bins {
		stats = append(stats, bin.Stats())
	}
	return stats
}

// lookup resolves a template to its bin by identity first, then by name.
func (r *Registry) lookup(tmpl core.Template) (*pool.Bin, bool) {
	if bin, ok := r.BinForID(tmpl.TemplateID()); ok {
		return bin, true
	}
	return r.BinForName(tmpl.Name())
}

// Close stops the cull pass, unregisters every bin this registry owns
// (destroying their idle instances), and removes the registry from the
// live set. If it was active, another surviving registry is promoted; if
// none survive, the static surface reports unavailable until a registry
// is created again.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ids := make([]core.ID, len(r.order))
	copy(ids, r.order)
	r.mu.Unlock()

	r.culler.Stop()

	for _, id := range ids {
		if err := r.UnregisterID(id); err != nil {
			r.logger.Warn("teardown unregister failed", zap.Error(err))
		}
	}

	leave(r)
	r.logger.Info("registry closed")
	return nil
}
