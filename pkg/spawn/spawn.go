// Package spawn is the public façade over the active registry. Every
// function resolves the active registry first and delegates; the only
// failure the façade adds is the explicit unavailable error after the
// last registry has been torn down.
package spawn

import (
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/warren/pkg/core"
	"github.com/ajitpratap0/warren/pkg/logger"
	"github.com/ajitpratap0/warren/pkg/pool"
	"github.com/ajitpratap0/warren/pkg/registry"
)

// Register creates a bin for the template with the given idle capacity.
func Register(tmpl core.Template, capacity int) error {
	r, err := registry.Active()
	if err != nil {
		return err
	}
	return r.Register(tmpl, capacity)
}

// Unregister removes the template's bin and destroys its idle instances.
func Unregister(tmpl core.Template) error {
	r, err := registry.Active()
	if err != nil {
		return err
	}
	return r.Unregister(tmpl)
}

// Spawn returns a ready-to-use instance of the template placed at p,
// falling back to direct instantiation for unmanaged templates.
func Spawn(tmpl core.Template, p core.Placement) (core.Instance, error) {
	r, err := registry.Active()
	if err != nil {
		return nil, err
	}
	return r.Spawn(tmpl, p)
}

// SpawnNamed spawns by template name; an unregistered name is a
// not-found error since there is no prototype to fall back to.
func SpawnNamed(name string, p core.Placement) (core.Instance, error) {
	r, err := registry.Active()
	if err != nil {
		return nil, err
	}
	return r.SpawnNamed(name, p)
}

// Despawn returns the instance to its bin, or destroys it if untracked.
// With no active registry the call logs and leaves the instance alone.
func Despawn(inst core.Instance) {
	r, err := registry.Active()
	if err != nil {
		logger.Warn("despawn with no active registry",
			zap.String("instance", inst.InstanceID()))
		return
	}
	r.Despawn(inst)
}

// DespawnAfterDelay schedules a one-shot despawn after d; the task is
// not cancellable.
func DespawnAfterDelay(inst core.Instance, d time.Duration) {
	r, err := registry.Active()
	if err != nil {
		logger.Warn("delayed despawn with no active registry",
			zap.String("instance", inst.InstanceID()))
		return
	}
	r.DespawnAfterDelay(inst, d)
}

// BinFor returns the bin registered under the template name.
func BinFor(name string) (*pool.Bin, bool) {
	r, err := registry.Active()
	if err != nil {
		return nil, false
	}
	return r.BinForName(name)
}

// BinForID returns the bin registered under the identity token.
func BinForID(id core.ID) (*pool.Bin, bool) {
	r, err := registry.Active()
	if err != nil {
		return nil, false
	}
	return r.BinForID(id)
}
