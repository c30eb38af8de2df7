package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/warren/pkg/errors"
	"github.com/ajitpratap0/warren/pkg/logger"
)

// The live set tracks every registry currently open. Exactly one of them
// is active and serves the static surface in package spawn. When the
// active registry closes, activity is handed to an arbitrary survivor;
// when none survive, Active fails cleanly instead of dereferencing an
// absent instance.
var (
	liveMu sync.Mutex
	live   []*Registry
	active *Registry
)

// Active returns the registry currently serving the static surface, or
// an unavailable error when no registry is open.
func Active() (*Registry, error) {
	liveMu.Lock()
	defer liveMu.Unlock()

	if active == nil {
		return nil, errors.New(errors.ErrorTypeUnavailable, "no active registry")
	}
	return active, nil
}

// SetActive promotes r to serve the static surface. Promoting a registry
// that is not in the live set is a validation error.
func SetActive(r *Registry) error {
	liveMu.Lock()
	defer liveMu.Unlock()

	for _, l := range live {
		if l == r {
			active = r
			return nil
		}
	}
	return errors.Newf(errors.ErrorTypeValidation, "registry %q is not open", r.Name())
}

// join adds r to the live set; the first registry in becomes active.
func join(r *Registry) {
	liveMu.Lock()
	defer liveMu.Unlock()

	live = append(live, r)
	if active == nil {
		active = r
	}
}

// leave removes r from the live set and hands activity to a survivor.
func leave(r *Registry) {
	liveMu.Lock()
	defer liveMu.Unlock()

	for i, l := range live {
		if l == r {
			live = append(live[:i], live[i+1:]...)
			break
		}
	}

	if active != r {
		return
	}

	if len(live) > 0 {
		active = live[0]
		logger.Info("active registry handed off",
			zap.String("from", r.Name()),
			zap.String("to", active.Name()))
	} else {
		active = nil
		logger.Info("last registry closed, static surface unavailable",
			zap.String("from", r.Name()))
	}
}
