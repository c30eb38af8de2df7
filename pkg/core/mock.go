package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/warren/pkg/errors"
)

// MockTemplate is a trivial Template for tests and simulations.
type MockTemplate struct {
	ID_   ID
	Name_ string
}

func (t *MockTemplate) TemplateID() ID { return t.ID_ }
func (t *MockTemplate) Name() string   { return t.Name_ }

// MockInstance is an instance produced by MockRuntime. It records the
// placement and active state last applied to it.
type MockInstance struct {
	id       string
	template string

	mu        sync.Mutex
	active    bool
	placement Placement
}

func (m *MockInstance) InstanceID() string   { return m.id }
func (m *MockInstance) TemplateName() string { return m.template }

// Active reports the last state set through Runtime.SetActive.
func (m *MockInstance) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastPlacement reports the last placement applied through Runtime.Place.
func (m *MockInstance) LastPlacement() Placement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.placement
}

// MockContainer is a named Container for tests and simulations.
type MockContainer string

func (c MockContainer) ContainerName() string { return string(c) }

// MockRuntime is an in-memory Runtime that tracks every instance it has
// instantiated and destroyed. It is used by the package tests and by the
// simulate command.
type MockRuntime struct {
	mu        sync.Mutex
	live      map[string]*MockInstance
	destroyed []string
	seq       uint64

	// FailInstantiate, when set, makes every Instantiate call fail. It
	// models a host runtime that can no longer produce objects.
	FailInstantiate bool
}

// NewMockRuntime creates an empty mock runtime.
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		live: make(map[string]*MockInstance),
	}
}

// Instantiate produces a new MockInstance for the template.
func (r *MockRuntime) Instantiate(tmpl Template) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailInstantiate {
		return nil, errors.Newf(errors.ErrorTypeRuntime, "instantiate %s: runtime unavailable", tmpl.Name())
	}

	id := fmt.Sprintf("%s-%d", tmpl.Name(), atomic.AddUint64(&r.seq, 1))
	inst := &MockInstance{
		id:       id,
		template: tmpl.Name(),
		active:   true,
	}
	r.live[id] = inst
	return inst, nil
}

// Destroy releases an instance. Destroying an unknown instance is reported
// as a runtime error, mirroring a host runtime double-destroy.
func (r *MockRuntime) Destroy(inst Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[inst.InstanceID()]; !ok {
		return errors.Newf(errors.ErrorTypeRuntime, "destroy %s: unknown instance", inst.InstanceID())
	}
	delete(r.live, inst.InstanceID())
	r.destroyed = append(r.destroyed, inst.InstanceID())
	return nil
}

// Place records the placement on the instance.
func (r *MockRuntime) Place(inst Instance, p Placement) {
	if m, ok := inst.(*MockInstance); ok {
		m.mu.Lock()
		m.placement = p
		m.mu.Unlock()
	}
}

// SetActive records the active state on the instance.
func (r *MockRuntime) SetActive(inst Instance, active bool) {
	if m, ok := inst.(*MockInstance); ok {
		m.mu.Lock()
		m.active = active
		m.mu.Unlock()
	}
}

// LiveCount returns the number of instances instantiated and not destroyed.
func (r *MockRuntime) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// DestroyedCount returns the number of instances destroyed so far.
func (r *MockRuntime) DestroyedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.destroyed)
}

var _ Runtime = (*MockRuntime)(nil)
