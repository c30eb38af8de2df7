// Package core defines the contracts between the pooling engine and the
// host runtime it serves. The engine never creates, destroys, or moves a
// host object itself; it drives those operations through the Runtime
// collaborator and only tracks which instances are idle in which bin.
package core

// ID is the stable identity token of a template. It is unique per distinct
// prototype by construction, analogous to an object handle in the host
// runtime.
type ID uint64

// Template is an external prototype definition the engine reproduces
// instances of. Name must be unique among all registered templates.
type Template interface {
	// TemplateID returns the template's stable identity token.
	TemplateID() ID
	// Name returns the template's human-readable name.
	Name() string
}

// Instance is a single reproduced object handed out by a bin. The engine
// routes a despawned instance back to its bin by template name, so the
// association must survive the instance's whole lifetime.
type Instance interface {
	// InstanceID returns a unique identifier for this instance, used in
	// logs and diagnostics.
	InstanceID() string
	// TemplateName returns the name of the template this instance was
	// reproduced from.
	TemplateName() string
}

// Container is a logical grouping context idle instances are parked under.
// Parking never transfers ownership away from the bin.
type Container interface {
	ContainerName() string
}

// Placement describes where a spawned instance should appear. A zero Parent
// detaches the instance from any pool-container association.
type Placement struct {
	Position    [3]float64
	Orientation [4]float64
	Parent      Container
}

// Runtime is the set of external collaborators the engine depends on:
// instantiation, destruction, and placement. Implementations are provided
// by the host environment; the engine calls them but never reaches past
// them into host state.
type Runtime interface {
	// Instantiate produces a brand-new instance from the template. Used on
	// pool miss and on the registry-miss fallback path.
	Instantiate(tmpl Template) (Instance, error)

	// Destroy permanently releases an instance. Used by culling, bin
	// teardown, and the no-bin despawn fallback.
	Destroy(inst Instance) error

	// Place applies a spatial placement to an instance.
	Place(inst Instance, p Placement)

	// SetActive toggles the instance's logical visible/active state.
	SetActive(inst Instance, active bool)
}
