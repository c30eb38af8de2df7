// Package warren provides a generic resource pooling engine: reusable
// instances of typed resources are kept in per-template bins, handed out
// on demand, reclaimed when no longer needed, and periodically trimmed
// when a pool grows beyond its configured capacity.
//
// # Architecture
//
// The engine is built from four small components:
//
// 1. Bin (pkg/pool): owns the idle-instance pool for one template.
// Retrieval is stack ordered so the most recently returned instance is
// reused first; culling trims from the cold end.
//
// 2. Registry (pkg/registry): the directory mapping template identity
// and template name to bins. Spawn and despawn route through it, and
// misses degrade gracefully to direct instantiation or destruction.
// Multiple registries may coexist; exactly one is active at a time.
//
// 3. Scheduler (pkg/scheduler): the periodic cull driver and one-shot
// delayed despawn tasks.
//
// 4. Façade (pkg/spawn): package-level functions over the active
// registry, the surface most callers use.
//
// Object instantiation, destruction, and placement stay with the host:
// the engine drives them through the core.Runtime collaborator and never
// touches host state directly.
//
// # Quick start
//
//	rt := myRuntime()                     // implements core.Runtime
//	reg := registry.New("main", rt)
//	defer reg.Close()
//
//	if err := spawn.Register(grunt, 16); err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := spawn.Spawn(grunt, core.Placement{Position: [3]float64{1, 0, 2}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer spawn.Despawn(inst)
package warren
