// Package twin is the heart of TwinCore: a live, twice-rendered mirror
// of one facility's installed equipment.
//
// A single registry of device view-models feeds two projections — a 3D
// scene fed by spawned instances and a 2D top-down plan computed by
// pure projection — so the views can never drift apart. Every remote
// mutation goes through the sync gateway first and is applied locally
// only after the persistence service confirms it.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────────┐
//	│                    Engine (engine.go, sync.go)              │
//	│  Serialises operations, runs the frame loop, owns the rest  │
//	│                                                             │
//	│  ┌──────────┐ events ┌──────────────┐     ┌─────────────┐  │
//	│  │ Registry │───────▶│ InstancePool │────▶│  Resource   │  │
//	│  │(view-    │        │(3D instances,│     │  Tracker    │  │
//	│  │ models)  │        │ pending queue│     └─────────────┘  │
//	│  └──────────┘        └──────────────┘                      │
//	│       │                     ▲                               │
//	│       │              ┌──────┴───────┐   ┌───────────────┐  │
//	│       └─────────────▶│  Selection   │   │  FloorFilter  │  │
//	│                      │  Controller  │──▶│ (shared clip) │  │
//	│                      └──────────────┘   └───────────────┘  │
//	│  ┌──────────────┐    ┌──────────────┐                      │
//	│  │  Projector   │    │   Viewport   │   2D top-down plan   │
//	│  │ (world↔plan) │    │  (pan/zoom)  │                      │
//	│  └──────────────┘    └──────────────┘                      │
//	└────────────────────────────────────────────────────────────┘
//	          │ Gateway (remote.go)            │ Broadcaster
//	          ▼                                ▼
//	   facilityd REST API              WebSocket view hub
//
// # Key Types
//
//   - DeviceViewModel: display-side record for one device; floor and
//     severity tiers are always derived, never stored
//   - Registry: insertion-ordered, backing-id-indexed view-model store
//     with change events
//   - InstancePool: spawns render instances from templates, queues
//     devices whose template has not loaded yet
//   - SelectionController: at most one highlighted device, with a
//     pulse handle advanced by the frame loop
//   - FloorFilter: one shared clip boundary for 3D, one predicate for
//     2D, both from the same floor height
//   - Projector / Viewport: world↔plan mapping and the 2D pan/zoom
//   - Engine: the orchestrator; confirm-then-apply against the Gateway
//
// # Thread Safety
//
// Each component locks itself, and the Engine serialises all public
// operations on top, so a published frame never shows a half-applied
// mutation. Remote calls run outside the engine lock; per-key mutation
// states reject overlapping writes to the same device with
// ErrDeviceBusy.
//
// # Usage
//
//	store := twin.NewStateStore(cfg.Twin.StateFile)
//	engine, err := twin.NewEngine(twin.Deps{
//	    Config:  cfg.Twin,
//	    Gateway: gatewayClient,
//	    Assets:  assetLoader,
//	    Hub:     hub,
//	    State:   store,
//	    Logger:  log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := engine.LoadFacility(ctx); err != nil {
//	    return err
//	}
//	go func() { _ = engine.Run(ctx) }()
package twin
