// Package ebb is a minimal real-time 3D scene-graph engine for [Ebitengine].
//
// Ebb provides a hierarchical node tree carrying transforms, cameras and
// renderable components, a binary file format that round-trips the tree
// through a runtime type registry, and a driver loop that sets the tree up
// once and then updates it every frame until it is deactivated.
//
// # Quick start
//
//	tree := ebb.NewTree()
//	if err := tree.AddType(tree.Root(), ebb.BuiltinTypes()...); err != nil {
//		log.Fatal(err)
//	}
//	obj := tree.Add(tree.Root(), ebb.NewObject())
//	tree.Node(obj).Transform.Translate(mgl32.Vec3{0, 0, -5})
//
//	cam, _ := ebb.DefaultConfig().NewCamera(tree)
//	camID := tree.Add(tree.Root(), cam)
//
//	m := ebb.NewNodeTreeManager(tree, tree.Root())
//	if err := ebb.Run(m, ebb.RunConfig{Title: "ebb", Camera: camID}); err != nil {
//		log.Fatal(err)
//	}
//
// # Tree and handles
//
// A [Tree] is an arena owning every node. Nodes are addressed by [NodeID]
// handles; a child stores its parent's handle, never a pointer, so
// detaching and reparenting cannot leave a dangling parent. [Tree.Add]
// inserts a detached node under a parent (or as a new root),
// [Tree.AddChild] reparents, [Tree.Remove] detaches and [Tree.Dispose]
// releases a whole subtree.
//
// # Components and capabilities
//
// Every node is the same flat [Node] struct. Optional components select
// what a node does:
//
//   - Transform: a local 4x4 matrix; see [Tree.WorldTransform]
//   - Camera: runs a draw pass into its render target on every update
//   - Target: a [RenderTarget]; on a RenderTexture node it is composited
//     into the camera's target
//   - Display: a persisted window description polling a host [Window]
//   - Tween: animates the nearest transform-bearing ancestor
//   - Behavior: a user value implementing any of [Setupper], [Updater],
//     [Renderable] and [Persister]
//
// [Node.Caps] summarizes the components as a [Capability] mask, which
// [Tree.FindAll] and [Tree.FindChild] filter on.
//
// Setup and update run the hooks of each component in a fixed order and
// then always recurse into the children, so no hook can cut off its
// subtree.
//
// # Transforms
//
// Transform operations post-multiply: M = M * op. Translating after a
// rotation moves along the rotated axes, as with glm. World transforms
// compose parent-then-child: world = parentWorld * local. A node without a
// transform between two transform-bearing nodes is reported with a
// [BrokenChainError] rather than silently ignored.
//
// # Type registry and files
//
// [Tree.AddType] registers [NodeType] factories on a node and every
// current descendant. Lookups walk from a node up to its root, so a type
// registered on a subtree is invisible to its siblings. Registering a
// different type under an existing name fails with [ErrTypeConflict].
//
// [Tree.Save] writes a subtree depth-first, little-endian:
//
//	type name (NUL-terminated)
//	child count (uint32)
//	child records
//	trailing component data
//
// [Tree.Load] reads a record into an existing node of the same type;
// [Tree.LoadNode] constructs the record's node through the registry and
// returns it as a new root. Unknown type names fail with an
// [*UnknownTypeError]; short files fail with [ErrTruncated] and never load
// as a smaller tree.
//
// # Driver loop
//
// [NodeTreeManager] sets up its auxiliary [Manager] values and then the
// tree, exactly once, and afterwards runs update cycles (managers, then the
// tree) until the root's Active flag is cleared. [NodeTreeManager.Step]
// runs a single cycle for frame-driven hosts; [Run] drives it from
// Ebitengine.
//
// # Logging and configuration
//
// Trees log through a [go.uber.org/zap] logger set with [Tree.SetLogger].
// [Tree.SetDebugMode] adds tree shape warnings and per-frame timing.
// [LoadConfig] reads a YAML [Config] describing the window, camera and
// scene file.
//
// [Ebitengine]: https://ebitengine.org
package ebb
