// Package ecs provides ECS adapters for the ebb node tree.
//
// The primary adapter is [NewDonburiManager], an auxiliary driver manager
// that mirrors node world transforms into a [Donburi] world and publishes a
// [FrameEvent] every cycle. Subscribe to [FrameEventType] in your ECS
// systems to run once per frame, and iterate [PoseQuery] to read poses.
//
// Usage:
//
//	m := ebb.NewNodeTreeManager(tree, tree.Root())
//	m.AddManager(ecs.NewDonburiManager(world, tree, tree.Root()))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
