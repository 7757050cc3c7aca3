package ecs

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/phanxgames/ebb"
	"github.com/pkg/errors"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// FrameEvent is published once per driver cycle, before the tree updates.
type FrameEvent struct {
	Frame   uint64
	Elapsed float32
	Root    ebb.NodeID
	Nodes   int
}

// FrameEventType is the Donburi event type for frame events.
// Subscribe to this in your ECS systems to run once per frame.
var FrameEventType = events.NewEventType[FrameEvent]()

// Pose mirrors the world transform of one transform-bearing node.
type Pose struct {
	Node  ebb.NodeID
	World mgl32.Mat4
	// Broken is set when the node's transform chain is interrupted; World
	// then only covers the unbroken part.
	Broken bool
}

// PoseComponent holds the mirrored pose of a node entity.
var PoseComponent = donburi.NewComponentType[Pose]()

// PoseQuery matches every entity carrying a Pose.
var PoseQuery = donburi.NewQuery(filter.Contains(PoseComponent))

type donburiManager struct {
	world    donburi.World
	tree     *ebb.Tree
	root     ebb.NodeID
	frame    uint64
	entities map[ebb.NodeID]donburi.Entity
}

// NewDonburiManager creates a Manager that bridges a node tree into a
// Donburi world. Each Update it publishes a FrameEvent, mirrors the world
// transform of every transform-bearing node into a PoseComponent entity,
// and processes queued frame events. Once root is disposed its poses are
// removed and frame events keep flowing.
//
// Add it to a NodeTreeManager with AddManager.
func NewDonburiManager(world donburi.World, tree *ebb.Tree, root ebb.NodeID) ebb.Manager {
	return &donburiManager{
		world:    world,
		tree:     tree,
		root:     root,
		entities: make(map[ebb.NodeID]donburi.Entity),
	}
}

func (m *donburiManager) Setup() error {
	if !m.tree.Valid(m.root) {
		return errors.Wrapf(ebb.ErrInvalidNode, "ecs root %d", m.root)
	}
	return m.syncPoses()
}

func (m *donburiManager) Update() error {
	if err := m.syncPoses(); err != nil {
		return err
	}
	m.frame++
	FrameEventType.Publish(m.world, FrameEvent{
		Frame:   m.frame,
		Elapsed: m.tree.Clock().ElapsedSeconds(),
		Root:    m.root,
		Nodes:   m.tree.Len(),
	})
	FrameEventType.ProcessEvents(m.world)
	return nil
}

// syncPoses creates, updates and removes pose entities so that there is
// exactly one per transform-bearing node under root. A disposed root
// mirrors nothing.
func (m *donburiManager) syncPoses() error {
	seen := make(map[ebb.NodeID]bool, len(m.entities))
	var ids []ebb.NodeID
	if m.tree.Valid(m.root) {
		ids = m.tree.FindAll(m.root, ebb.CapTransform)
	}
	for _, id := range ids {
		world, err := m.tree.WorldTransform(id)
		if err != nil && !errors.Is(err, ebb.ErrBrokenChain) {
			return err
		}
		seen[id] = true
		e, ok := m.entities[id]
		if !ok || !m.world.Valid(e) {
			e = m.world.Create(PoseComponent)
			m.entities[id] = e
		}
		PoseComponent.SetValue(m.world.Entry(e), Pose{
			Node:   id,
			World:  world.Matrix,
			Broken: err != nil,
		})
	}
	for id, e := range m.entities {
		if seen[id] {
			continue
		}
		if m.world.Valid(e) {
			m.world.Remove(e)
		}
		delete(m.entities, id)
	}
	return nil
}
