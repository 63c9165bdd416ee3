// Package registry holds the identity registry: the mapping from identifier
// to Entry for every tracked node.
//
// An Entry owns the lifecycle state of one node. It starts Registered when
// a node is connected, becomes Attached the first time the node is observed
// entering the tree, and ends Detached when the node leaves the tree. Once
// Detached, the entry is gone from the registry and no further callbacks
// fire for its identifier.
//
// Identifiers come from an Allocator. Registry.Allocate checks every
// candidate against the live entries, so a generator collision surfaces as
// ErrIDCollision instead of silently aliasing two nodes. Register never
// overwrites: a second registration of a live identifier fails with
// ErrDuplicateID.
package registry
