package anim_graph

import "errors"

var (
	// ErrUnresolvedReference is returned when a definition names a clip, node or edge that does not exist.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrInvalidDefinition is returned when a graph definition is malformed.
	ErrInvalidDefinition = errors.New("invalid graph definition")

	// ErrCycle is returned when a node's inputs depend on the node itself.
	ErrCycle = errors.New("data-flow cycle")

	// ErrMissingClip is returned when a sample node has no clip bound.
	ErrMissingClip = errors.New("sample node has no clip")

	// ErrInvalidDuration is returned when a sample node's clip has a non-positive duration.
	ErrInvalidDuration = errors.New("clip duration must be positive")

	// ErrNegativeDelta is returned when evaluation is asked to step backwards in time.
	ErrNegativeDelta = errors.New("delta time must not be negative")

	// ErrMissingTarget is returned when a transition's target node does not exist.
	ErrMissingTarget = errors.New("transition target does not exist")

	// ErrNotFromActive is returned when a transition does not leave the active state.
	ErrNotFromActive = errors.New("transition does not leave the active state")

	// ErrUnknownTransition is returned when no transition edge has the requested name.
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrNotTransition is returned when a transition is started on an edge of another kind.
	ErrNotTransition = errors.New("edge is not a transition")

	// ErrNoInput is returned when a blend or local-to-model node has no usable input edge.
	ErrNoInput = errors.New("node has no input")

	// ErrStaleHandle is returned when a node or edge handle no longer refers to a live entry.
	ErrStaleHandle = errors.New("stale handle")

	// ErrNoRoot is returned when a graph or state machine is evaluated before it has an entry node.
	ErrNoRoot = errors.New("no root node")

	// ErrDuplicateName is returned when a node name is already taken within a graph.
	ErrDuplicateName = errors.New("duplicate node name")
)
