package editor

import "github.com/probelab/flowboard/pkg/models"

// NodeChangeType enumerates the node change events the canvas reports
type NodeChangeType string

const (
	// NodeChangePosition is a drag move
	NodeChangePosition NodeChangeType = "position"

	// NodeChangeDimensions is a resize; the new size is written back into
	// the node's data so it survives reloads
	NodeChangeDimensions NodeChangeType = "dimensions"

	// NodeChangeSelect is a selection toggle
	NodeChangeSelect NodeChangeType = "select"

	// NodeChangeRemove removes the node
	NodeChangeRemove NodeChangeType = "remove"
)

// NodeChange is one node change event from the canvas
type NodeChange struct {
	// ID of the affected node
	ID string `json:"id"`

	// Type of the change
	Type NodeChangeType `json:"type"`

	// Position accompanies position changes
	Position *models.Position `json:"position,omitempty"`

	// Width accompanies dimension changes
	Width *float64 `json:"width,omitempty"`

	// Height accompanies dimension changes
	Height *float64 `json:"height,omitempty"`

	// Selected accompanies select changes
	Selected *bool `json:"selected,omitempty"`
}

// EdgeChangeType enumerates the edge change events the canvas reports
type EdgeChangeType string

const (
	// EdgeChangeSelect is a selection toggle
	EdgeChangeSelect EdgeChangeType = "select"

	// EdgeChangeRemove removes the edge
	EdgeChangeRemove EdgeChangeType = "remove"
)

// EdgeChange is one edge change event from the canvas
type EdgeChange struct {
	// ID of the affected edge
	ID string `json:"id"`

	// Type of the change
	Type EdgeChangeType `json:"type"`

	// Selected accompanies select changes
	Selected *bool `json:"selected,omitempty"`
}

// KeyEvent is a keyboard event as reported by the hosting page
type KeyEvent struct {
	// Key is the event key name ("z", "y", "Delete", "Backspace", ...)
	Key string `json:"key"`

	// Ctrl is true when the control key is held
	Ctrl bool `json:"ctrl"`

	// Meta is true when the command key is held
	Meta bool `json:"meta"`

	// Shift is true when the shift key is held
	Shift bool `json:"shift"`

	// EditableTarget is true when focus is inside a text input or
	// textarea; all shortcuts are suppressed then
	EditableTarget bool `json:"editableTarget"`
}

// KeyAction is the editor action a key event resolved to
type KeyAction string

const (
	// KeyActionNone means the event was not a shortcut or was suppressed
	KeyActionNone KeyAction = ""

	// KeyActionDelete deleted the current selection
	KeyActionDelete KeyAction = "delete"

	// KeyActionUndo stepped history back
	KeyActionUndo KeyAction = "undo"

	// KeyActionRedo stepped history forward
	KeyActionRedo KeyAction = "redo"
)

// GraphUpdate is pushed to subscribers after every graph mutation
type GraphUpdate struct {
	// FlowID of the active flow
	FlowID string `json:"flowId"`

	// Nodes of the live graph
	Nodes []models.Node `json:"nodes"`

	// Edges of the live graph
	Edges []models.Edge `json:"edges"`

	// CanUndo reports undo availability after the mutation
	CanUndo bool `json:"canUndo"`

	// CanRedo reports redo availability after the mutation
	CanRedo bool `json:"canRedo"`
}
