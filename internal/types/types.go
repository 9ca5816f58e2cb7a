// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// the roster store, handlers, storage, and utils can all import types
// without depending on each other.
package types

// Increment is the fixed number of points added or removed by a single
// points action. A student's points are always a multiple of it.
const Increment = 25

// Student represents one row of the roster.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON.
//     The same encoding is used for the persisted "students" key, so
//     renaming a tag changes the on-disk format.
//
//     yaml:"..." does the same for `roster dump --format yaml`.
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package when a stored roster is loaded. "required" means the field
//     must be non-zero / non-empty. "notblank" and "points_step" are
//     registered by the roster package: a name must not be whitespace
//     only, and points move in steps of Increment.
type Student struct {
	// ID is a random UUID assigned at creation. It never changes.
	ID     string `json:"id"     yaml:"id"     validate:"required"`
	Name   string `json:"name"   yaml:"name"   validate:"required,notblank"`
	Points int    `json:"points" yaml:"points" validate:"gte=0,points_step"`
	Paid   bool   `json:"paid"   yaml:"paid"`
}

// NewStudentRequest is the body of POST /api/students.
//
//	{ "name": "Ana" }
type NewStudentRequest struct {
	Name string `json:"name"`
}

// Summary is the figure panel shown above the roster.
//
// RunningTotal is the independently resettable counter; PointsSum is the
// sum of every student's points. They drift apart after a reset.
type Summary struct {
	Students     int `json:"students"      yaml:"students"`
	Paid         int `json:"paid"          yaml:"paid"`
	Pending      int `json:"pending"       yaml:"pending"`
	RunningTotal int `json:"running_total" yaml:"running_total"`
	PointsSum    int `json:"points_sum"    yaml:"points_sum"`
}

// Snapshot is a consistent read of the whole roster state.
type Snapshot struct {
	Students []Student `json:"students"`
	Summary  Summary   `json:"summary"`

	// PendingConfirmation is the id awaiting a second toggle, or "".
	PendingConfirmation string `json:"pending_confirmation,omitempty"`

	// ValidationError is true after an add with an empty name, until the
	// next successful add or until the input is edited.
	ValidationError bool `json:"validation_error"`
}
