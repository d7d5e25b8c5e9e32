package ecs

import "errors"

var (
	// ErrBorrowConflict is the panic value raised when a component table or resource is
	// borrowed mutably while another borrow of the same type is live.
	ErrBorrowConflict = errors.New("ecs: conflicting borrow")
	// ErrQueryAliasing indicates a query data struct names the same component twice with write access.
	ErrQueryAliasing = errors.New("ecs: query aliases a mutable component")
	// ErrInvalidQuery indicates a query data type that is not a struct of component pointers and filters.
	ErrInvalidQuery = errors.New("ecs: invalid query data type")
	// ErrInvalidBundle indicates a bundle type that is not a struct of components.
	ErrInvalidBundle = errors.New("ecs: invalid bundle type")
	// ErrConflictingParams indicates two parameters of one system request incompatible access.
	ErrConflictingParams = errors.New("ecs: system parameters conflict")
	// ErrInvalidSystem indicates a value that cannot be turned into a system.
	ErrInvalidSystem = errors.New("ecs: invalid system")
	// ErrInvalidStage indicates a stage outside the known set.
	ErrInvalidStage = errors.New("ecs: invalid stage")
	// ErrSystemPanic wraps a panic recovered from a running system.
	ErrSystemPanic = errors.New("ecs: system panicked")

	// ErrEntityNotFound indicates an undoable command addressed a dead entity.
	ErrEntityNotFound = errors.New("ecs: entity not found")
	// ErrComponentNotFound indicates an undoable command needed a component the entity lacks.
	ErrComponentNotFound = errors.New("ecs: component not found")
	// ErrNothingToUndo is returned by CommandHistory.Undo at the start of the history.
	ErrNothingToUndo = errors.New("ecs: nothing to undo")
	// ErrNothingToRedo is returned by CommandHistory.Redo at the end of the history.
	ErrNothingToRedo = errors.New("ecs: nothing to redo")
	// ErrRolledBack wraps the failure that made an AtomicCommand undo its completed steps.
	ErrRolledBack = errors.New("ecs: command failed and was rolled back")
	// ErrDependencyCycle indicates a CommandGraph dependency that would close a cycle.
	ErrDependencyCycle = errors.New("ecs: circular command dependency")
	// ErrInvalidCommandID indicates a CommandID not issued by the CommandGraph.
	ErrInvalidCommandID = errors.New("ecs: invalid command id")
)
