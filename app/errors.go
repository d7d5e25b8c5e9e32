package app

import "errors"

var (
	// ErrDuplicatePlugin is returned when a plugin with the same name is added twice.
	ErrDuplicatePlugin = errors.New("app: duplicate plugin")
	// ErrMissingDependency is returned when a plugin depends on one that was not added before it.
	ErrMissingDependency = errors.New("app: missing plugin dependency")
	// ErrVersionMismatch is returned when a dependency's version does not satisfy the constraint.
	ErrVersionMismatch = errors.New("app: plugin version mismatch")
	// ErrInvalidVersion is returned for unparsable plugin versions or constraints.
	ErrInvalidVersion = errors.New("app: invalid plugin version")
	// ErrUnsupportedConfig is returned by LoadConfig for unknown file extensions.
	ErrUnsupportedConfig = errors.New("app: unsupported config format")
)
