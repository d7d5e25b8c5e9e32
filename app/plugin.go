package app

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Plugin bundles related components, resources and systems. Build is called
// once, when the plugin is added to an App.
type Plugin interface {
	Name() string
	Build(app *App)
}

// VersionedPlugin is a Plugin that reports a semantic version.
type VersionedPlugin interface {
	Plugin
	Version() string
}

// DependentPlugin is a Plugin that requires other plugins to be added first.
type DependentPlugin interface {
	Plugin
	Dependencies() []Dependency
}

// Dependency names a required plugin. Constraint is a semver constraint such as
// "^1.2" or ">= 0.3, < 1"; empty accepts any version.
type Dependency struct {
	Name       string
	Constraint string
}

// Requires is shorthand for a Dependency.
func Requires(name, constraint string) Dependency {
	return Dependency{Name: name, Constraint: constraint}
}

// PluginFunc adapts a function to a Plugin.
type PluginFunc struct {
	PluginName string
	BuildFunc  func(app *App)
}

func (p PluginFunc) Name() string { return p.PluginName }

func (p PluginFunc) Build(app *App) {
	if p.BuildFunc != nil {
		p.BuildFunc(app)
	}
}

// PluginInfo describes an added plugin.
type PluginInfo struct {
	Name    string
	Version string
}

type pluginEntry struct {
	plugin  Plugin
	version *semver.Version
}

func pluginVersion(p Plugin) (*semver.Version, error) {
	vp, ok := p.(VersionedPlugin)
	if !ok || vp.Version() == "" {
		return nil, nil
	}
	v, err := semver.NewVersion(vp.Version())
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %s version %q: %v", ErrInvalidVersion, p.Name(), vp.Version(), err)
	}
	return v, nil
}

// checkDependencies validates p's dependencies against the plugins already added.
func checkDependencies(p Plugin, added map[string]*pluginEntry) error {
	dp, ok := p.(DependentPlugin)
	if !ok {
		return nil
	}
	for _, dep := range dp.Dependencies() {
		entry, ok := added[dep.Name]
		if !ok {
			return fmt.Errorf("%w: %s requires %s", ErrMissingDependency, p.Name(), dep.Name)
		}
		if dep.Constraint == "" {
			continue
		}
		c, err := semver.NewConstraint(dep.Constraint)
		if err != nil {
			return fmt.Errorf("%w: %s constraint %q on %s: %v", ErrInvalidVersion, p.Name(), dep.Constraint, dep.Name, err)
		}
		if entry.version == nil {
			return fmt.Errorf("%w: %s requires %s %s, which is unversioned", ErrVersionMismatch, p.Name(), dep.Name, dep.Constraint)
		}
		if !c.Check(entry.version) {
			return fmt.Errorf("%w: %s requires %s %s, found %s", ErrVersionMismatch, p.Name(), dep.Name, dep.Constraint, entry.version)
		}
	}
	return nil
}
