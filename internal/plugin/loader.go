package plugin

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/gdbrns/go-whatsapp-multibot/internal/command"
	"github.com/gdbrns/go-whatsapp-multibot/internal/metrics"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

// Unit is one command-definition unit. Register is called once per load with
// a Definer scoped to the unit's name.
type Unit struct {
	Name     string
	Register func(d command.Definer) error
}

// Result summarizes one load pass.
type Result struct {
	Loaded   []string
	Disabled []string
	Failed   map[string]error
}

type Options struct {
	// Manifest is the path of plugins.yaml; empty loads every unit.
	Manifest string
	Metrics  *metrics.Metrics
}

// Loader registers a fixed table of units against a Registrar.
type Loader struct {
	registrar *command.Registrar
	units     []Unit
	manifest  string
	metrics   *metrics.Metrics

	mu     sync.Mutex
	loaded []string
}

func NewLoader(registrar *command.Registrar, units []Unit, opts Options) *Loader {
	return &Loader{
		registrar: registrar,
		units:     units,
		manifest:  opts.Manifest,
		metrics:   opts.Metrics,
	}
}

func (l *Loader) ManifestPath() string {
	return l.manifest
}

// Loaded returns the units registered by the last load pass.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}

// Load registers every enabled unit. Any earlier registration of a unit is
// removed first, so calling Load again is a reload. A unit that fails is
// skipped and leaves nothing behind.
func (l *Loader) Load() (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	manifest, err := LoadManifest(l.manifest)
	if err != nil {
		return Result{}, err
	}

	res := Result{Failed: map[string]error{}}
	for _, unit := range l.units {
		entry := log.Plugin(unit.Name)
		if removed := l.registrar.RemoveOwner(unit.Name); removed > 0 {
			entry.WithField("commands", removed).Debug("Dropped previous registration")
		}

		if manifest.IsDisabled(unit.Name) {
			res.Disabled = append(res.Disabled, unit.Name)
			entry.Info("Plugin disabled by manifest")
			continue
		}

		if err := register(l.registrar.Scope(unit.Name), unit); err != nil {
			l.registrar.RemoveOwner(unit.Name)
			res.Failed[unit.Name] = err
			entry.WithError(err).Error("Error loading plugin")
			continue
		}

		res.Loaded = append(res.Loaded, unit.Name)
		entry.Info("Loaded plugin")
	}

	l.loaded = res.Loaded
	l.registrar.SetPluginCount(len(res.Loaded))
	l.metrics.PluginsLoaded(len(res.Loaded), len(res.Failed))

	log.Bot().WithField("plugins", len(res.Loaded)).Info("Plugins loaded")
	return res, nil
}

func register(d command.Definer, unit Unit) (err error) {
	if unit.Register == nil {
		return errors.Errorf("plugin %s has no register function", unit.Name)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic: %v", rec)
		}
	}()
	return unit.Register(d)
}
