// Package registry maps node kinds to the dispatchers that deliver
// them and to the JSON Schemas describing their metadata.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/hookline/hookline/pkg/dispatch"
	"github.com/hookline/hookline/pkg/models"
)

type Registry struct {
	logger      *slog.Logger
	dispatchers map[models.NodeKind]dispatch.Dispatcher
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger.With("module", "registry"),
		dispatchers: make(map[models.NodeKind]dispatch.Dispatcher),
	}
}

// RegisterDispatcher binds a dispatcher to its node kind. The
// dispatcher is wrapped so a panic inside it cannot escape a run.
func (r *Registry) RegisterDispatcher(dispatcher dispatch.Dispatcher) {
	r.dispatchers[dispatcher.Kind()] = dispatch.Safe(dispatcher)

	r.logger.Debug("Registered dispatcher", "kind", dispatcher.Kind())
}

// DispatcherFor returns the dispatcher serving a node kind.
func (r *Registry) DispatcherFor(kind models.NodeKind) (dispatch.Dispatcher, error) {
	dispatcher, ok := r.dispatchers[kind]
	if !ok {
		return nil, fmt.Errorf("no dispatcher registered for node kind %q", kind)
	}

	return dispatcher, nil
}

// Kinds lists the registered action node kinds.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.dispatchers))
	for kind := range r.dispatchers {
		kinds = append(kinds, kind)
	}

	return kinds
}

// HealthCheck verifies every dispatchable node kind has a schema and
// every schema'd action kind has a dispatcher.
func (r *Registry) HealthCheck() error {
	for kind := range r.dispatchers {
		if _, ok := metadataSchemas[kind]; !ok {
			return fmt.Errorf("node kind %q has a dispatcher but no metadata schema", kind)
		}
	}

	return nil
}
