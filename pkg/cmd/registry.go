package cmd

import (
	"log/slog"

	"github.com/hookline/hookline/pkg/dispatch/email"
	"github.com/hookline/hookline/pkg/dispatch/telegram"
	"github.com/hookline/hookline/pkg/registry"
)

// NewRegistry builds the dispatcher registry with every built-in node
// kind registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDispatcher(email.NewDispatcher(logger))
	reg.RegisterDispatcher(telegram.NewDispatcher(logger))

	return reg
}
