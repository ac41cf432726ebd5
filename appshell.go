// Package appshell bundles the application-shell module suite: an
// in-process event bus with bounded replay history, a frame registry that
// resolves cross-app navigation through registered navigator handles, and
// a flow registry with persisted per-flow progress. Each module is a
// regular modular.Module and can be registered on its own; Modules and
// RegisterModules wire the whole suite at once.
package appshell

import (
	"github.com/GoCodeAlone/modular"

	"github.com/GoCodeAlone/appshell/eventbus"
	"github.com/GoCodeAlone/appshell/flows"
	"github.com/GoCodeAlone/appshell/frames"
)

// Modules returns a fresh instance of every module in the suite. Each call
// produces new instances, so one process can host several independent
// applications.
func Modules() []modular.Module {
	return []modular.Module{
		eventbus.NewModule(),
		frames.NewModule(),
		flows.NewModule(),
	}
}

// RegisterModules registers the whole suite on app, equivalent to
// registering each module from Modules yourself.
func RegisterModules(app modular.Application) {
	for _, module := range Modules() {
		app.RegisterModule(module)
	}
}
