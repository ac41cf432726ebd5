package frames

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// ModuleName is the name of this module
const ModuleName = "frames"

// ServiceName is the name of the service provided by this module
const ServiceName = "frames.registry"

// FramesModule makes a Registry available as an application service and
// emits observer events for registry activity. The module carries no
// configuration; everything it manages is registered at runtime.
type FramesModule struct {
	name     string
	logger   modular.Logger
	registry *Registry
	subject  modular.Subject
	mutex    sync.RWMutex
}

// NewModule creates a new instance of the frames module
func NewModule() modular.Module {
	return &FramesModule{
		name:     ModuleName,
		registry: NewRegistry(),
	}
}

// Name returns the name of the module
func (m *FramesModule) Name() string {
	return m.name
}

// Init initializes the module
func (m *FramesModule) Init(app modular.Application) error {
	m.logger = app.Logger()
	m.registry.SetModule(m)
	m.logger.Info("Frame registry initialized")
	return nil
}

// Start performs startup logic for the module
func (m *FramesModule) Start(ctx context.Context) error {
	m.logger.Info("Starting frames module")
	return nil
}

// Stop performs shutdown logic for the module
func (m *FramesModule) Stop(ctx context.Context) error {
	m.logger.Info("Stopping frames module", "apps", m.registry.AppCount())
	return nil
}

// Dependencies returns the names of modules this module depends on
func (m *FramesModule) Dependencies() []string {
	return nil
}

// ProvidesServices declares services provided by this module
func (m *FramesModule) ProvidesServices() []modular.ServiceProvider {
	return []modular.ServiceProvider{
		{
			Name:        ServiceName,
			Description: "Frame registry for app frames, navigator handles, and navigation",
			Instance:    m.registry,
		},
	}
}

// RequiresServices declares services required by this module
func (m *FramesModule) RequiresServices() []modular.ServiceDependency {
	return nil
}

// Constructor provides a dependency injection constructor for the module
func (m *FramesModule) Constructor() modular.ModuleConstructor {
	return func(app modular.Application, services map[string]any) (modular.Module, error) {
		return m, nil
	}
}

// Registry returns the registry this module manages.
func (m *FramesModule) Registry() *Registry {
	return m.registry
}

// RegisterObservers implements the ObservableModule interface to receive the
// subject used for operational event emission.
func (m *FramesModule) RegisterObservers(subject modular.Subject) error {
	m.mutex.Lock()
	m.subject = subject
	m.mutex.Unlock()
	return nil
}

// EmitEvent allows the module to emit its own operational events.
func (m *FramesModule) EmitEvent(ctx context.Context, event cloudevents.Event) error {
	m.mutex.RLock()
	subject := m.subject
	m.mutex.RUnlock()
	if subject == nil {
		return ErrNoSubjectForEventEmission
	}
	if err := subject.NotifyObservers(ctx, event); err != nil {
		return fmt.Errorf("failed to notify observers: %w", err)
	}
	return nil
}

// GetRegisteredEventTypes implements the ObservableModule interface.
// Returns all event types that this module can emit.
func (m *FramesModule) GetRegisteredEventTypes() []string {
	return []string{
		EventTypeAppRegistered,
		EventTypeAppUnregistered,
		EventTypeNavigatorRegistered,
		EventTypeNavigatorUnregistered,
		EventTypeFrameNavigated,
	}
}

// emitOperationalEvent emits a CloudEvent about registry activity. Emission
// is synchronous when the context requests it (test capture), otherwise it
// runs in the background so registry operations never block on observers.
func (m *FramesModule) emitOperationalEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	m.mutex.RLock()
	subject := m.subject
	m.mutex.RUnlock()
	if subject == nil {
		return // No subject available, skip event emission
	}

	event := modular.NewCloudEvent(eventType, "frames-service", data, nil)

	if modular.IsSynchronousNotification(ctx) {
		if err := m.EmitEvent(ctx, event); err != nil {
			slog.Debug("Failed to emit operational event", "type", eventType, "error", err)
		}
		return
	}
	go func() {
		if err := m.EmitEvent(ctx, event); err != nil {
			slog.Debug("Failed to emit operational event", "type", eventType, "error", err)
		}
	}()
}
