package flows

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// ModuleName is the name of this module
const ModuleName = "flows"

// ServiceName is the name of the flow registry service provided by this module
const ServiceName = "flows.registry"

// ProgressServiceName is the name of the progress store service provided by this module
const ProgressServiceName = "flows.progress"

// FlowsModule wires a flow Registry and a ProgressStore into the
// application. The configured storage engine only affects progress
// persistence; flow definitions always live in memory.
type FlowsModule struct {
	name     string
	config   *FlowsConfig
	logger   modular.Logger
	registry *Registry
	progress *ProgressStore
	backend  ProgressBackend
	subject  modular.Subject
	mutex    sync.RWMutex
}

// NewModule creates a new instance of the flows module
func NewModule() modular.Module {
	return &FlowsModule{
		name:     ModuleName,
		registry: NewRegistry(),
	}
}

// Name returns the name of the module
func (m *FlowsModule) Name() string {
	return m.name
}

// RegisterConfig registers the module's configuration structure
func (m *FlowsModule) RegisterConfig(app modular.Application) error {
	// Register the configuration with default values
	defaultConfig := &FlowsConfig{
		Engine:    "memory",
		KeyPrefix: DefaultKeyPrefix,
		FilePath:  "",
		RedisURL:  "",
	}

	app.RegisterConfigSection(m.Name(), modular.NewStdConfigProvider(defaultConfig))
	return nil
}

// Init initializes the module
func (m *FlowsModule) Init(app modular.Application) error {
	// Retrieve the registered config section for access
	cfg, err := app.GetConfigSection(m.name)
	if err != nil {
		return err
	}

	m.config = cfg.GetConfig().(*FlowsConfig)
	m.logger = app.Logger()

	// Initialize the appropriate progress backend based on configuration
	switch m.config.Engine {
	case "memory":
		m.backend = NewMemoryBackend()
		m.logger.Info("Initialized memory progress backend")
	case "file":
		m.backend = NewFileBackend(m.config.FilePath, m.logger)
		m.logger.Info("Initialized file progress backend", "path", m.config.FilePath)
	case "redis":
		m.backend = NewRedisBackend(m.config.RedisURL)
		m.logger.Info("Initialized Redis progress backend", "url", m.config.RedisURL)
	default:
		m.backend = NewMemoryBackend()
		m.logger.Warn("Unknown progress engine specified, using memory backend", "specified", m.config.Engine)
	}

	m.progress = NewProgressStore(m.backend, m.config.KeyPrefix, m.logger)
	m.registry.SetModule(m)
	m.progress.SetModule(m)

	m.logger.Info("Flows module initialized")
	return nil
}

// Start connects the progress backend. A backend that cannot connect does
// not fail startup: the store falls back to in-memory-only persistence so
// flow progress keeps working for the life of the process.
func (m *FlowsModule) Start(ctx context.Context) error {
	m.logger.Info("Starting flows module")

	if err := m.backend.Connect(ctx); err != nil {
		m.logger.Warn("Progress backend unavailable, keeping progress in memory only",
			"engine", m.config.Engine, "error", err)
		m.backend = NewMemoryBackend()
		m.progress.SetBackend(m.backend)
		m.emitOperationalEvent(ctx, EventTypeBackendDegraded, map[string]interface{}{
			"engine": m.config.Engine,
			"error":  err.Error(),
		})
		return nil
	}

	m.emitOperationalEvent(ctx, EventTypeBackendConnected, map[string]interface{}{
		"engine": m.config.Engine,
	})
	return nil
}

// Stop performs shutdown logic for the module
func (m *FlowsModule) Stop(ctx context.Context) error {
	m.logger.Info("Stopping flows module", "flows", m.registry.FlowCount())
	return m.backend.Close(ctx)
}

// Dependencies returns the names of modules this module depends on
func (m *FlowsModule) Dependencies() []string {
	return nil
}

// ProvidesServices declares services provided by this module
func (m *FlowsModule) ProvidesServices() []modular.ServiceProvider {
	return []modular.ServiceProvider{
		{
			Name:        ServiceName,
			Description: "Flow registry for multi-step flow definitions",
			Instance:    m.registry,
		},
		{
			Name:        ProgressServiceName,
			Description: "Progress store for per-flow completion state",
			Instance:    m.progress,
		},
	}
}

// RequiresServices declares services required by this module
func (m *FlowsModule) RequiresServices() []modular.ServiceDependency {
	return nil
}

// Constructor provides a dependency injection constructor for the module
func (m *FlowsModule) Constructor() modular.ModuleConstructor {
	return func(app modular.Application, services map[string]any) (modular.Module, error) {
		return m, nil
	}
}

// Registry returns the flow registry this module manages.
func (m *FlowsModule) Registry() *Registry {
	return m.registry
}

// Progress returns the progress store this module manages.
func (m *FlowsModule) Progress() *ProgressStore {
	return m.progress
}

// RegisterObservers implements the ObservableModule interface to receive the
// subject used for operational event emission.
func (m *FlowsModule) RegisterObservers(subject modular.Subject) error {
	m.mutex.Lock()
	m.subject = subject
	m.mutex.Unlock()
	return nil
}

// EmitEvent allows the module to emit its own operational events.
func (m *FlowsModule) EmitEvent(ctx context.Context, event cloudevents.Event) error {
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
func (m *FlowsModule) GetRegisteredEventTypes() []string {
	return []string{
		EventTypeFlowDefined,
		EventTypeFlowRemoved,
		EventTypeStepToggled,
		EventTypeTaskToggled,
		EventTypeProgressReset,
		EventTypePersistFailed,
		EventTypeBackendConnected,
		EventTypeBackendDegraded,
	}
}

// emitOperationalEvent emits a CloudEvent about flow and progress activity.
// Emission is synchronous when the context requests it (test capture),
// otherwise it runs in the background so store operations never block on
// observers.
func (m *FlowsModule) emitOperationalEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	m.mutex.RLock()
	subject := m.subject
	m.mutex.RUnlock()
	if subject == nil {
		return // No subject available, skip event emission
	}

	event := modular.NewCloudEvent(eventType, "flows-service", data, nil)

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
