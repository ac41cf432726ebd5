package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// ModuleName is the name of this module
const ModuleName = "eventbus"

// ServiceName is the name of the service provided by this module
const ServiceName = "eventbus.provider"

// EventBusModule represents the event bus module
type EventBusModule struct {
	name    string
	config  *EventBusConfig
	logger  modular.Logger
	bus     *EventBus
	subject modular.Subject
	mutex   sync.RWMutex
}

// NewModule creates a new instance of the event bus module
func NewModule() modular.Module {
	return &EventBusModule{
		name: ModuleName,
	}
}

// Name returns the name of the module
func (m *EventBusModule) Name() string {
	return m.name
}

// RegisterConfig registers the module's configuration structure
func (m *EventBusModule) RegisterConfig(app modular.Application) error {
	// Register the configuration with default values
	defaultConfig := &EventBusConfig{
		MaxHistory: DefaultMaxHistory,
	}

	app.RegisterConfigSection(m.Name(), modular.NewStdConfigProvider(defaultConfig))
	return nil
}

// Init initializes the module
func (m *EventBusModule) Init(app modular.Application) error {
	// Retrieve the registered config section for access
	cfg, err := app.GetConfigSection(m.name)
	if err != nil {
		return fmt.Errorf("failed to get config section '%s': %w", m.name, err)
	}

	m.config = cfg.GetConfig().(*EventBusConfig)
	m.logger = app.Logger()

	m.bus = New(m.config)
	m.bus.SetModule(m)

	m.logger.Info("Event bus module initialized", "maxHistory", m.config.MaxHistory)
	return nil
}

// Start performs startup logic for the module
func (m *EventBusModule) Start(ctx context.Context) error {
	m.logger.Info("Event bus started")

	m.emitOperationalEvent(ctx, EventTypeConfigLoaded, map[string]interface{}{
		"maxHistory": m.config.MaxHistory,
	})
	return nil
}

// Stop performs shutdown logic for the module
func (m *EventBusModule) Stop(ctx context.Context) error {
	m.logger.Info("Event bus stopped")
	return nil
}

// Dependencies returns the names of modules this module depends on
func (m *EventBusModule) Dependencies() []string {
	return nil
}

// ProvidesServices declares services provided by this module
func (m *EventBusModule) ProvidesServices() []modular.ServiceProvider {
	return []modular.ServiceProvider{
		{
			Name:        ServiceName,
			Description: "Event bus for in-process event dispatch with bounded history",
			Instance:    m,
		},
	}
}

// RequiresServices declares services required by this module
func (m *EventBusModule) RequiresServices() []modular.ServiceDependency {
	return nil
}

// Constructor provides a dependency injection constructor for the module
func (m *EventBusModule) Constructor() modular.ModuleConstructor {
	return func(app modular.Application, services map[string]any) (modular.Module, error) {
		return m, nil
	}
}

// RegisterObservers implements the ObservableModule interface to receive the
// subject used for operational event emission.
func (m *EventBusModule) RegisterObservers(subject modular.Subject) error {
	m.mutex.Lock()
	m.subject = subject
	m.mutex.Unlock()
	return nil
}

// EmitEvent allows the module to emit its own operational events.
func (m *EventBusModule) EmitEvent(ctx context.Context, event cloudevents.Event) error {
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
func (m *EventBusModule) GetRegisteredEventTypes() []string {
	return []string{
		EventTypeEventDispatched,
		EventTypeSubscriptionCreated,
		EventTypeSubscriptionRemoved,
		EventTypeHistoryCleared,
		EventTypeConfigLoaded,
	}
}

// emitOperationalEvent emits a CloudEvent about bus activity. Emission is
// synchronous when the context requests it (test capture), otherwise it runs
// in the background so bus operations never block on observers.
func (m *EventBusModule) emitOperationalEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	m.mutex.RLock()
	subject := m.subject
	m.mutex.RUnlock()
	if subject == nil {
		return // No subject available, skip event emission
	}

	event := modular.NewCloudEvent(eventType, "eventbus-service", data, nil)

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

// emitEvent is the engine-side emission hook.
func (b *EventBus) emitEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if b.module != nil {
		b.module.emitOperationalEvent(ctx, eventType, data)
	}
}

// Dispatch publishes an event through the bus and returns its record.
func (m *EventBusModule) Dispatch(ctx context.Context, name string, payload interface{}) EventRecord {
	return m.bus.Dispatch(ctx, name, payload)
}

// DispatchFrom publishes an event with an explicit source.
func (m *EventBusModule) DispatchFrom(ctx context.Context, name string, payload interface{}, source string) EventRecord {
	return m.bus.DispatchFrom(ctx, name, payload, source)
}

// Subscribe registers a handler for an event name on the bus.
func (m *EventBusModule) Subscribe(ctx context.Context, name string, handler Handler) (*Subscription, error) {
	return m.bus.Subscribe(ctx, name, handler)
}

// SubscribeFunc registers a handler function under a generated id.
func (m *EventBusModule) SubscribeFunc(ctx context.Context, name string, fn func(ctx context.Context, record EventRecord) error) (*Subscription, error) {
	return m.bus.SubscribeFunc(ctx, name, fn)
}

// GetHistory returns the retained dispatch history, oldest first.
func (m *EventBusModule) GetHistory() []EventRecord {
	return m.bus.GetHistory()
}

// ClearHistory discards the retained dispatch history.
func (m *EventBusModule) ClearHistory() {
	m.bus.ClearHistory()
}

// SetMaxHistory updates the history bound.
func (m *EventBusModule) SetMaxHistory(n int) {
	m.bus.SetMaxHistory(n)
}

// MaxHistory returns the current history bound.
func (m *EventBusModule) MaxHistory() int {
	return m.bus.MaxHistory()
}

// EventNames returns the event names with at least one subscriber.
func (m *EventBusModule) EventNames() []string {
	return m.bus.EventNames()
}

// SubscriberCount returns the number of handlers registered under name.
func (m *EventBusModule) SubscriberCount(name string) int {
	return m.bus.SubscriberCount(name)
}
