package frames

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockApp struct {
	configSections map[string]modular.ConfigProvider
	logger         modular.Logger
	configProvider modular.ConfigProvider
	modules        []modular.Module
	services       modular.ServiceRegistry
}

func newMockApp() *mockApp {
	return &mockApp{
		configSections: make(map[string]modular.ConfigProvider),
		logger:         &mockLogger{},
		configProvider: &mockConfigProvider{},
		services:       make(modular.ServiceRegistry),
	}
}

func (a *mockApp) RegisterConfigSection(name string, provider modular.ConfigProvider) {
	a.configSections[name] = provider
}

func (a *mockApp) GetConfigSection(name string) (modular.ConfigProvider, error) {
	return a.configSections[name], nil
}

func (a *mockApp) ConfigSections() map[string]modular.ConfigProvider {
	return a.configSections
}

func (a *mockApp) Logger() modular.Logger {
	return a.logger
}

func (a *mockApp) SetLogger(logger modular.Logger) {
	a.logger = logger
}

func (a *mockApp) ConfigProvider() modular.ConfigProvider {
	return a.configProvider
}

func (a *mockApp) SvcRegistry() modular.ServiceRegistry {
	return a.services
}

func (a *mockApp) RegisterModule(module modular.Module) {
	a.modules = append(a.modules, module)
}

func (a *mockApp) RegisterService(name string, service any) error {
	a.services[name] = service
	return nil
}

func (a *mockApp) GetService(name string, target any) error {
	return nil
}

func (a *mockApp) Init() error {
	return nil
}

func (a *mockApp) Start() error {
	return nil
}

func (a *mockApp) Stop() error {
	return nil
}

func (a *mockApp) Run() error {
	return nil
}

func (a *mockApp) IsVerboseConfig() bool {
	return false
}

func (a *mockApp) SetVerboseConfig(verbose bool) {
	// No-op in mock
}

func (a *mockApp) GetServicesByModule(moduleName string) []string {
	return nil
}

func (a *mockApp) GetServiceEntry(serviceName string) (*modular.ServiceRegistryEntry, bool) {
	return nil, false
}

func (a *mockApp) GetServicesByInterface(interfaceType reflect.Type) []*modular.ServiceRegistryEntry {
	return nil
}

func (a *mockApp) StartTime() time.Time {
	return time.Time{}
}

func (a *mockApp) GetModule(name string) modular.Module {
	return nil
}

func (a *mockApp) GetAllModules() map[string]modular.Module {
	return nil
}

func (a *mockApp) OnConfigLoaded(hook func(modular.Application) error) {
	// No-op in mock
}

type mockLogger struct{}

func (l *mockLogger) Debug(msg string, args ...interface{}) {}
func (l *mockLogger) Info(msg string, args ...interface{})  {}
func (l *mockLogger) Warn(msg string, args ...interface{})  {}
func (l *mockLogger) Error(msg string, args ...interface{}) {}

type mockConfigProvider struct{}

func (m *mockConfigProvider) GetConfig() interface{} {
	return nil
}

// mockSubject captures the CloudEvents a module emits.
type mockSubject struct {
	events []cloudevents.Event
}

func (s *mockSubject) RegisterObserver(observer modular.Observer, eventTypes ...string) error {
	return nil
}

func (s *mockSubject) UnregisterObserver(observer modular.Observer) error {
	return nil
}

func (s *mockSubject) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	s.events = append(s.events, event)
	return nil
}

func (s *mockSubject) GetObservers() []modular.ObserverInfo {
	return nil
}

func (s *mockSubject) types() []string {
	out := make([]string, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Type())
	}
	return out
}

func TestFramesModule(t *testing.T) {
	module := NewModule()
	assert.Equal(t, "frames", module.Name())

	app := newMockApp()
	err := module.(*FramesModule).Init(app)
	require.NoError(t, err)

	// Test services provided
	services := module.(*FramesModule).ProvidesServices()
	assert.Len(t, services, 1)
	assert.Equal(t, ServiceName, services[0].Name)
	assert.IsType(t, &Registry{}, services[0].Instance)

	// Test module lifecycle
	ctx := context.Background()
	err = module.(*FramesModule).Start(ctx)
	require.NoError(t, err)

	err = module.(*FramesModule).Stop(ctx)
	require.NoError(t, err)
}

func TestFramesModuleRegistryService(t *testing.T) {
	module := NewModule().(*FramesModule)
	app := newMockApp()
	require.NoError(t, module.Init(app))

	registry := module.Registry()
	require.NotNil(t, registry)

	ctx := context.Background()
	require.NoError(t, registry.RegisterFrames(ctx, "mail", "Mail", demoFrames(), "inbox"))

	frame, err := registry.GetFrame("mail", "inbox")
	require.NoError(t, err)
	assert.Equal(t, "Inbox", frame.Name)
}

func TestFramesModuleEmitsOperationalEvents(t *testing.T) {
	module := NewModule().(*FramesModule)
	app := newMockApp()
	require.NoError(t, module.Init(app))

	subject := &mockSubject{}
	require.NoError(t, module.RegisterObservers(subject))

	// Synchronous notification keeps emission on this goroutine so the
	// captured events can be asserted deterministically.
	ctx := modular.WithSynchronousNotification(context.Background())
	registry := module.Registry()

	require.NoError(t, registry.RegisterFrames(ctx, "mail", "Mail", demoFrames(), "inbox"))
	assert.Contains(t, subject.types(), EventTypeAppRegistered)

	require.NoError(t, registry.RegisterNavigator(ctx, "mail", &stubNavigator{}))
	assert.Contains(t, subject.types(), EventTypeNavigatorRegistered)

	registry.NavigateToFrame(ctx, "mail", "settings")
	assert.Contains(t, subject.types(), EventTypeFrameNavigated)

	registry.UnregisterNavigator(ctx, "mail")
	assert.Contains(t, subject.types(), EventTypeNavigatorUnregistered)

	registry.UnregisterFrames(ctx, "mail")
	assert.Contains(t, subject.types(), EventTypeAppUnregistered)
}

func TestFramesModuleEmitEventWithoutSubject(t *testing.T) {
	module := NewModule().(*FramesModule)

	event := modular.NewCloudEvent(EventTypeAppRegistered, "test", nil, nil)
	err := module.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrNoSubjectForEventEmission)
}
