package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/GoCodeAlone/modular"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cucumber/godog"
)

// EventBus BDD Test Context
type EventBusBDDTestContext struct {
	app           modular.Application
	module        *EventBusModule
	service       *EventBusModule
	lastError     error
	received      []EventRecord
	subscription  *Subscription
	eventObserver *busEventObserver
	mutex         sync.Mutex
}

// busEventObserver captures emitted CloudEvents for testing
type busEventObserver struct {
	events []cloudevents.Event
	id     string
	mu     *sync.Mutex
}

func newBusEventObserver() *busEventObserver {
	return &busEventObserver{
		id: "test-observer-eventbus",
		mu: &sync.Mutex{},
	}
}

func (o *busEventObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	return nil
}

func (o *busEventObserver) ObserverID() string {
	return o.id
}

func (o *busEventObserver) GetEvents() []cloudevents.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	// Return a copy to avoid race with concurrent appends
	out := make([]cloudevents.Event, len(o.events))
	copy(out, o.events)
	return out
}

func (ctx *EventBusBDDTestContext) resetContext() {
	ctx.app = nil
	ctx.module = nil
	ctx.service = nil
	ctx.lastError = nil
	ctx.received = nil
	ctx.subscription = nil
	ctx.eventObserver = newBusEventObserver()
}

func (ctx *EventBusBDDTestContext) iHaveAModularApplicationWithEventbusModuleConfigured() error {
	ctx.resetContext()

	logger := &busBDDLogger{}

	// Save and clear ConfigFeeders to prevent environment interference during tests
	originalFeeders := modular.ConfigFeeders
	modular.ConfigFeeders = []modular.Feeder{}
	defer func() {
		modular.ConfigFeeders = originalFeeders
	}()

	busConfig := &EventBusConfig{
		MaxHistory: DefaultMaxHistory,
	}
	busConfigProvider := modular.NewStdConfigProvider(busConfig)

	// Create app with empty main config
	mainConfigProvider := modular.NewStdConfigProvider(struct{}{})
	ctx.app = modular.NewObservableApplication(mainConfigProvider, logger)

	ctx.module = NewModule().(*EventBusModule)

	// Register the eventbus config section first
	ctx.app.RegisterConfigSection("eventbus", busConfigProvider)
	ctx.app.RegisterModule(ctx.module)

	if err := ctx.app.Init(); err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	if err := ctx.app.Start(); err != nil {
		return fmt.Errorf("failed to start app: %v", err)
	}

	// Wire the module's events to our capturing observer.
	if err := ctx.module.RegisterObservers(ctx.app.(modular.Subject)); err != nil {
		return fmt.Errorf("failed to register module observers: %v", err)
	}
	if err := ctx.app.(modular.Subject).RegisterObserver(ctx.eventObserver); err != nil {
		return fmt.Errorf("failed to register event observer: %v", err)
	}

	if err := ctx.app.GetService(ServiceName, &ctx.service); err != nil {
		return fmt.Errorf("failed to get eventbus service: %v", err)
	}
	return nil
}

func (ctx *EventBusBDDTestContext) iSubscribeToEvents(name string) error {
	sub, err := ctx.service.SubscribeFunc(context.Background(), name, func(_ context.Context, record EventRecord) error {
		ctx.mutex.Lock()
		ctx.received = append(ctx.received, record)
		ctx.mutex.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %v", err)
	}
	ctx.subscription = sub
	return nil
}

func (ctx *EventBusBDDTestContext) iSubscribeToAllEvents() error {
	return ctx.iSubscribeToEvents(Wildcard)
}

func (ctx *EventBusBDDTestContext) aFailingHandlerIsSubscribedToEvents(name string) error {
	_, err := ctx.service.SubscribeFunc(context.Background(), name, func(_ context.Context, _ EventRecord) error {
		return errors.New("handler failed")
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe failing handler: %v", err)
	}
	return nil
}

func (ctx *EventBusBDDTestContext) iDispatchAnEvent(name string) error {
	ctx.service.Dispatch(context.Background(), name, map[string]interface{}{"demo": true})
	return nil
}

func (ctx *EventBusBDDTestContext) iUnsubscribe() error {
	if ctx.subscription == nil {
		return errors.New("no subscription to cancel")
	}
	ctx.subscription.Unsubscribe()
	return nil
}

func (ctx *EventBusBDDTestContext) iSetTheHistoryLimitTo(limit int) error {
	ctx.service.SetMaxHistory(limit)
	return nil
}

func (ctx *EventBusBDDTestContext) iClearTheEventHistory() error {
	ctx.service.ClearHistory()
	return nil
}

func (ctx *EventBusBDDTestContext) theSubscriberShouldReceiveEvents(count int) error {
	ctx.mutex.Lock()
	got := len(ctx.received)
	ctx.mutex.Unlock()

	if got != count {
		return fmt.Errorf("expected %d received events, got %d", count, got)
	}
	return nil
}

func (ctx *EventBusBDDTestContext) theEventHistoryShouldContainEvents(count int) error {
	history := ctx.service.GetHistory()
	if len(history) != count {
		return fmt.Errorf("expected %d history records, got %d", count, len(history))
	}
	return nil
}

func (ctx *EventBusBDDTestContext) theOldestRecordedEventShouldBe(name string) error {
	history := ctx.service.GetHistory()
	if len(history) == 0 {
		return errors.New("history is empty")
	}
	if history[0].Name != name {
		return fmt.Errorf("expected oldest event %q, got %q", name, history[0].Name)
	}
	return nil
}

func (ctx *EventBusBDDTestContext) anEventDispatchedNotificationShouldBeEmitted() error {
	return ctx.eventOfTypeShouldBeEmitted(EventTypeEventDispatched)
}

func (ctx *EventBusBDDTestContext) aSubscriptionCreatedNotificationShouldBeEmitted() error {
	return ctx.eventOfTypeShouldBeEmitted(EventTypeSubscriptionCreated)
}

func (ctx *EventBusBDDTestContext) eventOfTypeShouldBeEmitted(eventType string) error {
	time.Sleep(100 * time.Millisecond) // Give time for async event emission

	events := ctx.eventObserver.GetEvents()
	for _, event := range events {
		if event.Type() == eventType {
			return nil
		}
	}

	eventTypes := make([]string, len(events))
	for i, event := range events {
		eventTypes[i] = event.Type()
	}

	return fmt.Errorf("%s event not found. Captured events: %v", eventType, eventTypes)
}

// Test runner function
func TestEventBusModuleBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			testCtx := &EventBusBDDTestContext{}

			// Background
			ctx.Step(`^I have a modular application with eventbus module configured$`, testCtx.iHaveAModularApplicationWithEventbusModuleConfigured)

			// Subscription steps
			ctx.Step(`^I subscribe to "([^"]*)" events$`, testCtx.iSubscribeToEvents)
			ctx.Step(`^I subscribe to all events$`, testCtx.iSubscribeToAllEvents)
			ctx.Step(`^a failing handler is subscribed to "([^"]*)" events$`, testCtx.aFailingHandlerIsSubscribedToEvents)
			ctx.Step(`^I unsubscribe$`, testCtx.iUnsubscribe)

			// Dispatch steps
			ctx.Step(`^I dispatch a "([^"]*)" event$`, testCtx.iDispatchAnEvent)
			ctx.Step(`^the subscriber should receive (\d+) events?$`, testCtx.theSubscriberShouldReceiveEvents)

			// History steps
			ctx.Step(`^I set the history limit to (\d+)$`, testCtx.iSetTheHistoryLimitTo)
			ctx.Step(`^I clear the event history$`, testCtx.iClearTheEventHistory)
			ctx.Step(`^the event history should contain (\d+) events?$`, testCtx.theEventHistoryShouldContainEvents)
			ctx.Step(`^the oldest recorded event should be "([^"]*)"$`, testCtx.theOldestRecordedEventShouldBe)

			// Event steps
			ctx.Step(`^an event dispatched notification should be emitted$`, testCtx.anEventDispatchedNotificationShouldBeEmitted)
			ctx.Step(`^a subscription created notification should be emitted$`, testCtx.aSubscriptionCreatedNotificationShouldBeEmitted)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// Test logger for BDD tests
type busBDDLogger struct{}

func (l *busBDDLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *busBDDLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *busBDDLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (l *busBDDLogger) Error(msg string, keysAndValues ...interface{}) {}
