package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// QueueResolverKey is the resolver key used when session commands are mirrored
// into a go-job queue registry.
const QueueResolverKey = "session.queue"

var errBusNotConfigured = fmt.Errorf("gocommand: bus is not configured")

// ValidateMessage checks that msg carries a non-empty Type() and passes its own
// Validate(), when it has one.
func ValidateMessage(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// Bus pairs a go-command registry with the process-wide dispatcher: every
// handler subscribed through it is registered for resolvers and dispatchable.
type Bus struct {
	registry *command.Registry
}

func NewBus(registry *command.Registry) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry}
}

func (b *Bus) configured() bool {
	return b != nil && b.registry != nil
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

func (b *Bus) AddResolver(key string, resolver command.Resolver) error {
	if !b.configured() {
		return errBusNotConfigured
	}
	return b.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (b *Bus) HasResolver(key string) bool {
	if !b.configured() {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

// MirrorToQueue copies every command registered on the bus into queueRegistry
// at Initialize, so a go-job worker can run session commands by message type.
func (b *Bus) MirrorToQueue(queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.AddResolver(QueueResolverKey, jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) Initialize() error {
	if !b.configured() {
		return errBusNotConfigured
	}
	return b.registry.Initialize()
}

func (b *Bus) register(handler any) error {
	if !b.configured() {
		return errBusNotConfigured
	}
	return b.registry.RegisterCommand(handler)
}

// SubscribeCommand registers cmd on bus and subscribes it to the dispatcher.
// The subscription is removed again when registration fails.
func SubscribeCommand[T any](
	bus *Bus,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if !bus.configured() {
		return nil, errBusNotConfigured
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := bus.register(cmd); err != nil {
		unsubscribe(subscription)
		return nil, err
	}
	return subscription, nil
}

func SubscribeQuery[T any, R any](
	bus *Bus,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if !bus.configured() {
		return nil, errBusNotConfigured
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := bus.register(qry); err != nil {
		unsubscribe(subscription)
		return nil, err
	}
	return subscription, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func unsubscribe(subscription commanddispatcher.Subscription) {
	if subscription != nil {
		subscription.Unsubscribe()
	}
}
