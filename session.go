package session

import (
	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/transport"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type SessionState = core.SessionState
type SessionIdentity = core.SessionIdentity
type Credentials = core.Credentials
type Role = core.Role
type RoleSet = core.RoleSet
type RequestDescriptor = core.RequestDescriptor
type Response = core.Response
type Decision = core.Decision
type RouteRule = core.RouteRule

type Transport = core.Transport
type AuthAPI = core.AuthAPI
type ActivitySink = core.ActivitySink
type ActivityReader = core.ActivityReader

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithTransport            = core.WithTransport
	WithTransportFactory     = core.WithTransportFactory
	WithAuthAPI              = core.WithAuthAPI
	WithAuthAPIFactory       = core.WithAuthAPIFactory
	WithUnauthorizedDetector = core.WithUnauthorizedDetector
	WithActivitySink         = core.WithActivitySink
	WithRouteTable           = core.WithRouteTable
	WithClock                = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds a service without default wiring; a transport and an
// auth API (or factory) must be supplied through options.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// New builds a service talking to the resolved base URL over HTTP, with a
// cookie jar holding the ambient credentials and the bundled HTTP auth client.
// Options override either default.
func New(cfg Config, opts ...Option) (*Service, error) {
	defaults := []Option{
		core.WithTransportFactory(transport.RESTTransportFactory),
		core.WithAuthAPIFactory(transport.AuthClientFactory),
	}
	return core.NewService(cfg, append(defaults, opts...)...)
}
