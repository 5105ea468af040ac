package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

type serviceBuilder struct {
	runtimeConfig        Config
	logger               Logger
	loggerProvider       LoggerProvider
	metricsRecorder      MetricsRecorder
	errorMapper          ErrorMapper
	configProvider       ConfigProvider
	optionsResolver      OptionsResolver
	transport            Transport
	transportFactory     TransportFactory
	authAPI              AuthAPI
	authAPIFactory       AuthAPIFactory
	unauthorizedDetector UnauthorizedDetector
	activitySink         ActivitySink
	routeTable           *RouteTable
	clock                Clock
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

// WithTransport sets the transport used for protected calls and renewals.
func WithTransport(transport Transport) Option {
	return func(b *serviceBuilder) {
		b.transport = transport
	}
}

// WithTransportFactory builds the transport once configuration is resolved.
// WithTransport takes precedence.
func WithTransportFactory(factory TransportFactory) Option {
	return func(b *serviceBuilder) {
		b.transportFactory = factory
	}
}

// WithAuthAPI sets a prebuilt AuthAPI. It takes precedence over WithAuthAPIFactory.
func WithAuthAPI(api AuthAPI) Option {
	return func(b *serviceBuilder) {
		b.authAPI = api
	}
}

func WithAuthAPIFactory(factory AuthAPIFactory) Option {
	return func(b *serviceBuilder) {
		b.authAPIFactory = factory
	}
}

func WithUnauthorizedDetector(detector UnauthorizedDetector) Option {
	return func(b *serviceBuilder) {
		b.unauthorizedDetector = detector
	}
}

func WithActivitySink(sink ActivitySink) Option {
	return func(b *serviceBuilder) {
		b.activitySink = sink
	}
}

func WithRouteTable(table *RouteTable) Option {
	return func(b *serviceBuilder) {
		b.routeTable = table
	}
}

func WithClock(clock Clock) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("session", nil, nil)
	return serviceBuilder{
		runtimeConfig:        runtime,
		loggerProvider:       loggerProvider,
		logger:               logger,
		metricsRecorder:      NopMetricsRecorder{},
		errorMapper:          defaultErrorMapper,
		configProvider:       NewCfgxConfigProvider(nil),
		optionsResolver:      GoOptionsResolver{},
		unauthorizedDetector: DefaultUnauthorizedDetector,
		activitySink:         NopActivitySink{},
		clock:                defaultClock,
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return sessionErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader returns a RawConfigLoader serving a fixed map, handy for
// embedding hosts that already parsed their configuration.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded config < runtime config. Zero
// values in the upper layers never override a lower layer.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString := func(target map[string]any, key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	putDuration := func(target map[string]any, key string, value time.Duration) {
		if includeZero || value != 0 {
			target[key] = value
		}
	}

	putString(layer, "service_name", cfg.ServiceName)
	putString(layer, "base_url", cfg.BaseURL)

	renewal := map[string]any{}
	putDuration(renewal, "timeout", cfg.Renewal.Timeout)
	if len(renewal) > 0 {
		layer["renewal"] = renewal
	}

	endpoints := map[string]any{}
	putString(endpoints, "authenticate", cfg.Endpoints.Authenticate)
	putString(endpoints, "renew", cfg.Endpoints.Renew)
	putString(endpoints, "terminate", cfg.Endpoints.Terminate)
	putString(endpoints, "identity", cfg.Endpoints.Identity)
	if len(endpoints) > 0 {
		layer["endpoints"] = endpoints
	}

	navigation := map[string]any{}
	putString(navigation, "login_path", cfg.Navigation.LoginPath)
	putString(navigation, "forbidden_path", cfg.Navigation.ForbiddenPath)
	putString(navigation, "home_path", cfg.Navigation.HomePath)
	if len(navigation) > 0 {
		layer["navigation"] = navigation
	}

	transport := map[string]any{}
	putDuration(transport, "request_timeout", cfg.Transport.RequestTimeout)
	if includeZero || cfg.Transport.MaxResponseBodyBytes != 0 {
		transport["max_response_body_bytes"] = cfg.Transport.MaxResponseBodyBytes
	}
	if len(transport) > 0 {
		layer["transport"] = transport
	}
	return layer
}
