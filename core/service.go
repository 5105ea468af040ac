package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// Service wires the session store, request executor, refresh coordinator and
// route table around one AuthAPI and one Transport.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       Transport
	authAPI         AuthAPI
	activitySink    ActivitySink

	obs         *observer
	store       *SessionStore
	executor    *RequestExecutor
	coordinator *RefreshCoordinator
	routes      *RouteTable
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Transport       Transport
	AuthAPI         AuthAPI
	ActivitySink    ActivitySink
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("session", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("session"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.unauthorizedDetector == nil {
		builder.unauthorizedDetector = DefaultUnauthorizedDetector
	}
	if builder.activitySink == nil {
		builder.activitySink = NopActivitySink{}
	}
	if builder.clock == nil {
		builder.clock = defaultClock
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	if builder.transport == nil && builder.transportFactory != nil {
		builder.transport, err = builder.transportFactory(finalConfig)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, badInputError("core: transport is required"))
	}

	obs := &observer{
		logger:          logger,
		metricsRecorder: builder.metricsRecorder,
		activitySink:    builder.activitySink,
		clock:           builder.clock,
	}
	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		transport:       builder.transport,
		activitySink:    builder.activitySink,
		obs:             obs,
	}

	svc.coordinator = NewRefreshCoordinator(svc.renew, finalConfig.Renewal.Timeout, RefreshHooks{
		OnRejected: svc.onRenewalRejected,
		OnRenewed:  svc.onRenewed,
	})
	svc.coordinator.obs = obs

	svc.executor = NewRequestExecutor(builder.transport, svc.coordinator, builder.unauthorizedDetector, finalConfig.Endpoints)
	svc.executor.obs = obs

	api := builder.authAPI
	if api == nil && builder.authAPIFactory != nil {
		api, err = builder.authAPIFactory(svc.executor, builder.transport, finalConfig)
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
	}
	if api == nil {
		return nil, mapBuildError(builder.errorMapper, badInputError("core: auth api is required"))
	}
	svc.authAPI = api

	svc.store = NewSessionStore(api)
	svc.store.obs = obs

	svc.routes = builder.routeTable
	if svc.routes == nil {
		svc.routes = DefaultRouteTable(finalConfig.Navigation)
	}
	return svc, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Transport:       s.transport,
		AuthAPI:         s.authAPI,
		ActivitySink:    s.activitySink,
	}
}

// Do executes a protected call through the request executor.
func (s *Service) Do(ctx context.Context, req RequestDescriptor) (Response, error) {
	if s == nil {
		return Response{}, internalError("core: service is nil")
	}
	res, err := s.executor.Execute(ctx, req)
	return res, s.mapError(err)
}

func (s *Service) Probe(ctx context.Context) SessionState {
	if s == nil {
		return SessionState{}
	}
	return s.store.Probe(ctx)
}

func (s *Service) Login(ctx context.Context, credentials Credentials) error {
	if s == nil {
		return internalError("core: service is nil")
	}
	return s.mapError(s.store.Login(ctx, credentials))
}

func (s *Service) Logout(ctx context.Context) {
	if s == nil {
		return
	}
	s.store.Logout(ctx)
}

func (s *Service) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	return s.store.State()
}

// Decide guards a view restricted to allowed against the current session.
func (s *Service) Decide(allowed RoleSet) Decision {
	return Decide(s.State(), allowed)
}

// Navigate applies the route table to path for the current session.
func (s *Service) Navigate(path string) Decision {
	if s == nil {
		return Pending()
	}
	return s.routes.Navigate(s.store.State(), path)
}

func (s *Service) Subscribe(listener SessionListener) func() {
	if s == nil {
		return func() {}
	}
	return s.store.Subscribe(listener)
}

func (s *Service) RefreshSnapshot() RefreshState {
	if s == nil {
		return RefreshState{Phase: RefreshIdle}
	}
	return s.coordinator.Snapshot()
}

func (s *Service) Executor() *RequestExecutor {
	if s == nil {
		return nil
	}
	return s.executor
}

func (s *Service) Routes() *RouteTable {
	if s == nil {
		return nil
	}
	return s.routes
}

func (s *Service) renew(ctx context.Context) error {
	if s.authAPI == nil {
		return RenewalRejectedError(internalError("core: auth api is required"), RenewalReasonRejected)
	}
	return s.authAPI.Renew(ctx)
}

func (s *Service) onRenewalRejected(ctx context.Context, err error) {
	reason := renewalReason(err)
	previous := s.store.State()
	s.store.Clear(ctx, "renewal_"+reason)
	subjectID := ""
	if previous.Identity != nil {
		subjectID = previous.Identity.SubjectID
	}
	s.obs.recordActivity(ctx, SessionActivity{
		SubjectID:   subjectID,
		Action:      ActivityRenewalRejected,
		Description: "session renewal rejected",
		Status:      ActivityStatusError,
		Metadata:    map[string]any{"reason": reason},
	})
}

func (s *Service) onRenewed(ctx context.Context) {
	state := s.store.State()
	subjectID := ""
	if state.Identity != nil {
		subjectID = state.Identity.SubjectID
	}
	s.obs.recordActivity(ctx, SessionActivity{
		SubjectID:   subjectID,
		Action:      ActivityRenewalSucceeded,
		Description: "session renewed",
	})
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
