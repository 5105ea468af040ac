package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Transport       = TransportFunc(nil)
	_ Transport       = (*RequestExecutor)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ActivitySink    = NopActivitySink{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = staticRawConfigLoader{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
