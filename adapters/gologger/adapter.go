// Package gologger resolves one glog logger for the session core and hands the
// same sink to go-job workers.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-session/core"
)

// DefaultName is the logger name session components resolve under.
const DefaultName = "session"

// Loggers is a resolved glog pair together with its go-job views.
type Loggers struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve picks provider over logger over nop, under DefaultName.
func Resolve(provider glog.LoggerProvider, logger glog.Logger) Loggers {
	resolvedProvider, resolvedLogger := glog.Resolve(DefaultName, provider, logger)
	out := Loggers{Provider: resolvedProvider, Logger: resolvedLogger}
	if resolvedProvider != nil {
		out.JobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	if resolvedLogger != nil {
		out.JobLogger = job.GoLogger(resolvedLogger)
	}
	return out
}

// ServiceOptions installs the pair on core.NewService.
func (l Loggers) ServiceOptions() []core.Option {
	return []core.Option{
		core.WithLoggerProvider(l.Provider),
		core.WithLogger(l.Logger),
	}
}

func ServiceOptions(provider glog.LoggerProvider, logger glog.Logger) []core.Option {
	return Resolve(provider, logger).ServiceOptions()
}

// ForService bridges the loggers a session service resolved into go-job, so
// activity workers log through the same sink as the session core.
func ForService(deps core.ServiceDependencies) (job.LoggerProvider, job.Logger) {
	resolved := Resolve(deps.LoggerProvider, deps.Logger)
	return resolved.JobProvider, resolved.JobLogger
}
