package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Transport issues one call against the protected API surface. It attaches
// ambient credentials and returns a response for every status it receives; an
// error means no response was obtained.
type Transport interface {
	Do(ctx context.Context, req RequestDescriptor) (Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req RequestDescriptor) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req RequestDescriptor) (Response, error) {
	return f(ctx, req)
}

// AuthAPI is the set of logical remote auth operations the core consumes.
type AuthAPI interface {
	Authenticate(ctx context.Context, credentials Credentials) error
	Renew(ctx context.Context) error
	Identity(ctx context.Context) (SessionIdentity, error)
	Terminate(ctx context.Context) error
}

// TransportFactory builds the transport from the resolved configuration.
type TransportFactory func(cfg Config) (Transport, error)

// AuthAPIFactory builds an AuthAPI once the executor exists. calls routes
// through the executor; renewals bypasses it so a renewal can never recurse.
type AuthAPIFactory func(calls Transport, renewals Transport, cfg Config) (AuthAPI, error)

// UnauthorizedDetector decides whether a well-formed response means the
// ambient credential was rejected.
type UnauthorizedDetector func(res Response) bool

func DefaultUnauthorizedDetector(res Response) bool {
	return res.StatusCode == http.StatusUnauthorized
}

type RenewFunc func(ctx context.Context) error

// SessionListener observes session state changes. Listeners run synchronously
// after the store lock is released.
type SessionListener func(state SessionState)

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type ActivityStatus string

const (
	ActivityStatusOK    ActivityStatus = "ok"
	ActivityStatusError ActivityStatus = "error"
)

const (
	ActivityLoginSucceeded   = "session.login.succeeded"
	ActivityLoginFailed      = "session.login.failed"
	ActivityLogout           = "session.logout"
	ActivityRenewalSucceeded = "session.renewal.succeeded"
	ActivityRenewalRejected  = "session.renewal.rejected"
	ActivitySessionCleared   = "session.cleared"
)

type SessionActivity struct {
	ID          string
	SubjectID   string
	Action      string
	Description string
	Status      ActivityStatus
	Metadata    map[string]any
	CreatedAt   time.Time
}

// ActivitySink records session activity. Recording is best-effort: the core
// logs sink failures and never surfaces them to callers.
type ActivitySink interface {
	Record(ctx context.Context, entry SessionActivity) error
}

type ActivityFilter struct {
	SubjectID string
	Action    string
	Status    ActivityStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

type ActivityPage struct {
	Items   []SessionActivity
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type ActivityReader interface {
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// ActivityRetentionPolicy bounds stored activity by age and by row count.
// Zero values disable the corresponding bound.
type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type ActivityPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (int, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}
