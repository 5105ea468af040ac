package sqlstore

import "github.com/goliatone/go-session/core"

var (
	_ core.ActivitySink   = (*ActivityStore)(nil)
	_ core.ActivityReader = (*ActivityStore)(nil)
	_ core.ActivityPruner = (*ActivityStore)(nil)
	_ ActivityRepository  = (*CachedActivityReader)(nil)
)
