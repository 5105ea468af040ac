package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-session/core"
)

const activityCacheKeyPrefix = "go-session::activity::v1"

type ActivityRepository interface {
	core.ActivitySink
	core.ActivityReader
	core.ActivityPruner
}

// CachedActivityReader serves activity pages through a go-repository-cache
// service. Every Record through it advances a generation counter that is part
// of the cache key, so pages cached before the write are never served again.
type CachedActivityReader struct {
	base       ActivityRepository
	cache      repositorycache.CacheService
	generation atomic.Uint64
}

func NewCachedActivityReader(
	base ActivityRepository,
	cacheService repositorycache.CacheService,
) (*CachedActivityReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base activity repository is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: activity cache service is required")
	}
	return &CachedActivityReader{base: base, cache: cacheService}, nil
}

// ActivityCacheKey returns the cache key for a filter at a generation:
// go-session::activity::v1::<generation>::<subject>::<action>::<status>::<from>::<to>::<page>::<per_page>
// with each text segment URL-path escaped. Paging is normalized first so
// equivalent filters share an entry.
func ActivityCacheKey(generation uint64, filter core.ActivityFilter) string {
	page, perPage := normalizePaging(filter.Page, filter.PerPage)
	segments := []string{
		strconv.FormatUint(generation, 10),
		url.PathEscape(strings.TrimSpace(filter.SubjectID)),
		url.PathEscape(strings.TrimSpace(filter.Action)),
		url.PathEscape(strings.TrimSpace(string(filter.Status))),
		timeSegment(filter.From),
		timeSegment(filter.To),
		strconv.Itoa(page),
		strconv.Itoa(perPage),
	}
	return strings.Join(append([]string{activityCacheKeyPrefix}, segments...), "::")
}

func (r *CachedActivityReader) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.ActivityPage{}, fmt.Errorf("sqlstore: cached activity reader is not configured")
	}
	key := ActivityCacheKey(r.generation.Load(), filter)
	page, err := repositorycache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (core.ActivityPage, error) {
		return r.base.List(ctx, filter)
	})
	if err != nil {
		return core.ActivityPage{}, err
	}
	return cloneActivityPage(page), nil
}

func (r *CachedActivityReader) Record(ctx context.Context, entry core.SessionActivity) error {
	if r == nil || r.base == nil {
		return fmt.Errorf("sqlstore: cached activity reader is not configured")
	}
	if err := r.base.Record(ctx, entry); err != nil {
		return err
	}
	r.Invalidate()
	return nil
}

// Prune applies policy on the base repository and drops cached pages when
// anything was removed.
func (r *CachedActivityReader) Prune(ctx context.Context, policy core.ActivityRetentionPolicy) (int, error) {
	if r == nil || r.base == nil {
		return 0, fmt.Errorf("sqlstore: cached activity reader is not configured")
	}
	removed, err := r.base.Prune(ctx, policy)
	if removed > 0 {
		r.Invalidate()
	}
	return removed, err
}

// Invalidate drops every cached page. Call it after writing activity through
// a path other than Record.
func (r *CachedActivityReader) Invalidate() {
	if r == nil {
		return
	}
	r.generation.Add(1)
}

func timeSegment(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatInt(value.UTC().UnixNano(), 10)
}

func cloneActivityPage(page core.ActivityPage) core.ActivityPage {
	cloned := page
	cloned.Items = make([]core.SessionActivity, 0, len(page.Items))
	for _, item := range page.Items {
		item.Metadata = copyAnyMap(item.Metadata)
		cloned.Items = append(cloned.Items, item)
	}
	return cloned
}
