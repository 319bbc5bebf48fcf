package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const (
	courseDetailPrefix = "course:detail:"
	DefaultCourseTTL   = time.Hour
)

// CourseCache holds course detail payloads (course plus lessons) keyed by id.
type CourseCache interface {
	Get(ctx context.Context, id uuid.UUID) (*types.Course, bool)
	Set(ctx context.Context, course *types.Course)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

type redisCourseCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewCourseCache returns a redis-backed cache, or a no-op cache when rdb is nil.
// Cache failures are logged and never surface to callers.
func NewCourseCache(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) CourseCache {
	if rdb == nil {
		return nopCourseCache{}
	}
	if ttl <= 0 {
		ttl = DefaultCourseTTL
	}
	return &redisCourseCache{log: log.With("cache", "CourseCache"), rdb: rdb, ttl: ttl}
}

func courseKey(id uuid.UUID) string { return courseDetailPrefix + id.String() }

func (c *redisCourseCache) Get(ctx context.Context, id uuid.UUID) (*types.Course, bool) {
	val, err := c.rdb.Get(ctx, courseKey(id)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("course cache read failed", "course_id", id, "error", err)
		}
		return nil, false
	}
	var course types.Course
	if err := json.Unmarshal([]byte(val), &course); err != nil {
		c.log.Warn("bad course cache payload", "course_id", id, "error", err)
		return nil, false
	}
	return &course, true
}

func (c *redisCourseCache) Set(ctx context.Context, course *types.Course) {
	if course == nil || course.ID == uuid.Nil {
		return
	}
	data, err := json.Marshal(course)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, courseKey(course.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn("course cache write failed", "course_id", course.ID, "error", err)
	}
}

func (c *redisCourseCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			keys = append(keys, courseKey(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("course cache invalidate failed", "keys", len(keys), "error", err)
	}
}

type nopCourseCache struct{}

func (nopCourseCache) Get(context.Context, uuid.UUID) (*types.Course, bool) { return nil, false }
func (nopCourseCache) Set(context.Context, *types.Course)                   {}
func (nopCourseCache) Invalidate(context.Context, ...uuid.UUID)             {}
