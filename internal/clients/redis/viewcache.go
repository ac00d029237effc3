package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/studyrail/studyrail-backend/internal/platform/logger"
)

// ViewCache caches rendered per-(lesson, user) gated views. Section edits
// bump a per-lesson epoch so every cached view of that lesson goes stale at
// once; progress writes only invalidate the single (lesson, user) entry.
type ViewCache interface {
	GetView(ctx context.Context, lessonID, userID uuid.UUID) ([]byte, bool)
	SetView(ctx context.Context, lessonID, userID uuid.UUID, payload []byte)
	InvalidateView(ctx context.Context, lessonID, userID uuid.UUID)
	BumpLessonEpoch(ctx context.Context, lessonID uuid.UUID)
	Close() error
}

type viewCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewViewCache(log *logger.Logger, ttl time.Duration) (ViewCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	return &viewCache{
		log: log.With("client", "RedisViewCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *viewCache) GetView(ctx context.Context, lessonID, userID uuid.UUID) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	key, err := c.viewKey(ctx, lessonID, userID)
	if err != nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (c *viewCache) SetView(ctx context.Context, lessonID, userID uuid.UUID, payload []byte) {
	if c == nil || c.rdb == nil || len(payload) == 0 {
		return
	}
	key, err := c.viewKey(ctx, lessonID, userID)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Debug("view cache set failed", "error", err, "lesson_id", lessonID)
	}
}

func (c *viewCache) InvalidateView(ctx context.Context, lessonID, userID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	key, err := c.viewKey(ctx, lessonID, userID)
	if err != nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Debug("view cache invalidate failed", "error", err, "lesson_id", lessonID)
	}
}

func (c *viewCache) BumpLessonEpoch(ctx context.Context, lessonID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.epochKey(lessonID)).Err(); err != nil {
		c.log.Debug("lesson epoch bump failed", "error", err, "lesson_id", lessonID)
	}
}

func (c *viewCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *viewCache) epochKey(lessonID uuid.UUID) string {
	return fmt.Sprintf("lesson:%s:epoch", lessonID)
}

func (c *viewCache) viewKey(ctx context.Context, lessonID, userID uuid.UUID) (string, error) {
	epoch, err := c.rdb.Get(ctx, c.epochKey(lessonID)).Int64()
	if err != nil && err != goredis.Nil {
		return "", err
	}
	return fmt.Sprintf("gating:%s:%d:%s", lessonID, epoch, userID), nil
}
