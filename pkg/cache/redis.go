package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/noticeboard-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// NewRedis returns a configured Redis client after confirming the server answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return client, nil
}

// NoticePDFKey is the cache key of a rendered notice revision.
func NoticePDFKey(noticeID int64, updatedAt time.Time) string {
	return fmt.Sprintf("notice:pdf:%d:%d", noticeID, updatedAt.Unix())
}

// NoticePDFPattern matches every cached revision of a notice.
func NoticePDFPattern(noticeID int64) string {
	return fmt.Sprintf("notice:pdf:%d:*", noticeID)
}
