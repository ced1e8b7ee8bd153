package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/classroom-sync-api/pkg/config"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// ClassReportKey is the cache key for a class's grade report.
func ClassReportKey(classID string) string {
	return "class:" + classID + ":report"
}

// ClassResourcesKey is the cache key for the resources visible in a class.
func ClassResourcesKey(classID string) string {
	return "class:" + classID + ":resources"
}

// OwnerResourcesPattern matches every class resource listing of an owner.
func OwnerResourcesPattern(ownerID string) string {
	return "owner:" + ownerID + ":class:*:resources"
}

// OwnerClassResourcesKey scopes ClassResourcesKey to its owner so a new resource
// can invalidate all of the owner's listings at once.
func OwnerClassResourcesKey(ownerID, classID string) string {
	return "owner:" + ownerID + ":" + ClassResourcesKey(classID)
}
