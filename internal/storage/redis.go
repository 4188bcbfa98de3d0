package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
)

// ErrNotFound 键不存在时返回，包装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis 包装go-redis客户端，提供候选人档案缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端并验证连通性
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis注册OpenTelemetry钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis %s 失败: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis客户端连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// profileKey 构建候选人档案缓存键
func profileKey(filename string) string {
	return fmt.Sprintf(constants.KeyCandidateProfile, SanitizeFilename(filename))
}

// CacheCandidateProfile 缓存结构化候选人档案
func (r *Redis) CacheCandidateProfile(ctx context.Context, filename string, profile map[string]interface{}, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("序列化候选人档案失败: %w", err)
	}
	if err := r.Client.Set(ctx, profileKey(filename), data, ttl).Err(); err != nil {
		return fmt.Errorf("缓存候选人档案失败: %w", err)
	}
	return nil
}

// GetCandidateProfile 读取缓存的候选人档案，不存在时返回ErrNotFound
func (r *Redis) GetCandidateProfile(ctx context.Context, filename string) (map[string]interface{}, error) {
	data, err := r.Client.Get(ctx, profileKey(filename)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取候选人档案缓存失败: %w", err)
	}

	var profile map[string]interface{}
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("解析候选人档案缓存失败: %w", err)
	}
	return profile, nil
}

// DeleteCandidateProfile 删除缓存的候选人档案
func (r *Redis) DeleteCandidateProfile(ctx context.Context, filename string) error {
	return r.Client.Del(ctx, profileKey(filename)).Err()
}
