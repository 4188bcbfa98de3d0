package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"cv-agent-go/internal/tracing"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis List 作为持久化存储。
// 每个会话一个key，消息以JSON字符串追加，超出maxEntries时用LTrim丢弃最旧的。
type RedisChatMemory struct {
	redisClient *redis.Client
	keyPrefix   string        // 键前缀，避免与其他业务冲突
	ttl         time.Duration // 可选：聊天记录过期时间，0表示不过期
	maxEntries  int           // 每个会话保留的最大消息条数，0表示不限制
}

// NewRedisChatMemory 创建一个新的 RedisChatMemory 实例。
// redisClient 必须是已配置好的 go-redis 客户端。
func NewRedisChatMemory(redisClient *redis.Client, keyPrefix string, ttl time.Duration, maxEntries int) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis客户端不能为nil")
	}
	if keyPrefix == "" {
		keyPrefix = "chatmemory:"
	}

	// 启动时确认连通性，避免首次请求才暴露配置问题
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis失败: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		maxEntries:  maxEntries,
	}, nil
}

// buildKey 为给定的 sessionId 构建 Redis 键。
func (rcm *RedisChatMemory) buildKey(sessionId string) string {
	return rcm.keyPrefix + sessionId
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(sessionId string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	serializedMessages, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil // Key 不存在，返回空历史
	}
	if err != nil {
		// 会话ID来自客户端，长度不可控，错误信息里截断后的键
		return nil, fmt.Errorf("从redis获取会话历史失败 (key=%s): %w", tracing.SafeRedisKey(key), err)
	}

	messages := make([]*schema.Message, 0, len(serializedMessages))
	for _, sm := range serializedMessages {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话 %s 的消息失败: %w", sessionId, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(sessionId string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("会话 %s 不能添加nil消息", sessionId)
	}
	return rcm.AddMessages(sessionId, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessages(sessionId string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	// 先序列化所有消息，保证进入pipeline的数据都是合法的
	serialized := make([]interface{}, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			return fmt.Errorf("会话 %s 批量添加中包含nil消息", sessionId)
		}
		data, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("序列化会话 %s 的消息失败: %w", sessionId, err)
		}
		serialized = append(serialized, data)
	}

	// 追加、截断、续期在同一个事务pipeline中执行
	pipe := rcm.redisClient.TxPipeline()
	pipe.RPush(ctx, key, serialized...)
	if rcm.maxEntries > 0 {
		pipe.LTrim(ctx, key, int64(-rcm.maxEntries), -1)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("向redis写入会话消息失败 (key=%s): %w", tracing.SafeRedisKey(key), err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(sessionId string) error {
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("清除redis中会话历史失败 (key=%s): %w", tracing.SafeRedisKey(key), err)
	}
	return nil
}
