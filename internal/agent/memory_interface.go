package agent

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 定义了聊天记忆存储的接口
type ChatMemory interface {
	// GetHistory 获取指定会话ID的聊天历史记录。
	// 如果会话不存在，应返回一个空的 Message 切片和 nil 错误。
	GetHistory(sessionId string) ([]*schema.Message, error)

	// AddMessage 向指定会话ID的聊天历史记录中添加一条消息。
	AddMessage(sessionId string, message *schema.Message) error

	// AddMessages 向指定会话ID的聊天历史记录中批量添加多条消息。
	AddMessages(sessionId string, messages []*schema.Message) error

	// ClearHistory 清除指定会话ID的所有聊天历史记录。
	// 如果会话不存在，此操作应静默成功。
	ClearHistory(sessionId string) error
}

// InMemoryChatMemory 是 ChatMemory 接口的内存实现。
// 每个会话最多保留 maxEntries 条消息，超出时丢弃最旧的。
// 注意：此实现不是持久化的，进程重启后历史丢失。
type InMemoryChatMemory struct {
	// 使用读写锁以支持并发访问
	mu sync.RWMutex
	// histories map 的键是 sessionId，值是该会话的消息列表
	histories map[string][]*schema.Message
	// maxEntries 每个会话保留的最大消息条数，0表示不限制
	maxEntries int
}

// NewInMemoryChatMemory 创建一个新的 InMemoryChatMemory 实例。
// maxEntries 为每个会话保留的最大消息条数，0表示不限制。
func NewInMemoryChatMemory(maxEntries int) *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories:  make(map[string][]*schema.Message),
		maxEntries: maxEntries,
	}
}

// GetHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetHistory(sessionId string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.histories[sessionId]
	if !ok {
		// 如果会话不存在，返回空切片而不是 nil，以方便调用者处理
		return []*schema.Message{}, nil
	}
	// 返回历史记录的浅拷贝，防止外部修改内部切片
	// 调用方约定不修改返回的 Message 指针指向的内容
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessage 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessage(sessionId string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("会话 %s 不能添加nil消息", sessionId)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[sessionId] = m.trim(append(m.histories[sessionId], message))
	return nil
}

// AddMessages 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessages(sessionId string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 批量添加中包含nil消息", sessionId)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[sessionId] = m.trim(append(m.histories[sessionId], messages...))
	return nil
}

// trim 截断到maxEntries条，保留最新的消息
func (m *InMemoryChatMemory) trim(history []*schema.Message) []*schema.Message {
	if m.maxEntries <= 0 || len(history) <= m.maxEntries {
		return history
	}
	return history[len(history)-m.maxEntries:]
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(sessionId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, sessionId)
	return nil
}
