package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse 定义了 MockChatModel 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatModel 是用于测试的模型实现，按顺序返回预设的响应。
// 响应列表耗尽后重复返回最后一条，便于不关心调用次数的测试。
type MockChatModel struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int

	// ReceivedPrompts 记录每次调用收到的消息，供测试断言
	ReceivedPrompts [][]*schema.Message
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)

// NewMockChatModel 创建一个返回固定响应的模拟模型
func NewMockChatModel(content string) *MockChatModel {
	return &MockChatModel{
		responses: []MockResponse{{Content: content}},
	}
}

// NewMockChatModelSequential 创建一个按顺序返回不同响应的模拟模型
func NewMockChatModelSequential(responses []MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("模拟模型未配置任何响应")}}
	}
	return &MockChatModel{responses: responses}
}

// Generate 按顺序返回预设的响应
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.ReceivedPrompts = append(m.ReceivedPrompts, received)

	idx := m.index
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	} else {
		m.index++
	}

	resp := m.responses[idx]
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 将Generate的结果包装为单元素流
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools 模拟模型不使用工具
func (m *MockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools 返回自身，模拟模型不使用工具
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// CallCount 返回已发生的调用次数
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReceivedPrompts)
}
