package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/types"
)

// Responder 基于已解析的候选人档案回答问题。
// 会话历史由 ChatMemory 维护，每轮问答都会追加进去。
type Responder struct {
	chatModel model.BaseChatModel
	memory    agent.ChatMemory
	timeout   time.Duration
}

// Result 单轮问答的结果
type Result struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// NewResponder 创建聊天应答器
func NewResponder(chatModel model.BaseChatModel, memory agent.ChatMemory, timeout time.Duration) *Responder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Responder{
		chatModel: chatModel,
		memory:    memory,
		timeout:   timeout,
	}
}

// Respond 回答关于候选人的一个问题。
// sessionID为空时生成新会话ID并随结果返回，candidateData可以为nil。
func (r *Responder) Respond(ctx context.Context, sessionID, message string, candidateData types.CandidateData) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("消息内容不能为空")
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	log := logger.Ctx(ctx)

	history, err := r.memory.GetHistory(sessionID)
	if err != nil {
		// 历史读取失败时降级为无历史对话，而不是拒绝回答
		log.Warn().Err(err).Str("session_id", sessionID).Msg("读取会话历史失败，按空历史处理")
		history = nil
	}

	prompt := buildChatPrompt(candidateData, history, message)

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.chatModel.Generate(genCtx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("聊天模型调用失败: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)

	// 问答都写入历史，写入失败不影响本轮返回
	if err := r.memory.AddMessages(sessionID, []*schema.Message{
		schema.UserMessage(message),
		schema.AssistantMessage(reply, nil),
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("写入会话历史失败")
	}

	return &Result{
		SessionID: sessionID,
		Reply:     reply,
	}, nil
}

// ClearSession 清除会话历史
func (r *Responder) ClearSession(sessionID string) error {
	return r.memory.ClearHistory(sessionID)
}

// buildChatPrompt 把候选人档案、会话历史和当前问题拼成单个提示词
func buildChatPrompt(candidateData types.CandidateData, history []*schema.Message, message string) string {
	var sb strings.Builder

	sb.WriteString("You are a recruitment assistant answering questions about a candidate based on their parsed CV data.\n\n")

	if len(candidateData) > 0 {
		profileJSON, err := json.MarshalIndent(candidateData, "", "  ")
		if err == nil {
			sb.WriteString("Candidate profile:\n")
			sb.Write(profileJSON)
			sb.WriteString("\n\n")
		}
	} else {
		sb.WriteString("No candidate profile has been parsed yet. Tell the user to upload and parse a CV first if they ask about candidate details.\n\n")
	}

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range history {
			if msg == nil || msg.Content == "" {
				continue
			}
			switch msg.Role {
			case schema.Assistant:
				sb.WriteString("Assistant: ")
			default:
				sb.WriteString("User: ")
			}
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("User question: ")
	sb.WriteString(message)
	sb.WriteString("\n\nAnswer concisely based only on the candidate profile above.")

	return sb.String()
}
