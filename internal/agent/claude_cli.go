package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/tracing"
)

// ClaudeCLIChatModel 通过本地claude命令行工具实现eino的聊天模型接口。
// 每次Generate调用启动一个子进程，提示词写入stdin，完整回复从stdout读取。
// 命令行参数固定为 -p --dangerously-skip-permissions，模型名可选。
type ClaudeCLIChatModel struct {
	cliPath string
	model   string
	tools   []*schema.ToolInfo
}

var _ model.ToolCallingChatModel = (*ClaudeCLIChatModel)(nil)

// NewClaudeCLIChatModel 创建CLI聊天模型。
// cliPath为空时使用 "claude"；modelName为空时不传 --model 参数。
func NewClaudeCLIChatModel(cliPath, modelName string) *ClaudeCLIChatModel {
	if cliPath == "" {
		cliPath = "claude"
	}
	return &ClaudeCLIChatModel{
		cliPath: cliPath,
		model:   modelName,
	}
}

// buildPrompt 将消息列表展平为单个提示词字符串。
// CLI接口只接受纯文本输入，多轮消息用角色前缀区分。
func buildPrompt(input []*schema.Message) string {
	if len(input) == 1 && input[0].Role == schema.User {
		return input[0].Content
	}

	var sb strings.Builder
	for _, msg := range input {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.System:
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		case schema.Assistant:
			sb.WriteString("Assistant: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		default:
			sb.WriteString("User: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// Generate 调用CLI子进程生成回复
func (c *ClaudeCLIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("消息列表为空，无法生成回复")
	}

	prompt := buildPrompt(input)
	if prompt == "" {
		return nil, fmt.Errorf("提示词为空，无法生成回复")
	}

	args := []string{"-p", "--dangerously-skip-permissions"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}

	startTime := time.Now()
	log := logger.Ctx(ctx)
	log.Debug().
		Str("cli", c.cliPath).
		Str("model", c.model).
		Int("prompt_chars", len(prompt)).
		Str("prompt_preview", tracing.SafePrompt(prompt)).
		Msg("调用claude命令行")

	cmd := exec.CommandContext(ctx, c.cliPath, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(startTime)

	if err != nil {
		// 区分超时和普通失败：超时时进程被杀，exec错误信息没有参考价值
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			log.Warn().Dur("elapsed", elapsed).Msg("claude命令行调用超时")
			return nil, fmt.Errorf("claude命令行调用超时 (用时 %.1f秒): %w", elapsed.Seconds(), context.DeadlineExceeded)
		}
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}

		errOutput := strings.TrimSpace(stderr.String())
		if errOutput == "" {
			errOutput = "(无stderr输出)"
		}
		log.Error().Err(err).Str("stderr", errOutput).Msg("claude命令行调用失败")
		return nil, fmt.Errorf("claude命令行调用失败: %w, stderr: %s", err, errOutput)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return nil, fmt.Errorf("claude命令行返回了空输出")
	}

	log.Debug().
		Dur("elapsed", elapsed).
		Int("output_chars", len(output)).
		Msg("claude命令行调用完成")

	return schema.AssistantMessage(output, nil), nil
}

// Stream 实现流式接口。CLI一次性返回完整输出，这里包装为单元素流。
func (c *ClaudeCLIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := c.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools 记录工具信息。CLI子进程不支持工具调用，仅为满足接口。
func (c *ClaudeCLIChatModel) BindTools(tools []*schema.ToolInfo) error {
	c.tools = tools
	return nil
}

// WithTools 返回携带工具信息的新实例
func (c *ClaudeCLIChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := &ClaudeCLIChatModel{
		cliPath: c.cliPath,
		model:   c.model,
		tools:   tools,
	}
	return clone, nil
}
