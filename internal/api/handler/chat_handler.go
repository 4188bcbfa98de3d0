package handler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"

	"cv-agent-go/internal/chat"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/storage"
	"cv-agent-go/internal/tracing"
	"cv-agent-go/internal/types"
)

// ChatHandler 候选人问答处理器
type ChatHandler struct {
	responder *chat.Responder
	storage   *storage.Storage
}

// NewChatHandler 创建问答处理器
func NewChatHandler(responder *chat.Responder, store *storage.Storage) *ChatHandler {
	return &ChatHandler{
		responder: responder,
		storage:   store,
	}
}

// ChatRequest 问答请求。
// candidate可以直接内联候选人数据；未提供时按filename查找已解析的档案。
type ChatRequest struct {
	Message        string                 `json:"message"`
	Candidate      map[string]interface{} `json:"candidate,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Filename       string                 `json:"filename,omitempty"`
}

// ChatResponse 问答响应
type ChatResponse struct {
	Success        bool   `json:"success"`
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// HandleChat 回答关于已解析候选人的问题
func (h *ChatHandler) HandleChat(c context.Context, ctx *app.RequestContext) {
	var req ChatRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "message参数缺失"})
		return
	}

	candidateData := types.CandidateData(req.Candidate)
	if candidateData == nil {
		candidateData = h.loadCandidateData(c, req.Filename)
	}

	result, err := h.responder.Respond(c, req.ConversationID, req.Message, candidateData)
	if err != nil {
		tracing.RecordHTTPError(trace.SpanFromContext(c), err, consts.StatusInternalServerError)
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	ctx.JSON(consts.StatusOK, &ChatResponse{
		Success:        true,
		Response:       result.Reply,
		ConversationID: result.SessionID,
	})
}

// loadCandidateData 加载候选人档案：优先Redis缓存，其次本地结构化文件。
// 找不到时返回nil，问答会提示用户先解析简历。
func (h *ChatHandler) loadCandidateData(ctx context.Context, filename string) types.CandidateData {
	if filename == "" {
		return nil
	}

	log := logger.Ctx(ctx)

	if h.storage.Redis != nil {
		profile, err := h.storage.Redis.GetCandidateProfile(ctx, filename)
		if err == nil {
			return types.CandidateData(profile)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("file", filename).Msg("读取档案缓存失败，回退到本地文件")
		}
	}

	data, err := h.storage.Local.ReadStructured(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", filename).Msg("读取结构化档案文件失败")
		}
		return nil
	}

	var candidateData types.CandidateData
	if err := json.Unmarshal(data, &candidateData); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("结构化档案文件内容非法")
		return nil
	}
	return candidateData
}
