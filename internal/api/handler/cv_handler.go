package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"github.com/hertz-contrib/sse"
	"go.opentelemetry.io/otel/trace"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/extractor"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/parser"
	"cv-agent-go/internal/storage"
	"cv-agent-go/internal/storage/models"
	"cv-agent-go/internal/tracing"
	"cv-agent-go/internal/types"
)

// CVHandler 简历上传与解析处理器
type CVHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	extractor extractor.TextExtractor
	parser    *parser.ProgressiveParser
	sink      *storage.ParseResultSink
}

// NewCVHandler 创建简历处理器
func NewCVHandler(cfg *config.Config, store *storage.Storage, textExtractor extractor.TextExtractor,
	progressiveParser *parser.ProgressiveParser, sink *storage.ParseResultSink) *CVHandler {
	return &CVHandler{
		cfg:       cfg,
		storage:   store,
		extractor: textExtractor,
		parser:    progressiveParser,
		sink:      sink,
	}
}

// UploadResponse 简历上传响应
type UploadResponse struct {
	Success        bool   `json:"success"`
	SubmissionUUID string `json:"submission_uuid"`
	Filename       string `json:"filename"`
	Status         string `json:"status"`
}

// HandleUpload 处理简历上传请求
func (h *CVHandler) HandleUpload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !constants.AllowedUploadExtensions[ext] {
		ctx.JSON(consts.StatusBadRequest, utils.H{
			"error": fmt.Sprintf("不支持的文件类型 '%s'，仅支持 txt/pdf/docx/doc", ext),
		})
		return
	}

	if fileHeader.Size > h.cfg.MaxUploadBytes() {
		ctx.JSON(consts.StatusBadRequest, utils.H{
			"error": fmt.Sprintf("文件超过大小上限 %dMB", h.cfg.Upload.MaxSizeMB),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开上传文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件内容失败"})
		return
	}

	resp, err := h.saveUpload(c, fileHeader.Filename, fileBytes)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	ctx.JSON(consts.StatusOK, resp)
}

// saveUpload 保存上传文件：本地落盘、记录MySQL、归档MinIO
func (h *CVHandler) saveUpload(ctx context.Context, filename string, fileBytes []byte) (*UploadResponse, error) {
	log := logger.Ctx(ctx)

	storedPath, err := h.storage.Local.SaveUpload(filename, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("保存上传文件失败: %w", err)
	}

	// 使用UUIDv7，提交记录按时间有序
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	safeName := storage.SanitizeFilename(filename)

	// 数据库与对象存储都是尽力而为，失败不影响上传成功
	if h.storage.MySQL != nil {
		submission := &models.CVSubmission{
			SubmissionUUID:   submissionUUID,
			OriginalFilename: safeName,
			StoredPath:       storedPath,
			FileSizeBytes:    int64(len(fileBytes)),
			Status:           constants.StatusUploaded,
		}
		if err := h.storage.MySQL.CreateSubmission(ctx, submission); err != nil {
			log.Warn().Err(err).Str("submission", submissionUUID).Msg("写入提交记录失败")
		}
	}

	if h.storage.MinIO != nil {
		objectPath, err := h.storage.MinIO.UploadOriginalFile(ctx, submissionUUID, storedPath)
		if err != nil {
			log.Warn().Err(err).Str("submission", submissionUUID).Msg("归档原始简历到MinIO失败")
		} else if h.storage.MySQL != nil {
			if err := h.storage.MySQL.DB().WithContext(ctx).
				Model(&models.CVSubmission{}).
				Where("submission_uuid = ?", submissionUUID).
				Update("object_path_oss", objectPath).Error; err != nil {
				log.Warn().Err(err).Str("submission", submissionUUID).Msg("更新对象存储路径失败")
			}
		}
	}

	log.Info().
		Str("submission", submissionUUID).
		Str("filename", safeName).
		Int("bytes", len(fileBytes)).
		Msg("简历上传成功")

	return &UploadResponse{
		Success:        true,
		SubmissionUUID: submissionUUID,
		Filename:       safeName,
		Status:         constants.StatusUploaded,
	}, nil
}

// ParseRequest 同步解析请求
type ParseRequest struct {
	Filename string `json:"filename"`
}

// ParseResponse 同步解析响应
type ParseResponse struct {
	Filename      string              `json:"filename"`
	CandidateData types.CandidateData `json:"candidate_data"`
	FileSaved     string              `json:"file_saved,omitempty"`
}

// HandleParse 一次性同步解析整份简历
func (h *CVHandler) HandleParse(c context.Context, ctx *app.RequestContext) {
	var req ParseRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil || strings.TrimSpace(req.Filename) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "filename参数缺失"})
		return
	}

	cvText, status, err := h.loadCVText(c, req.Filename)
	if err != nil {
		tracing.RecordHTTPError(trace.SpanFromContext(c), err, status)
		ctx.JSON(status, utils.H{"error": err.Error()})
		return
	}

	h.markParsing(c, req.Filename)

	markFailed := func(errMsg string) {
		if h.storage.MySQL != nil {
			submission, lookupErr := h.storage.MySQL.GetLatestSubmissionByFilename(c, storage.SanitizeFilename(req.Filename))
			if lookupErr == nil {
				_ = h.storage.MySQL.MarkSubmissionFailed(c, submission.SubmissionUUID, constants.StatusParseFailed, errMsg)
			}
		}
	}

	candidateData, err := h.parser.ParseFull(c, cvText)
	if err != nil {
		markFailed(err.Error())
		tracing.RecordHTTPError(trace.SpanFromContext(c), err, consts.StatusInternalServerError)
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	profileJSON, err := json.MarshalIndent(candidateData, "", "  ")
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化解析结果失败"})
		return
	}

	savedPath := h.storage.Local.StructuredPath(req.Filename)
	if writeErr := writeStructuredFile(savedPath, profileJSON); writeErr != nil {
		logger.Ctx(c).Error().Err(writeErr).Str("path", savedPath).Msg("保存结构化档案失败")
		savedPath = ""
	}

	if h.sink != nil {
		_ = h.sink.OnParsed(c, req.Filename, profileJSON, candidateData)
	}

	ctx.JSON(consts.StatusOK, &ParseResponse{
		Filename:      storage.SanitizeFilename(req.Filename),
		CandidateData: candidateData,
		FileSaved:     savedPath,
	})
}

// HandleParseStream 渐进式解析，进度通过SSE实时推送
func (h *CVHandler) HandleParseStream(c context.Context, ctx *app.RequestContext) {
	filename := ctx.Query("filename")
	if strings.TrimSpace(filename) == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "filename参数缺失"})
		return
	}

	ctx.SetStatusCode(http.StatusOK)
	stream := sse.NewStream(ctx)

	cvText, _, err := h.loadCVText(c, filename)
	if err != nil {
		// 提取失败时以SSE错误事件告知客户端，保持流式协议一致
		publishEvent(c, stream, types.NewProgressEvent(types.StepInitialize, types.StatusError).
			WithError(err.Error()))
		return
	}

	h.markParsing(c, filename)

	for event := range h.parser.Parse(c, cvText, filename) {
		if err := publishEvent(c, stream, event); err != nil {
			logger.Ctx(c).Warn().Err(err).Str("file", filename).Msg("SSE推送失败，客户端可能已断开")
			return
		}
	}
}

// publishEvent 将进度事件序列化为SSE消息推送
func publishEvent(ctx context.Context, stream *sse.Stream, event types.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化进度事件失败: %w", err)
	}
	return stream.Publish(&sse.Event{
		Event: "progress",
		Data:  data,
	})
}

// writeStructuredFile 写入结构化JSON，目录不存在时自动创建
func writeStructuredFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// markParsing 解析开始前更新提交状态并清除旧缓存，失败仅告警不阻断解析
func (h *CVHandler) markParsing(ctx context.Context, filename string) {
	if h.storage.MySQL != nil {
		submission, err := h.storage.MySQL.GetLatestSubmissionByFilename(ctx, storage.SanitizeFilename(filename))
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("file", filename).Msg("查询提交记录失败，跳过状态更新")
		} else if err := h.storage.MySQL.UpdateSubmissionStatus(ctx, submission.SubmissionUUID, constants.StatusParsing); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("submission_uuid", submission.SubmissionUUID).Msg("更新提交状态为PARSING失败")
		}
	}
	if h.storage.Redis != nil {
		if err := h.storage.Redis.DeleteCandidateProfile(ctx, filename); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("file", filename).Msg("清除候选人缓存失败")
		}
	}
}

// restoreFromMinIO 本地文件缺失时尝试从对象存储恢复原始简历
func (h *CVHandler) restoreFromMinIO(ctx context.Context, filename string) bool {
	if h.storage.MinIO == nil || h.storage.MySQL == nil {
		return false
	}
	submission, err := h.storage.MySQL.GetLatestSubmissionByFilename(ctx, storage.SanitizeFilename(filename))
	if err != nil || submission.ObjectPathOSS == "" {
		return false
	}
	data, err := h.storage.MinIO.DownloadOriginalFile(ctx, submission.ObjectPathOSS)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("object", submission.ObjectPathOSS).Msg("从对象存储恢复简历失败")
		return false
	}
	if _, err := h.storage.Local.SaveUpload(filename, data); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("file", filename).Msg("恢复简历写入本地失败")
		return false
	}
	logger.Ctx(ctx).Info().Str("file", filename).Str("object", submission.ObjectPathOSS).Msg("已从对象存储恢复简历")
	return true
}

// loadCVText 定位上传文件并提取文本，返回错误时附带建议的HTTP状态码
func (h *CVHandler) loadCVText(ctx context.Context, filename string) (string, int, error) {
	if !h.storage.Local.UploadExists(filename) && !h.restoreFromMinIO(ctx, filename) {
		return "", consts.StatusNotFound, fmt.Errorf("文件 '%s' 不存在，请先上传", storage.SanitizeFilename(filename))
	}

	path := h.storage.Local.UploadPath(filename)
	cvText, err := h.extractor.ExtractText(ctx, path)
	if err != nil {
		return "", consts.StatusInternalServerError, fmt.Errorf("提取简历文本失败: %v", err)
	}
	return cvText, consts.StatusOK, nil
}

// HandleSubmission 按UUID查询提交记录及其解析结果
func (h *CVHandler) HandleSubmission(c context.Context, ctx *app.RequestContext) {
	if h.storage.MySQL == nil {
		ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "未启用数据库，无法查询提交记录"})
		return
	}

	submissionUUID := ctx.Param("uuid")
	submission, err := h.storage.MySQL.GetSubmission(c, submissionUUID)
	if err != nil {
		if errors.Is(err, storage.ErrSubmissionNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": fmt.Sprintf("提交记录 '%s' 不存在", submissionUUID)})
			return
		}
		tracing.RecordHTTPError(trace.SpanFromContext(c), err, consts.StatusInternalServerError)
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "查询提交记录失败"})
		return
	}

	resp := utils.H{
		"submission_uuid": submission.SubmissionUUID,
		"filename":        submission.OriginalFilename,
		"status":          submission.Status,
	}
	if submission.ErrorMessage != "" {
		resp["error_message"] = submission.ErrorMessage
	}
	if len(submission.CandidateProfile) > 0 {
		profile, err := models.JSONToMap(submission.CandidateProfile)
		if err != nil {
			logger.Ctx(c).Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("解析候选人档案JSON失败")
		} else {
			resp["candidate_profile"] = profile
		}
	}
	ctx.JSON(consts.StatusOK, resp)
}
