package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/api/handler"
	"cv-agent-go/internal/api/router"
	"cv-agent-go/internal/chat"
	"cv-agent-go/internal/config"
	"cv-agent-go/internal/extractor"
	"cv-agent-go/internal/parser"
	"cv-agent-go/internal/storage"
)

const fullProfileResponse = `{
  "name": "John Doe",
  "email": "john@example.com",
  "phone": "(555) 123-4567",
  "skills": ["Go", "Python"],
  "experience": [{"company": "Acme", "position": "Engineer", "dates": "2020-2023", "description": "Backend"}]
}`

// testEnv 测试环境：内存模型 + 仅本地存储的完整HTTP栈
type testEnv struct {
	hertz *server.Hertz
	cfg   *config.Config
	store *storage.Storage
	model *agent.MockChatModel
}

func newTestEnv(t *testing.T, responses []agent.MockResponse, apiKey string) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := &config.Config{}
	cfg.Upload.UploadDir = filepath.Join(tmpDir, "uploads")
	cfg.Upload.ParsedDir = filepath.Join(tmpDir, "parsed")
	cfg.Upload.MaxSizeMB = 1
	cfg.Server.APIKey = apiKey

	store, err := storage.NewStorage(context.Background(), cfg)
	require.NoError(t, err, "初始化存储不应失败")

	mock := agent.NewMockChatModelSequential(responses)
	textExtractor := extractor.NewFileTextExtractor(extractor.NewNativePDFEngine())
	progressiveParser := parser.NewProgressiveParser(mock, cfg.Upload.ParsedDir)
	responder := chat.NewResponder(mock, agent.NewInMemoryChatMemory(20), time.Second)

	cvHandler := handler.NewCVHandler(cfg, store, textExtractor, progressiveParser, nil)
	chatHandler := handler.NewChatHandler(responder, store)

	h := server.Default(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(h, cvHandler, chatHandler, apiKey)

	return &testEnv{hertz: h, cfg: cfg, store: store, model: mock}
}

// createUploadForm 构建multipart上传表单
func createUploadForm(t *testing.T, fileName string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(fileContent)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestHandleUploadSuccess(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	body, contentType := createUploadForm(t, "resume.txt", []byte("John Doe\nSoftware Engineer"))
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	var uploadResp handler.UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &uploadResp))
	assert.True(t, uploadResp.Success)
	assert.NotEmpty(t, uploadResp.SubmissionUUID)
	assert.Equal(t, "resume.txt", uploadResp.Filename)
	assert.Equal(t, "UPLOADED", uploadResp.Status)

	// 文件应已落盘到上传目录
	saved, err := os.ReadFile(filepath.Join(env.cfg.Upload.UploadDir, "resume.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), "John Doe")
}

func TestHandleUploadRejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	body, contentType := createUploadForm(t, "malware.exe", []byte("data"))
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "不支持的文件类型")
}

func TestHandleUploadRejectsOversizedFile(t *testing.T) {
	// 上限1MB，上传约1.5MB
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	big := bytes.Repeat([]byte("a"), 1536*1024)
	body, contentType := createUploadForm(t, "big.txt", big)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "大小上限")
}

func TestHandleUploadMissingFile(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: writer.FormDataContentType()},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleParseEndToEnd(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: fullProfileResponse}}, "")

	// 先上传
	body, contentType := createUploadForm(t, "resume.txt", []byte("John Doe\njohn@example.com\n(555) 123-4567"))
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	// 同步解析
	parseBody := bytes.NewBufferString(`{"filename": "resume.txt"}`)
	resp = ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/parse",
		&ut.Body{Body: parseBody, Len: parseBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	var parseResp handler.ParseResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parseResp))
	assert.Equal(t, "John Doe", parseResp.CandidateData["name"])
	assert.NotEmpty(t, parseResp.FileSaved)

	// 结构化档案应已落盘
	saved, err := os.ReadFile(parseResp.FileSaved)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "john@example.com")
	assert.Contains(t, string(saved), "(555) 123-4567")
}

func TestHandleParseMissingFilename(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	parseBody := bytes.NewBufferString(`{}`)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/parse",
		&ut.Body{Body: parseBody, Len: parseBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleParseUnknownFile(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	parseBody := bytes.NewBufferString(`{"filename": "never-uploaded.txt"}`)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/parse",
		&ut.Body{Body: parseBody, Len: parseBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleParseStreamSuccess(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{
		{Content: `{"name": "John Doe", "email": "john@example.com"}`},
		{Content: `{"skills": ["Go", "Python"]}`},
		{Content: `{"experience": [{"company": "Acme", "position": "Engineer"}]}`},
		{Content: `{"education": [{"institution": "MIT", "degree": "BSc"}]}`},
		{Content: `{"projects": [], "certifications": []}`},
	}, "")

	body, contentType := createUploadForm(t, "resume.txt", []byte("John Doe\njohn@example.com"))
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/cv/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: contentType},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ut.PerformRequest(env.hertz.Engine, "GET", "/api/v1/cv/parse/stream?filename=resume.txt", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	events := resp.Body.String()
	assert.NotContains(t, events, `"status":"error"`)
	assert.Contains(t, events, `"status":"starting"`)
	assert.Contains(t, events, "CV processing completed")

	// 事件按流水线顺序推送：初始化 → 五个抽取步骤 → 汇总
	steps := []string{"initialize", "basic_info", "skills", "experience", "education", "projects_certs", "finalize"}
	lastIdx := -1
	for _, step := range steps {
		idx := strings.Index(events, `"step":"`+step+`"`)
		require.GreaterOrEqual(t, idx, 0, "事件流中应出现步骤 %s", step)
		assert.Greater(t, idx, lastIdx, "步骤 %s 应出现在前一步骤之后", step)
		lastIdx = idx
	}

	// 汇总完成事件携带抽取统计
	assert.Contains(t, events, "Extracted 2 skills, 1 work experiences, 1 education entries")
}

func TestHandleSubmissionWithoutMySQL(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	resp := ut.PerformRequest(env.hertz.Engine, "GET", "/api/v1/cv/submission/some-uuid", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "未启用数据库")
}

func TestHandleParseStreamMissingFilename(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	resp := ut.PerformRequest(env.hertz.Engine, "GET", "/api/v1/cv/parse/stream", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleChatMissingMessage(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "ok"}}, "")

	chatBody := bytes.NewBufferString(`{"conversation_id": "s1"}`)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: chatBody, Len: chatBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "message")
}

func TestHandleChatWithParsedProfile(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "The candidate is John Doe."}}, "")

	// 预置结构化档案文件，模拟已完成的解析
	profilePath := env.store.Local.StructuredPath("resume.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(profilePath), 0755))
	require.NoError(t, os.WriteFile(profilePath, []byte(`{"name": "John Doe"}`), 0644))

	chatBody := bytes.NewBufferString(`{"message": "who is the candidate?", "filename": "resume.txt"}`)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: chatBody, Len: chatBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	var chatResp handler.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &chatResp))
	assert.True(t, chatResp.Success)
	assert.NotEmpty(t, chatResp.ConversationID)
	assert.Equal(t, "The candidate is John Doe.", chatResp.Response)

	// 模型提示词应包含档案内容
	require.NotEmpty(t, env.model.ReceivedPrompts)
	assert.Contains(t, env.model.ReceivedPrompts[0][0].Content, "John Doe")
}

func TestHandleChatInlineCandidate(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "She has 5 years of Go."}}, "")

	chatBody := bytes.NewBufferString(`{"message": "how much Go experience?", "candidate": {"name": "Jane Roe", "skills": ["Go"]}}`)
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: chatBody, Len: chatBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	// 内联候选人数据应直接进入提示词，无需先解析简历
	require.NotEmpty(t, env.model.ReceivedPrompts)
	assert.Contains(t, env.model.ReceivedPrompts[0][0].Content, "Jane Roe")
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "{}"}}, "")

	resp := ut.PerformRequest(env.hertz.Engine, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ok")
}

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, []agent.MockResponse{{Content: "ok"}}, "secret-key")

	chatBody := bytes.NewBufferString(`{"message": "hello"}`)

	// 无API Key被拒绝
	resp := ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: chatBody, Len: chatBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// 携带正确API Key放行
	chatBody = bytes.NewBufferString(`{"message": "hello"}`)
	resp = ut.PerformRequest(env.hertz.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: chatBody, Len: chatBody.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
		ut.Header{Key: "X-API-Key", Value: "secret-key"},
	)
	assert.Equal(t, http.StatusOK, resp.Code)

	// 健康检查始终放行
	resp = ut.PerformRequest(env.hertz.Engine, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}
