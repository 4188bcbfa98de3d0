package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/tracing"
	"cv-agent-go/internal/types"
)

// ResultSink 解析完成后的落地动作（数据库、对象存储、消息队列等）。
// 所有落地都是尽力而为，失败只记日志，不影响解析结果的返回。
type ResultSink interface {
	OnParsed(ctx context.Context, sourceFilename string, profileJSON []byte, data types.CandidateData) error
}

// extractionStep 单个分类抽取步骤
type extractionStep struct {
	name        string
	message     string
	buildPrompt func(cvText string) string
}

// 五个分类抽取步骤，按固定顺序执行
var extractionSteps = []extractionStep{
	{types.StepBasicInfo, "Extracting basic information...", BuildBasicInfoPrompt},
	{types.StepSkills, "Extracting skills...", BuildSkillsPrompt},
	{types.StepExperience, "Extracting work experience...", BuildExperiencePrompt},
	{types.StepEducation, "Extracting education...", BuildEducationPrompt},
	{types.StepProjectsCerts, "Extracting projects and certifications...", BuildProjectsCertsPrompt},
}

// ProgressiveParser 渐进式简历解析器。
// 将简历文本按类别分五步交给模型抽取，每一步的结果实时通过事件通道上报，
// 单步失败不中断整体流程，已抽取的部分数据仍然会进入最终档案。
type ProgressiveParser struct {
	chatModel        model.BaseChatModel
	stepTimeout      time.Duration
	fullParseTimeout time.Duration
	parsedDir        string
	sink             ResultSink
}

// ParserOption ProgressiveParser的配置选项
type ParserOption func(*ProgressiveParser)

// WithResultSink 配置解析结果落地接口
func WithResultSink(sink ResultSink) ParserOption {
	return func(p *ProgressiveParser) {
		p.sink = sink
	}
}

// WithStepTimeout 配置单步抽取超时
func WithStepTimeout(d time.Duration) ParserOption {
	return func(p *ProgressiveParser) {
		p.stepTimeout = d
	}
}

// WithFullParseTimeout 配置一次性全量解析超时
func WithFullParseTimeout(d time.Duration) ParserOption {
	return func(p *ProgressiveParser) {
		p.fullParseTimeout = d
	}
}

// NewProgressiveParser 创建渐进式解析器
func NewProgressiveParser(chatModel model.BaseChatModel, parsedDir string, options ...ParserOption) *ProgressiveParser {
	p := &ProgressiveParser{
		chatModel:        chatModel,
		stepTimeout:      45 * time.Second,
		fullParseTimeout: 120 * time.Second,
		parsedDir:        parsedDir,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Parse 启动渐进式解析，事件通过返回的通道上报。
// 通道在解析结束（或上下文取消）后关闭。调用方必须持续消费通道。
func (p *ProgressiveParser) Parse(ctx context.Context, cvText, sourceFilename string) <-chan types.ProgressEvent {
	events := make(chan types.ProgressEvent, 16)

	go func() {
		defer close(events)
		p.run(ctx, cvText, sourceFilename, events)
	}()

	return events
}

// emit 发送事件，上下文取消时放弃
func emit(ctx context.Context, events chan<- types.ProgressEvent, event types.ProgressEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *ProgressiveParser) run(ctx context.Context, cvText, sourceFilename string, events chan<- types.ProgressEvent) {
	tracer := otel.Tracer("cv-agent/parser")
	ctx, span := tracer.Start(ctx, "progressive_parse", trace.WithAttributes(
		attribute.String("cv.source_file", sourceFilename),
		attribute.Int("cv.text_length", len(cvText)),
		attribute.String("cv.preview", tracing.SafeCVContent(cvText)),
	))
	defer span.End()

	log := logger.Ctx(ctx)
	startTime := time.Now()

	if !emit(ctx, events, types.NewProgressEvent(types.StepInitialize, types.StatusStarting).
		WithMessage("Starting CV analysis...")) {
		return
	}

	candidateData := make(types.CandidateData)

	for i, step := range extractionSteps {
		if ctx.Err() != nil {
			return
		}

		// 每个步骤先宣告starting，再发带说明的processing
		if !emit(ctx, events, types.NewProgressEvent(step.name, types.StatusStarting)) {
			return
		}

		if !emit(ctx, events, types.NewProgressEvent(step.name, types.StatusProcessing).
			WithMessage(step.message)) {
			return
		}

		fragment, err := p.runStep(ctx, step, cvText)
		if err != nil {
			// 单步失败不中断整体流程，跳过该类别继续
			log.Warn().Err(err).Str("step", step.name).Msg("抽取步骤失败，跳过该类别")
			tracing.RecordParseStepError(span, err, step.name)

			if !emit(ctx, events, types.NewProgressEvent(step.name, types.StatusError).
				WithError(err.Error())) {
				return
			}
		} else {
			candidateData.Merge(fragment)

			if !emit(ctx, events, types.NewProgressEvent(step.name, types.StatusCompleted).
				WithData(fragment)) {
				return
			}
		}

		if i < len(extractionSteps)-1 {
			if !emit(ctx, events, types.NewProgressEvent(types.StepTransition, types.StatusProcessing).
				WithMessage("Moving to next extraction step...")) {
				return
			}
		}
	}

	p.finalize(ctx, candidateData, sourceFilename, events)

	log.Info().
		Str("file", sourceFilename).
		Dur("elapsed", time.Since(startTime)).
		Msg("渐进式解析完成")
}

// runStep 执行单个抽取步骤：构建提示词、调用模型、提取JSON
func (p *ProgressiveParser) runStep(ctx context.Context, step extractionStep, cvText string) (map[string]interface{}, error) {
	stepCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	defer cancel()

	prompt := step.buildPrompt(cvText)

	resp, err := p.chatModel.Generate(stepCtx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("步骤 %s 的模型调用失败: %w", step.name, err)
	}

	fragment, err := ExtractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("步骤 %s 的输出解析失败: %w", step.name, err)
	}

	return fragment, nil
}

// finalize 统计、落盘并发出最终事件
func (p *ProgressiveParser) finalize(ctx context.Context, candidateData types.CandidateData, sourceFilename string, events chan<- types.ProgressEvent) {
	if !emit(ctx, events, types.NewProgressEvent(types.StepFinalize, types.StatusStarting)) {
		return
	}

	if !emit(ctx, events, types.NewProgressEvent(types.StepFinalize, types.StatusProcessing).
		WithMessage("Finalizing results...")) {
		return
	}

	log := logger.Ctx(ctx)

	// 统计走强类型档案；模型输出形状不符导致解码失败时退回按原始列表计数
	var skillsCount, experienceCount, educationCount int
	if profile, err := candidateData.ToProfile(); err == nil {
		skillsCount = len(profile.Skills)
		experienceCount = len(profile.Experience)
		educationCount = len(profile.Education)
	} else {
		log.Warn().Err(err).Str("file", sourceFilename).Msg("候选人数据解码为档案失败，按原始列表统计")
		skillsCount = countList(candidateData, "skills")
		experienceCount = countList(candidateData, "experience")
		educationCount = countList(candidateData, "education")
	}

	profileJSON, err := json.MarshalIndent(candidateData, "", "  ")
	if err != nil {
		emit(ctx, events, types.NewProgressEvent(types.StepFinalize, types.StatusError).
			WithError(fmt.Sprintf("序列化候选人数据失败: %v", err)))
		return
	}

	savedPath, err := p.saveProfile(sourceFilename, profileJSON)
	if err != nil {
		// 落盘失败仍然把抽取结果发给调用方
		log.Error().Err(err).Str("file", sourceFilename).Msg("保存结构化档案失败")
		savedPath = ""
	}

	if p.sink != nil {
		if err := p.sink.OnParsed(ctx, sourceFilename, profileJSON, candidateData); err != nil {
			log.Warn().Err(err).Str("file", sourceFilename).Msg("解析结果落地失败，忽略")
		}
	}

	message := fmt.Sprintf("CV processing completed! Extracted %d skills, %d work experiences, %d education entries",
		skillsCount, experienceCount, educationCount)

	emit(ctx, events, types.NewProgressEvent(types.StepFinalize, types.StatusCompleted).
		WithData(map[string]interface{}{
			"candidate_data": map[string]interface{}(candidateData),
			"file_saved":     savedPath,
			"message":        message,
		}))
}

// saveProfile 将结构化JSON写入输出目录，文件名为 <原文件名去扩展名>_structured.json
func (p *ProgressiveParser) saveProfile(sourceFilename string, profileJSON []byte) (string, error) {
	if err := os.MkdirAll(p.parsedDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	base := filepath.Base(sourceFilename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(p.parsedDir, stem+"_structured.json")

	if err := os.WriteFile(outPath, profileJSON, 0644); err != nil {
		return "", fmt.Errorf("写入结构化档案失败: %w", err)
	}

	return outPath, nil
}

// countList 统计候选人数据中某个键对应列表的长度
func countList(data types.CandidateData, key string) int {
	if v, ok := data[key]; ok {
		if list, ok := v.([]interface{}); ok {
			return len(list)
		}
	}
	return 0
}

// ParseFull 一次性全量解析，用于同步接口。
// 与渐进式解析不同，任何一步失败都直接返回错误。
func (p *ProgressiveParser) ParseFull(ctx context.Context, cvText string) (types.CandidateData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fullParseTimeout)
	defer cancel()

	resp, err := p.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(BuildFullProfilePrompt(cvText)),
	})
	if err != nil {
		return nil, fmt.Errorf("全量解析的模型调用失败: %w", err)
	}

	result, err := ExtractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("全量解析的输出解析失败: %w", err)
	}

	return types.CandidateData(result), nil
}
