package types

import "time"

// 进度事件状态
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// 抽取步骤名称，按状态机顺序排列
const (
	StepInitialize    = "initialize"
	StepBasicInfo     = "basic_info"
	StepSkills        = "skills"
	StepExperience    = "experience"
	StepEducation     = "education"
	StepProjectsCerts = "projects_certs"
	StepTransition    = "transition"
	StepFinalize      = "finalize"
)

// ProgressEvent 流式解析过程中的单条步骤状态通知
// 仅在一次解析会话的生命周期内存在，除通过SSE通道转发外不做持久化
type ProgressEvent struct {
	Step      string                 `json:"step"`
	Status    string                 `json:"status"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp float64                `json:"timestamp"`
}

// NewProgressEvent 构建一条带当前时间戳的进度事件
// 时间戳为Unix秒的浮点表示，保留亚秒精度
func NewProgressEvent(step, status string) ProgressEvent {
	return ProgressEvent{
		Step:      step,
		Status:    status,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

// WithData 附加载荷数据
func (e ProgressEvent) WithData(data map[string]interface{}) ProgressEvent {
	e.Data = data
	return e
}

// WithMessage 附加单条说明性消息
func (e ProgressEvent) WithMessage(msg string) ProgressEvent {
	e.Data = map[string]interface{}{"message": msg}
	return e
}

// WithError 附加错误信息
func (e ProgressEvent) WithError(errMsg string) ProgressEvent {
	e.Error = errMsg
	return e
}
