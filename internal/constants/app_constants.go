package constants

import "time"

const (
	// DefaultParserVer 当前解析流水线版本，写入提交记录
	DefaultParserVer = "progressive-v1"

	// 简历提交处理状态
	StatusUploaded      = "UPLOADED"
	StatusParsing       = "PARSING"
	StatusParseComplete = "PARSE_COMPLETED"
	StatusParseFailed   = "PARSE_FAILED"

	// MaxUploadSize 上传文件大小上限 (16 MiB)
	MaxUploadSize = 16 * 1024 * 1024

	// MaxChatExchanges 单个会话保留的最大问答轮数（每轮2条消息）
	MaxChatExchanges = 10

	// DefaultChatHistoryTTL 会话历史在Redis中的默认过期时间
	DefaultChatHistoryTTL = 24 * time.Hour
)

// AllowedUploadExtensions 允许上传的文件扩展名（小写，含点）
var AllowedUploadExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".doc":  true,
}
