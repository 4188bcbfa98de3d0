package storage

import "time"

// CVParsedMessage 简历解析完成事件。
// 发布到cv事件交换机，供下游系统（画像、匹配等）消费。
type CVParsedMessage struct {
	SubmissionUUID   string    `json:"submission_uuid"`             // 提交UUID
	OriginalFilename string    `json:"original_filename"`           // 原始文件名
	ProfilePathOSS   string    `json:"profile_path_oss,omitempty"`  // 档案JSON在MinIO中的路径
	StructuredPath   string    `json:"structured_path,omitempty"`   // 档案JSON的本地路径
	OriginalURL      string    `json:"original_url,omitempty"`      // 原始简历的预签名下载URL
	SkillsCount      int       `json:"skills_count"`                // 抽取出的技能数
	ExperienceCount  int       `json:"experience_count"`            // 抽取出的工作经历数
	EducationCount   int       `json:"education_count"`             // 抽取出的教育经历数
	ParserVersion    string    `json:"parser_version,omitempty"`    // 解析器版本
	ParsedAt         time.Time `json:"parsed_at"`                   // 解析完成时间
}
