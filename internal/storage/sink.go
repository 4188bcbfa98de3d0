package storage

import (
	"context"
	"time"

	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/logger"
	"cv-agent-go/internal/types"
)

// ParseResultSink 把解析结果落到各个存储组件。
// 未初始化的组件直接跳过，单个组件失败记日志后继续，不向调用方传播。
type ParseResultSink struct {
	storage    *Storage
	profileTTL time.Duration
}

// NewParseResultSink 创建解析结果落地器
func NewParseResultSink(storage *Storage, profileTTL time.Duration) *ParseResultSink {
	return &ParseResultSink{
		storage:    storage,
		profileTTL: profileTTL,
	}
}

// OnParsed 解析完成后依次回填MySQL、归档MinIO、缓存Redis、发布RabbitMQ事件
func (s *ParseResultSink) OnParsed(ctx context.Context, sourceFilename string, profileJSON []byte, data types.CandidateData) error {
	if s.storage == nil {
		return nil
	}

	log := logger.Ctx(ctx)

	var submissionUUID, originalPathOSS string
	if s.storage.MySQL != nil {
		submission, err := s.storage.MySQL.GetLatestSubmissionByFilename(ctx, SanitizeFilename(sourceFilename))
		if err != nil {
			log.Warn().Err(err).Str("file", sourceFilename).Msg("查询提交记录失败，跳过数据库回填")
		} else {
			submissionUUID = submission.SubmissionUUID
			originalPathOSS = submission.ObjectPathOSS
			if err := s.storage.MySQL.SaveCandidateProfile(ctx, submissionUUID,
				map[string]interface{}(data), constants.StatusParseComplete, constants.DefaultParserVer); err != nil {
				log.Warn().Err(err).Str("submission", submissionUUID).Msg("回填候选人档案失败")
			}
		}
	}

	var profilePathOSS string
	if s.storage.MinIO != nil && submissionUUID != "" {
		path, err := s.storage.MinIO.UploadProfileJSON(ctx, submissionUUID, profileJSON)
		if err != nil {
			log.Warn().Err(err).Str("submission", submissionUUID).Msg("归档候选人档案到MinIO失败")
		} else {
			profilePathOSS = path
		}
	}

	if s.storage.Redis != nil {
		if err := s.storage.Redis.CacheCandidateProfile(ctx, sourceFilename,
			map[string]interface{}(data), s.profileTTL); err != nil {
			log.Warn().Err(err).Str("file", sourceFilename).Msg("缓存候选人档案失败")
		}
	}

	if s.storage.RabbitMQ != nil {
		msg := &CVParsedMessage{
			SubmissionUUID:   submissionUUID,
			OriginalFilename: SanitizeFilename(sourceFilename),
			ProfilePathOSS:   profilePathOSS,
			SkillsCount:      listLen(data, "skills"),
			ExperienceCount:  listLen(data, "experience"),
			EducationCount:   listLen(data, "education"),
			ParserVersion:    constants.DefaultParserVer,
			ParsedAt:         time.Now(),
		}
		if s.storage.Local != nil {
			msg.StructuredPath = s.storage.Local.StructuredPath(sourceFilename)
		}
		if s.storage.MinIO != nil && originalPathOSS != "" {
			url, err := s.storage.MinIO.GetPresignedURL(ctx, originalPathOSS, 24*time.Hour)
			if err != nil {
				log.Warn().Err(err).Str("object", originalPathOSS).Msg("生成原始简历预签名URL失败")
			} else {
				msg.OriginalURL = url
			}
		}
		if err := s.storage.RabbitMQ.PublishCVParsed(ctx, msg); err != nil {
			log.Warn().Err(err).Str("file", sourceFilename).Msg("发布解析完成事件失败")
		}
	}

	return nil
}

// listLen 返回候选人数据中某个键对应列表的长度
func listLen(data types.CandidateData, key string) int {
	if v, ok := data[key]; ok {
		if list, ok := v.([]interface{}); ok {
			return len(list)
		}
	}
	return 0
}
