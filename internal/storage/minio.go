package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"cv-agent-go/internal/config"
	"cv-agent-go/internal/logger"
)

// MinIO 提供对象存储功能：原始简历归档和结构化档案归档
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	originalsBucket string
	profilesBucket  string
}

// NewMinIO 创建MinIO客户端并确保存储桶就绪
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "cv-originals"
	}
	profilesBucket := cfg.ProfilesBucket
	if profilesBucket == "" {
		profilesBucket = "cv-profiles"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		originalsBucket: originalsBucket,
		profilesBucket:  profilesBucket,
	}

	if err := m.ensureBucketExists(originalsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", originalsBucket, err)
	}
	if err := m.ensureBucketExists(profilesBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保档案存储桶 %s 存在失败: %w", profilesBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ProfileExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			// 生命周期规则失败不影响核心功能
			logger.Warn().Err(err).Msg("设置MinIO生命周期规则失败")
		}
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("originals_bucket", originalsBucket).
		Str("profiles_bucket", profilesBucket).
		Msg("MinIO客户端初始化成功")

	return m, nil
}

// ensureBucketExists 确保存储桶存在，不存在则创建
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		logger.Info().Str("bucket", bucketName).Msg("MinIO存储桶已创建")
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalsBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始简历存储桶 %s 设置生命周期失败: %w", m.originalsBucket, err)
		}
	}
	if m.cfg.ProfileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.profilesBucket, "expire-profiles", m.cfg.ProfileExpireDays); err != nil {
			return fmt.Errorf("为档案存储桶 %s 设置生命周期失败: %w", m.profilesBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// UploadOriginalFile 将本地上传的简历文件归档到对象存储。
// 对象路径为 <submissionUUID>/<文件名>，返回对象路径。
func (m *MinIO) UploadOriginalFile(ctx context.Context, submissionUUID, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开本地文件失败: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("读取文件信息失败: %w", err)
	}

	filename := filepath.Base(localPath)
	objectName := fmt.Sprintf("%s/%s", submissionUUID, filename)
	contentType := getContentType(filepath.Ext(filename))

	_, err = m.client.PutObject(ctx, m.originalsBucket, objectName, file, info.Size(),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传原始简历到MinIO失败: %w", err)
	}

	return objectName, nil
}

// UploadProfileJSON 将结构化候选人档案归档到对象存储
func (m *MinIO) UploadProfileJSON(ctx context.Context, submissionUUID string, profileJSON []byte) (string, error) {
	objectName := fmt.Sprintf("%s/profile.json", submissionUUID)

	_, err := m.client.PutObject(ctx, m.profilesBucket, objectName,
		bytes.NewReader(profileJSON), int64(len(profileJSON)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传候选人档案到MinIO失败: %w", err)
	}

	return objectName, nil
}

// DownloadOriginalFile 从对象存储下载原始简历
func (m *MinIO) DownloadOriginalFile(ctx context.Context, objectName string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.originalsBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取MinIO对象失败: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("读取MinIO对象内容失败: %w", err)
	}
	return data, nil
}

// GetPresignedURL 获取对象的预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.originalsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// getContentType 根据扩展名返回MIME类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
