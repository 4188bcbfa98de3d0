package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// unsafeFilenameChars 文件名中需要替换掉的字符
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._\-\x{4e00}-\x{9fa5}]+`)

// LocalStore 本地文件系统存储，管理上传目录和解析输出目录
type LocalStore struct {
	uploadDir string
	parsedDir string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(uploadDir, parsedDir string) (*LocalStore, error) {
	if uploadDir == "" || parsedDir == "" {
		return nil, fmt.Errorf("上传目录和输出目录不能为空")
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	if err := os.MkdirAll(parsedDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &LocalStore{
		uploadDir: uploadDir,
		parsedDir: parsedDir,
	}, nil
}

// UploadDir 返回上传目录
func (s *LocalStore) UploadDir() string {
	return s.uploadDir
}

// ParsedDir 返回解析输出目录
func (s *LocalStore) ParsedDir() string {
	return s.parsedDir
}

// SanitizeFilename 清洗用户提供的文件名，防止路径穿越和非法字符。
// 只保留basename，非法字符替换为下划线。
func SanitizeFilename(filename string) string {
	// 统一分隔符后取basename，去掉路径部分
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	filename = unsafeFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, "._")

	if filename == "" {
		filename = "upload"
	}
	return filename
}

// SaveUpload 将上传内容写入上传目录，返回实际存储路径
func (s *LocalStore) SaveUpload(filename string, data []byte) (string, error) {
	safe := SanitizeFilename(filename)
	path := filepath.Join(s.uploadDir, safe)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}
	return path, nil
}

// UploadPath 返回某个文件名对应的上传路径（不检查存在性）
func (s *LocalStore) UploadPath(filename string) string {
	return filepath.Join(s.uploadDir, SanitizeFilename(filename))
}

// UploadExists 判断上传文件是否存在
func (s *LocalStore) UploadExists(filename string) bool {
	info, err := os.Stat(s.UploadPath(filename))
	return err == nil && !info.IsDir()
}

// StructuredPath 返回某个上传文件对应的结构化JSON输出路径
func (s *LocalStore) StructuredPath(filename string) string {
	base := SanitizeFilename(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.parsedDir, stem+"_structured.json")
}

// ReadStructured 读取某个上传文件对应的结构化JSON，不存在时返回os.ErrNotExist
func (s *LocalStore) ReadStructured(filename string) ([]byte, error) {
	return os.ReadFile(s.StructuredPath(filename))
}
