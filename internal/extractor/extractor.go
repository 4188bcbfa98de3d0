package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cv-agent-go/internal/logger"
)

// ErrUnsupportedFormat 不支持的文件格式
var ErrUnsupportedFormat = errors.New("不支持的文件格式")

// TextExtractor 从简历文件中提取纯文本
type TextExtractor interface {
	// ExtractText 提取文件的全部文本内容
	ExtractText(ctx context.Context, filePath string) (string, error)
	// Supports 判断是否支持该扩展名（带点，小写，例如 ".pdf"）
	Supports(ext string) bool
}

// PDFEngine PDF文本提取引擎
type PDFEngine interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// FileTextExtractor 按扩展名分发的文本提取器
// .txt 直接读取，.pdf 交给可配置的PDF引擎，.docx/.doc 使用docx解析
type FileTextExtractor struct {
	pdfEngine PDFEngine
}

// NewFileTextExtractor 创建文本提取器，pdfEngine不可为nil
func NewFileTextExtractor(pdfEngine PDFEngine) *FileTextExtractor {
	return &FileTextExtractor{pdfEngine: pdfEngine}
}

// Supports 判断扩展名是否受支持
func (e *FileTextExtractor) Supports(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".pdf", ".docx", ".doc":
		return true
	}
	return false
}

// ExtractText 提取文件文本，按扩展名选择解析方式
func (e *FileTextExtractor) ExtractText(ctx context.Context, filePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	startTime := time.Now()
	log := logger.Ctx(ctx)

	var (
		text string
		err  error
	)

	switch ext {
	case ".txt":
		var data []byte
		data, err = os.ReadFile(filePath)
		if err != nil {
			err = fmt.Errorf("读取文本文件失败: %w", err)
		} else {
			text = string(data)
		}
	case ".pdf":
		text, err = e.pdfEngine.ExtractText(ctx, filePath)
	case ".docx", ".doc":
		text, err = extractDocxText(filePath)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		log.Error().Err(err).Str("file", filePath).Msg("文本提取失败")
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("文件 %s 中未提取到任何文本", filepath.Base(filePath))
	}

	log.Debug().
		Str("file", filePath).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("文本提取完成")

	return text, nil
}
