package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"cv-agent-go/internal/logger"
)

// NativePDFEngine 纯Go实现的PDF文本提取，不依赖外部服务
type NativePDFEngine struct{}

// NewNativePDFEngine 创建本地PDF引擎
func NewNativePDFEngine() *NativePDFEngine {
	return &NativePDFEngine{}
}

// ExtractText 逐页提取PDF文本，无法解析的页面跳过
func (e *NativePDFEngine) ExtractText(ctx context.Context, filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// 单页失败不应中断整个文档的提取
			logger.Ctx(ctx).Warn().
				Err(err).
				Str("file", filePath).
				Int("page", i).
				Msg("PDF单页文本提取失败，已跳过")
			continue
		}

		sb.WriteString(content)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
