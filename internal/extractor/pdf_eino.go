package extractor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"cv-agent-go/internal/logger"
)

// EinoPDFEngine 使用 Eino PDF Parser 提取文本
type EinoPDFEngine struct {
	parser *pdf.PDFParser
}

// NewEinoPDFEngine 初始化 Eino PDF 引擎
// ToPages=false 使整个文档作为单个连续文本返回
func NewEinoPDFEngine(ctx context.Context) (*EinoPDFEngine, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	return &EinoPDFEngine{parser: p}, nil
}

// ExtractText 从PDF文件中提取完整文本
func (e *EinoPDFEngine) ExtractText(ctx context.Context, filePath string) (string, error) {
	startTime := time.Now()
	log := logger.Ctx(ctx)

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件失败: %w", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, file,
		einoParser.WithURI(filePath),
		einoParser.WithExtraMeta(map[string]interface{}{
			"source_file_path": filePath,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("Eino PDF解析失败: %w", err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("Eino PDF解析未返回任何文档: %s", filePath)
	}

	// 合并所有文档的内容（以防万一返回了多个）
	var fullContent string
	for i, doc := range docs {
		fullContent += doc.Content
		if i < len(docs)-1 {
			fullContent += "\n\n"
		}
	}

	log.Debug().
		Str("file", filePath).
		Int("documents", len(docs)).
		Int("chars", len(fullContent)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Eino PDF提取完成")

	return fullContent, nil
}
