package extractor

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// docx正文是WordprocessingML，提取后需要剥离XML标签
var (
	docxTagPattern    = regexp.MustCompile(`<[^>]+>`)
	manySpacesPattern = regexp.MustCompile(`[ \t]+`)
)

// extractDocxText 从 .docx/.doc 文件中提取纯文本
func extractDocxText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取文档失败: %w", err)
	}

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析docx文档失败: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()

	// 段落和换行标签转为换行符，其余标签直接去掉
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:br/>", "\n")
	content = docxTagPattern.ReplaceAllString(content, "")
	content = manySpacesPattern.ReplaceAllString(content, " ")

	return content, nil
}
