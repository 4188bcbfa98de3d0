package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFromTxt(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "resume.txt")
	content := "John Doe\nSoftware Engineer\n\nSkills: Go, Python, Kubernetes\n"
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	e := NewFileTextExtractor(NewNativePDFEngine())

	text, err := e.ExtractText(context.Background(), filePath)
	require.NoError(t, err, "提取txt文本不应失败")
	assert.Contains(t, text, "John Doe")
	assert.Contains(t, text, "Kubernetes")
}

func TestExtractTextEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "empty.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("   \n\t  "), 0644))

	e := NewFileTextExtractor(NewNativePDFEngine())

	_, err := e.ExtractText(context.Background(), filePath)
	assert.Error(t, err, "空文件应返回错误")
}

func TestExtractTextUnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "resume.xyz")
	require.NoError(t, os.WriteFile(filePath, []byte("data"), 0644))

	e := NewFileTextExtractor(NewNativePDFEngine())

	_, err := e.ExtractText(context.Background(), filePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat, "未知扩展名应返回ErrUnsupportedFormat")
}

func TestSupports(t *testing.T) {
	e := NewFileTextExtractor(NewNativePDFEngine())

	assert.True(t, e.Supports(".txt"))
	assert.True(t, e.Supports(".pdf"))
	assert.True(t, e.Supports(".docx"))
	assert.True(t, e.Supports(".doc"))
	assert.True(t, e.Supports(".PDF"), "扩展名匹配应不区分大小写")
	assert.False(t, e.Supports(".xyz"))
	assert.False(t, e.Supports(""))
}
