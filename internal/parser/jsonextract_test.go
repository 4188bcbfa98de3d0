package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectDirect(t *testing.T) {
	raw := `{"name": "John Doe", "email": "john@example.com"}`

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "纯JSON输出应直接解析成功")
	assert.Equal(t, "John Doe", result["name"])
	assert.Equal(t, "john@example.com", result["email"])
}

func TestExtractJSONObjectFromMarkdownFence(t *testing.T) {
	raw := "Here is the extracted data:\n```json\n{\"skills\": [\"Go\", \"Python\"]}\n```\nLet me know if you need more."

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "代码块包裹的JSON应能提取")

	skills, ok := result["skills"].([]interface{})
	require.True(t, ok)
	assert.Len(t, skills, 2)
	assert.Equal(t, "Go", skills[0])
}

func TestExtractJSONObjectFromPlainFence(t *testing.T) {
	raw := "```\n{\"name\": \"Jane\"}\n```"

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "不带语言标记的代码块也应能提取")
	assert.Equal(t, "Jane", result["name"])
}

func TestExtractJSONObjectEmbeddedInText(t *testing.T) {
	raw := `Sure! Based on the CV, the result is {"name": "John", "nested": {"phone": "123"}} and that's all.`

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "混杂在自然语言中的JSON应通过括号扫描提取")
	assert.Equal(t, "John", result["name"])

	nested, ok := result["nested"].(map[string]interface{})
	require.True(t, ok, "嵌套对象应完整保留")
	assert.Equal(t, "123", nested["phone"])
}

func TestExtractJSONObjectBracesInsideStrings(t *testing.T) {
	raw := `Output: {"summary": "worked on {critical} systems", "name": "X"} done`

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "字符串字面量中的花括号不应干扰括号配对")
	assert.Equal(t, "worked on {critical} systems", result["summary"])
}

func TestExtractJSONObjectSkipsNonJSONBraces(t *testing.T) {
	// 正文先出现一段非JSON的花括号片段，真正的对象在后面
	raw := `I looked at {the document} carefully. Result: {"a": 1}`

	result, err := ExtractJSONObject(raw)
	require.NoError(t, err, "前置的非JSON花括号片段不应导致提取失败")
	assert.Equal(t, float64(1), result["a"])

	// 多个失败候选后才出现合法对象
	raw = `step {one} then {two: unquoted} finally {"name": "John", "ok": true}`
	result, err = ExtractJSONObject(raw)
	require.NoError(t, err, "应逐个候选尝试直到解析成功")
	assert.Equal(t, "John", result["name"])
}

func TestExtractJSONObjectFailure(t *testing.T) {
	_, err := ExtractJSONObject("I could not find any structured information in this document.")
	require.Error(t, err, "没有JSON的输出应返回错误")
	assert.Contains(t, err.Error(), "输出预览", "错误信息应带输出预览")

	_, err = ExtractJSONObject("")
	assert.Error(t, err, "空输出应返回错误")

	_, err = ExtractJSONObject("{broken json")
	assert.Error(t, err, "残缺JSON应返回错误")
}
