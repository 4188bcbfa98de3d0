package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"cv-agent-go/internal/tracing"
)

// jsonFencePattern 匹配markdown代码块中的JSON对象
var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject 从模型输出中提取JSON对象，分三个阶段尝试：
// 1. 整个输出直接作为JSON解析
// 2. 提取markdown代码块中的JSON
// 3. 对每个左花括号做括号配对扫描，逐个候选子串尝试解析，首个成功者胜出
// 全部失败时返回的错误中带有输出预览，便于排查提示词问题。
func ExtractJSONObject(raw string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("模型输出为空，无法提取JSON")
	}

	// 阶段1：理想情况，模型只返回了JSON
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
		return result, nil
	}

	// 阶段2：模型把JSON包在了代码块里
	if matches := jsonFencePattern.FindStringSubmatch(trimmed); len(matches) > 1 {
		if err := json.Unmarshal([]byte(matches[1]), &result); err == nil {
			return result, nil
		}
	}

	// 阶段3：JSON混杂在自然语言中，做括号配对扫描。
	// 正文里可能出现非JSON的花括号片段，候选解析失败时从下一个左花括号继续。
	for start := strings.Index(trimmed, "{"); start >= 0; {
		if candidate := scanBalancedObject(trimmed[start:]); candidate != "" {
			if err := json.Unmarshal([]byte(candidate), &result); err == nil {
				return result, nil
			}
		}

		next := strings.Index(trimmed[start+1:], "{")
		if next < 0 {
			break
		}
		start += 1 + next
	}

	return nil, fmt.Errorf("无法从模型输出中提取JSON对象，输出预览: %s",
		tracing.TruncateString(trimmed, 200))
}

// scanBalancedObject 从第一个 '{' 开始扫描，返回括号配对完整的子串。
// 扫描时跳过字符串字面量内部的花括号。
func scanBalancedObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}
