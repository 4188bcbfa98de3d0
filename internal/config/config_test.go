package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证 YAML 配置文件能否被成功加载
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
server:
  address: ":9090"
claude:
  cli_path: "/usr/local/bin/claude"
  model: "sonnet"
  step_timeout: "30s"
upload:
  upload_dir: "data/uploads"
  parsed_dir: "data/parsed"
  max_size_mb: 8
  pdf_engine: "eino"
chat:
  history_store: "redis"
  history_ttl_hours: 48
redis:
  address: "localhost:16379"
  db: 2
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, ":9090", config.Server.Address)
	assert.Equal(t, "/usr/local/bin/claude", config.Claude.CLIPath)
	assert.Equal(t, "sonnet", config.Claude.Model)
	assert.Equal(t, "30s", config.Claude.StepTimeout)
	assert.Equal(t, "data/uploads", config.Upload.UploadDir)
	assert.Equal(t, "eino", config.Upload.PDFEngine)
	assert.Equal(t, int64(8*1024*1024), config.MaxUploadBytes(), "上传上限应换算为字节数")
	assert.Equal(t, "redis", config.Chat.HistoryStore)
	assert.Equal(t, 48, config.Chat.HistoryTTLHours)
	assert.Equal(t, "localhost:16379", config.Redis.Address)
	assert.Equal(t, 2, config.Redis.DB)

	// 未出现在文件中的字段应落到默认值
	assert.Equal(t, "120s", config.Claude.FullParseTimeout, "未配置的超时应使用默认值")
	assert.Equal(t, 10, config.Chat.MaxExchanges)
}

// TestLoadConfigAppliesDefaults 验证空配置文件时所有默认值都被填充
func TestLoadConfigAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: {}\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, "claude", config.Claude.CLIPath)
	assert.Equal(t, "45s", config.Claude.StepTimeout)
	assert.Equal(t, "uploads", config.Upload.UploadDir)
	assert.Equal(t, "parsed", config.Upload.ParsedDir)
	assert.Equal(t, 16, config.Upload.MaxSizeMB)
	assert.Equal(t, "native", config.Upload.PDFEngine)
	assert.Equal(t, "memory", config.Chat.HistoryStore)
}

// TestEnvOverrides 验证环境变量优先于配置文件内容
func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLAUDE_CLI_PATH", "/opt/bin/claude")
	t.Setenv("CLAUDE_MODEL", "opus")
	t.Setenv("REDIS_ADDRESS", "redis.internal:6379")

	yamlContent := `
claude:
  cli_path: "claude"
  model: "sonnet"
redis:
  address: "localhost:6379"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/claude", config.Claude.CLIPath, "环境变量应覆盖配置文件中的CLI路径")
	assert.Equal(t, "opus", config.Claude.Model)
	assert.Equal(t, "redis.internal:6379", config.Redis.Address)
}

// TestGetDuration 验证时间字符串解析及非法输入的回退行为
func TestGetDuration(t *testing.T) {
	assert.Equal(t, 45*time.Second, GetDuration("45s", time.Minute))
	assert.Equal(t, 2*time.Minute, GetDuration("2m", time.Second))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute), "空字符串应返回默认值")
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute), "非法输入应返回默认值")
}

// TestLoadConfigInTestEnvFallsBackToDefault 测试环境下缺失配置文件时返回默认配置
func TestLoadConfigInTestEnvFallsBackToDefault(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	require.NoError(t, err, "测试环境下缺失配置文件不应报错")
	require.NotNil(t, config)
	assert.Equal(t, "claude", config.Claude.CLIPath)
}

// TestCreateSampleConfig 示例配置应可生成且能被重新加载
func TestCreateSampleConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, CreateSampleConfig(configPath))

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "生成的示例配置应能加载")
	assert.NotEmpty(t, config.Server.Address)
	assert.NotEmpty(t, config.Claude.CLIPath)

	// 已存在的文件不应被覆盖
	assert.Error(t, CreateSampleConfig(configPath))
}
