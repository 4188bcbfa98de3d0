package agent

import (
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryChatMemoryBasic(t *testing.T) {
	mem := NewInMemoryChatMemory(0)

	history, err := mem.GetHistory("missing")
	require.NoError(t, err)
	assert.Empty(t, history, "不存在的会话应返回空历史")

	require.NoError(t, mem.AddMessage("s1", schema.UserMessage("hello")))
	require.NoError(t, mem.AddMessage("s1", schema.AssistantMessage("hi", nil)))

	history, err = mem.GetHistory("s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, schema.Assistant, history[1].Role)
}

func TestInMemoryChatMemoryCap(t *testing.T) {
	// 上限20条，即10轮问答
	mem := NewInMemoryChatMemory(20)

	// 写入11轮问答，共22条消息
	for i := 0; i < 11; i++ {
		require.NoError(t, mem.AddMessages("s1", []*schema.Message{
			schema.UserMessage(fmt.Sprintf("question %d", i)),
			schema.AssistantMessage(fmt.Sprintf("answer %d", i), nil),
		}))
	}

	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	require.Len(t, history, 20, "超过上限后应只保留最新20条")

	// 第0轮已被挤出，最新一轮还在
	assert.Equal(t, "question 1", history[0].Content)
	assert.Equal(t, "answer 10", history[19].Content)
}

func TestInMemoryChatMemoryClear(t *testing.T) {
	mem := NewInMemoryChatMemory(0)
	require.NoError(t, mem.AddMessage("s1", schema.UserMessage("hello")))

	require.NoError(t, mem.ClearHistory("s1"))

	history, err := mem.GetHistory("s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// 清除不存在的会话应静默成功
	assert.NoError(t, mem.ClearHistory("never-existed"))
}

func TestInMemoryChatMemoryRejectsNil(t *testing.T) {
	mem := NewInMemoryChatMemory(0)

	assert.Error(t, mem.AddMessage("s1", nil))
	assert.Error(t, mem.AddMessages("s1", []*schema.Message{schema.UserMessage("ok"), nil}))
}

func TestInMemoryChatMemorySessionIsolation(t *testing.T) {
	mem := NewInMemoryChatMemory(0)
	require.NoError(t, mem.AddMessage("alice", schema.UserMessage("from alice")))
	require.NoError(t, mem.AddMessage("bob", schema.UserMessage("from bob")))

	aliceHistory, err := mem.GetHistory("alice")
	require.NoError(t, err)
	require.Len(t, aliceHistory, 1)
	assert.Equal(t, "from alice", aliceHistory[0].Content)

	bobHistory, err := mem.GetHistory("bob")
	require.NoError(t, err)
	require.Len(t, bobHistory, 1)
	assert.Equal(t, "from bob", bobHistory[0].Content)
}
