package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ChatModulePrefix 聊天模块
	ChatModulePrefix = "chat"
	// CVModulePrefix 简历模块
	CVModulePrefix = "cv"

	// EntityHistory 会话历史实体
	EntityHistory = "history"
	// EntityProfile 候选人档案实体
	EntityProfile = "profile"

	// KeyChatHistoryPrefix 会话历史 (LIST)
	// 格式: app:chat:history:{conversationID}
	KeyChatHistoryPrefix = AppPrefix + ":" + ChatModulePrefix + ":" + EntityHistory + ":"

	// KeyCandidateProfile 解析完成的候选人档案缓存 (STRING)
	// 格式: app:cv:profile:{filenameStem}
	KeyCandidateProfile = AppPrefix + ":" + CVModulePrefix + ":" + EntityProfile + ":%s"
)
