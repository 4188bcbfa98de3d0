package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"cv-agent-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由。
// apiKey非空时，除健康检查外的所有接口要求 X-API-Key 请求头。
func RegisterRoutes(h *server.Hertz, cvHandler *handler.CVHandler, chatHandler *handler.ChatHandler, apiKey string) {
	// 健康检查不走鉴权
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Key", ""),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	api.POST("/cv/upload", cvHandler.HandleUpload)
	api.POST("/cv/parse", cvHandler.HandleParse)
	api.GET("/cv/parse/stream", cvHandler.HandleParseStream)
	api.GET("/cv/submission/:uuid", cvHandler.HandleSubmission)
	api.POST("/chat", chatHandler.HandleChat)
}
