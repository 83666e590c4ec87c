package router

import (
	"context"
	"io"

	"service_marketplace/internal/chat/app"
	"service_marketplace/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// Options route level setting
type Options struct {
	// AllowedOrigins comma separated CORS origins, empty disables CORS
	AllowedOrigins string
	// AccessLog fiber access log output, nil disables it
	AccessLog io.Writer
}

// RegisterRoutes 注册聊天相关的路由
// @title Service Marketplace Chat API
// @version 1.0
// @description Direct messaging between marketplace members
// @host localhost:8080
// @BasePath /
func RegisterRoutes(ctx context.Context, r *fiber.App, chatHandler *app.ChatHandler, chatWebsocket *app.ChatWebsocketHandler, opts Options) {
	if opts.AccessLog != nil {
		r.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: opts.AccessLog,
		}))
	}
	if opts.AllowedOrigins != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowCredentials: opts.AllowedOrigins != "*",
		}))
	}

	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", app.ConnectCheck)
	r.Post("/debug", middlewares.JWTMiddleware(), app.DebugLogFlag)

	chat := r.Group("/api/v1/chat", middlewares.JWTMiddleware())
	chat.Post("/send", chatHandler.Send)
	chat.Get("/messages/:otherUserId", chatHandler.History)
	chat.Get("/users", chatHandler.Users)

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", middlewares.JWTMiddleware(), websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(ctx, c)
	}))
}
