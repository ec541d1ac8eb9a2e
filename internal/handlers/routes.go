package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/projecty/backend/internal/websocket"
)

// RegisterRoutes mounts the API on r. requireAuth guards everything except
// register, login and interests; authLimit, when non-nil, runs before the
// credential endpoints. ws may be nil.
func (h *Handlers) RegisterRoutes(r *gin.Engine, requireAuth, authLimit gin.HandlerFunc, ws *websocket.Handler) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if ws != nil {
		r.GET("/ws", ws.HandleWebSocket)
		r.GET("/ws/metrics", requireAuth, ws.HandleMetrics)
	}

	api := r.Group("/api/v1")

	credentials := []gin.HandlerFunc{}
	if authLimit != nil {
		credentials = append(credentials, authLimit)
	}
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", append(credentials, h.Register)...)
		authGroup.POST("/signup", append(credentials, h.Register)...)
		authGroup.POST("/login", append(credentials, h.Login)...)
		authGroup.GET("/interests", h.Interests)
		authGroup.POST("/logout", requireAuth, h.Logout)
		authGroup.GET("/me", requireAuth, h.Me)
		authGroup.POST("/onboarding", requireAuth, h.CompleteOnboarding)
	}

	authed := api.Group("")
	authed.Use(requireAuth)

	postsGroup := authed.Group("/posts")
	{
		postsGroup.GET("", h.ListPosts)
		postsGroup.POST("", h.CreatePost)
		postsGroup.GET("/user/:userId", h.ListUserPosts)
		postsGroup.GET("/:id", h.GetPost)
		postsGroup.POST("/:id/like", h.ToggleLike)
		postsGroup.GET("/:id/comments", h.ListComments)
		postsGroup.POST("/:id/comments", h.AddComment)
	}
	authed.POST("/likes/:postId", h.ToggleLike)
	authed.GET("/comments/:postId", h.ListComments)
	authed.POST("/comments/:postId", h.AddComment)

	authed.GET("/feed/hybrid", h.HybridFeed)

	authed.GET("/profile/:userId", h.GetProfile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.POST("/users/:userId/follow", h.ToggleFollow)
	authed.POST("/users/:userId/block", h.ToggleBlock)

	messages := authed.Group("/messages")
	{
		messages.GET("", h.ListConversations)
		messages.POST("", h.SendMessage)
		messages.POST("/start", h.StartConversation)
		messages.GET("/:conversationId", h.GetMessages)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread", h.UnreadNotifications)
		notifications.POST("/read", h.MarkNotificationsRead)
	}

	authed.GET("/search", h.Search)
}
