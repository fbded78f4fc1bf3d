package api

import (
	"chaintask-client/pkg/app"

	"github.com/gin-gonic/gin"
)

// Routes mounts the gateway surface under /api/v1.
func Routes(router *gin.Engine, a *app.App) {
	h := NewHandlers(a)

	apiV1 := router.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", h.LoginController)
			auth.POST("/register", h.RegisterController)
			auth.POST("/logout", LoginRequiredMiddleware(a), h.LogoutController)
		}
		apiV1.GET("/session", h.SessionController)

		walletGroup := apiV1.Group("/wallet")
		{
			walletGroup.Use(LoginRequiredMiddleware(a))
			walletGroup.POST("/connect", h.ConnectWalletController)
			walletGroup.DELETE("/disconnect", h.DisconnectWalletController)
		}

		tasks := apiV1.Group("/tasks")
		{
			tasks.Use(LoginRequiredMiddleware(a), WalletRequiredMiddleware(a))
			tasks.GET("/", h.GetTasksController)
			tasks.POST("/", h.CreateTaskController)
			tasks.GET("/:task-id", h.GetTaskByIdController)
			tasks.PUT("/:task-id", h.EditTaskController)
			tasks.PUT("/:task-id/toggle", h.ToggleTaskController)
			tasks.DELETE("/:task-id", h.DeleteTaskController)
			tasks.PUT("/:task-id/transfer", h.TransferTaskController)
			tasks.PATCH("/:task-id/metadata", h.PatchMetadataController)
		}

		apiV1.GET("/notifications", LoginRequiredMiddleware(a), h.GetNotificationsController)
	}
}
