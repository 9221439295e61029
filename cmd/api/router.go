package api

import (
	"net/http"

	"approvalhub-backend/internal/auth/delivery"
	authUsecase "approvalhub-backend/internal/auth/usecase"
	externalDelivery "approvalhub-backend/internal/external/delivery"
	taskDelivery "approvalhub-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, taskHandler *taskDelivery.TaskHandler, externalHandler *externalDelivery.ExternalHandler) {
	authHandler := delivery.NewAuthHandler(authUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// Task routes (protected) - the kanban board
		tasks := api.Group("/tasks")
		tasks.Use(delivery.AuthMiddleware(authUc))
		{
			tasks.GET("", taskHandler.GetTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTaskByID)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
		}

		// External sync routes (protected) - connections, rules, messages
		external := api.Group("/external")
		external.Use(delivery.AuthMiddleware(authUc))
		{
			external.GET("/connections", externalHandler.GetConnections)
			external.POST("/connections", externalHandler.AddConnection)
			external.PUT("/connections/:id", externalHandler.UpdateConnection)
			external.DELETE("/connections/:id", externalHandler.DeleteConnection)
			external.POST("/connections/:id/test", externalHandler.TestConnection)
			external.POST("/connections/:id/sync", externalHandler.SyncConnection)

			external.GET("/rules", externalHandler.GetSyncRules)
			external.POST("/rules", externalHandler.AddSyncRule)
			external.PUT("/rules/:id", externalHandler.UpdateSyncRule)
			external.DELETE("/rules/:id", externalHandler.DeleteSyncRule)

			external.GET("/messages", externalHandler.GetExternalMessages)
			external.POST("/messages/convert", externalHandler.ConvertMessages)
		}
	}
}
