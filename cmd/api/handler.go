package api

import (
	authUsecase "approvalhub-backend/internal/auth/usecase"
	externalDelivery "approvalhub-backend/internal/external/delivery"
	externalUsecase "approvalhub-backend/internal/external/usecase"
	taskDelivery "approvalhub-backend/internal/task/delivery"
	taskUsecasePkg "approvalhub-backend/internal/task/usecase"
	"approvalhub-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecase.AuthUsecase
	config          *config.Config
	taskHandler     *taskDelivery.TaskHandler
	externalHandler *externalDelivery.ExternalHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, taskUc taskUsecasePkg.TaskUsecase, syncUc externalUsecase.ExternalSyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase:     authUc,
		config:          cfg,
		taskHandler:     taskDelivery.NewTaskHandler(taskUc),
		externalHandler: externalDelivery.NewExternalHandler(syncUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.authUsecase, h.taskHandler, h.externalHandler)

	return r.Run(addr)
}
