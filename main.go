package main

import (
	"log"

	api "approvalhub-backend/cmd/api"
	authRepo "approvalhub-backend/internal/auth/repository"
	authUsecase "approvalhub-backend/internal/auth/usecase"
	externalRepo "approvalhub-backend/internal/external/repository"
	"approvalhub-backend/internal/external/scheduler"
	externalUsecase "approvalhub-backend/internal/external/usecase"
	taskRepo "approvalhub-backend/internal/task/repository"
	taskUsecase "approvalhub-backend/internal/task/usecase"
	"approvalhub-backend/pkg/config"
	"approvalhub-backend/pkg/database"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize repositories (dependency injection). Without a database
	// URL everything runs in memory, which is enough for local use.
	var (
		userRepository authRepo.UserRepository
		taskRepository taskRepo.TaskRepository
		syncStore      externalRepo.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		userRepository = authRepo.NewUserRepository(db)
		taskRepository = taskRepo.NewGormTaskRepository(db)
		syncStore = externalRepo.NewGormStore(db)
	} else {
		log.Println("[Main] DATABASE_URL not set, using in-memory storage")
		userRepository = authRepo.NewMemoryUserRepository()
		taskRepository = taskRepo.NewMemoryTaskRepository()
		syncStore = externalRepo.NewMemoryStore()
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, cfg)
	taskUsecaseInstance := taskUsecase.NewTaskUsecase(taskRepository)
	syncUsecaseInstance := externalUsecase.NewExternalSyncService(syncStore, cfg)

	// Converted messages land on the task board
	syncUsecaseInstance.SetTaskSink(taskUsecaseInstance)

	// Start the auto-sync scheduler
	if cfg.AutoSyncEnabled {
		autoSync := scheduler.NewAutoSyncScheduler(syncUsecaseInstance)
		autoSync.Start()
		defer autoSync.Stop()
	} else {
		log.Println("[Main] Auto-sync disabled")
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, taskUsecaseInstance, syncUsecaseInstance, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
