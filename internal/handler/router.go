package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Niraj-Kamdar/datastore/internal/config"
	"github.com/Niraj-Kamdar/datastore/internal/handler/middleware"
	"github.com/Niraj-Kamdar/datastore/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	userService service.UserService,
	userHandler *UserHandler,
	taskHandler *TaskHandler,
	fileHandler *FileHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	r.POST("/create_user/", userHandler.Create)

	// Everything else requires HTTP Basic credentials
	authed := r.Group("/")
	authed.Use(middleware.BasicAuth(userService))
	{
		authed.GET("/users/me", userHandler.Me)

		// Task control
		authed.POST("/create_task/", taskHandler.Create)
		authed.PUT("/pause_task/:task_id", taskHandler.Pause)
		authed.PUT("/resume_task/:task_id", taskHandler.Resume)
		authed.DELETE("/abort_task/:task_id", taskHandler.Abort)

		// Transfers
		authed.PUT("/upload_file/:task_id", fileHandler.Upload)
		authed.GET("/download_file/:task_id", fileHandler.Download)
		authed.DELETE("/delete_file/:task_id", fileHandler.Delete)
	}

	return r
}
