package routes

import (
	"net/http"

	"lifeplanner-api/internal/handlers"
	"lifeplanner-api/internal/logger"
	"lifeplanner-api/internal/occurrence"
	"lifeplanner-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	DB         *gorm.DB
	Reconciler *occurrence.Reconciler
	Hub        *realtime.Hub
	Logger     *zap.Logger
}

func SetupRoutes(deps Deps) *gin.Engine {
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), logger.GinMiddleware(deps.Logger))

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, "+logger.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", logger.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Life planner API is running",
		})
	})
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tasks := handlers.NewTaskHandler(deps.DB, deps.Reconciler, deps.Hub, deps.Logger.Named("tasks"))
	api := ginRouter.Group("/api")
	{
		api.GET("/tasks", tasks.GetTasks)
		api.POST("/tasks", tasks.CreateTask)
		api.GET("/tasks/:id", tasks.GetTaskByID)
		api.PUT("/tasks/:id", tasks.UpdateTask)
		api.DELETE("/tasks/:id", tasks.DeleteTask)
		api.PATCH("/tasks/:id/toggle-completion", tasks.ToggleCompletion)
		api.POST("/tasks/:id/next-occurrence", tasks.CreateNextOccurrence)
		api.POST("/tasks/:id/adjust-recurrences", tasks.AdjustRecurrences)
		api.GET("/tasks/:id/preview", tasks.PreviewOccurrences)
		api.GET("/tasks/:id/subtasks", tasks.GetSubtasks)
		api.POST("/tasks/:id/subtasks", tasks.CreateSubtask)
		api.GET("/calendar", tasks.GetCalendar)
	}

	ws := handlers.NewWSHandler(deps.Hub, deps.Logger.Named("ws"))
	ginRouter.GET("/ws", ws.Subscribe)

	return ginRouter
}
