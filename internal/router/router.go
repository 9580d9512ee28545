package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskhub/backend/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Stats  *apiHandler.StatsHandler
	Health *apiHandler.HealthHandler
}

// Middleware wraps a fasthttp handler; identity function when rate limiting
// is disabled.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, limit Middleware) *router.Router {
	if limit == nil {
		limit = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}

	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.POST("/api/tasks", limit(handlers.Task.CreateTask))
	r.GET("/api/tasks", limit(handlers.Task.GetTasks))
	r.GET("/api/tasks/{id}", limit(handlers.Task.GetTask))
	r.PUT("/api/tasks/{id}", limit(handlers.Task.UpdateTask))
	r.DELETE("/api/tasks/{id}", limit(handlers.Task.DeleteTask))
	r.POST("/api/tasks/{id}/complete", limit(handlers.Task.CompleteTask))

	r.GET("/api/stats", limit(handlers.Stats.GetStatistics))

	return r
}
