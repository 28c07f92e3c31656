package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/newsroom-rundown/internal/middleware"
	"github.com/iliyamo/newsroom-rundown/internal/model"
)

// RegisterNewsroom registers the rundown, show, story and wire endpoints
// under /v1.  Every route needs a valid access token; scheduling, status
// changes and wire imports are for producers only.  Listings are cached;
// the writes that add to them invalidate the station's entries.
func RegisterNewsroom(e *echo.Echo, d Deps, limiter, cache, invalidate echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleEditor, model.RoleProducer),
		limiter,
	)
	producer := middleware.RequireRole(model.RoleProducer)

	// ---- Rundowns ----
	g.GET("/rundowns/:id", d.Rundowns.Get)
	g.POST("/rundowns/:id/items", d.Rundowns.AddItem)
	g.PUT("/rundowns/:id/order", d.Rundowns.Reorder)
	g.PUT("/rundowns/:id/status", d.Rundowns.SetStatus, producer)
	g.PATCH("/rundown-items/:id", d.Rundowns.UpdateItem)
	g.DELETE("/rundown-items/:id", d.Rundowns.DeleteItem)

	// ---- Shows ----
	g.POST("/shows", d.Shows.Create, producer, invalidate)
	g.GET("/shows", d.Shows.List, cache)
	g.GET("/shows/:id", d.Shows.Get)
	g.POST("/shows/:id/instances", d.Shows.CreateInstance, producer, invalidate)
	g.GET("/shows/:id/instances", d.Shows.ListInstances, cache)
	g.GET("/show-instances/:id", d.Shows.GetInstance)

	// ---- Stories ----
	g.POST("/stories", d.Stories.Create, invalidate)
	g.GET("/stories", d.Stories.List, cache)
	g.GET("/stories/:id", d.Stories.Get)

	// ---- Wire ----
	g.POST("/wire/import", d.Wire.Import, producer, invalidate)
}
