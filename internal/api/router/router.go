package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/clinic-notifier/internal/api/handlers/notification"
)

func New(handler *notification.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api/notify")
	{
		api.POST("/", handler.Submit)
		api.GET("/:id", handler.GetStatus)
	}

	return e
}
