// httpcontroller/routes.go
package httpcontroller

import (
	"github.com/labstack/echo/v4"
)

// initRoutes initializes the HTML page routes and the metrics endpoint.
func (s *Server) initRoutes() {
	s.setupTemplateRenderer()

	// Catalog pages
	s.Echo.GET("/", s.listingHandler)
	s.Echo.GET("/species/:id", s.speciesCardHandler)
	s.Echo.POST("/species/:id/edit", s.editSubmitHandler)

	// Prometheus metrics
	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}
