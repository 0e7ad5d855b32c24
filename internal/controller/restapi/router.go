package restapi

import (
	"github.com/andrsolo/Request-Relay/config"
	v1 "github.com/andrsolo/Request-Relay/internal/controller/restapi/v1"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// @title Request relay management API
// @version 1.0.0
// @host localhost:8081
// @BasePath /v1
func NewRouter(app *fiber.App, cfg *config.Config, relay usecase.RelayUseCase, origins usecase.OriginUseCase, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewRelayRoutes(apiV1Group, relay, origins, l)
	}
}
