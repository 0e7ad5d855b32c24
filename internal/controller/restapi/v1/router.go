package v1

import (
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

func NewRelayRoutes(apiV1Group fiber.Router, relay usecase.RelayUseCase, origins usecase.OriginUseCase, l logger.Interface) {
	r := &V1{
		relay:    relay,
		origins:  origins,
		logger:   l,
		validate: validator.New(),
	}

	{
		// requests
		apiV1Group.Get("/requests", r.listRequests)
		apiV1Group.Get("/requests/:id", r.getRequest)
		apiV1Group.Put("/requests/:id", r.resubmitRequest)

		// attempts
		apiV1Group.Get("/attempts", r.listAttempts)
		apiV1Group.Get("/attempts/:id", r.getAttempt)

		// manual retry
		apiV1Group.Post("/queue", r.queueRequest)

		// origins
		apiV1Group.Post("/origins", r.createOrigin)
		apiV1Group.Get("/origins", r.listOrigins)
		apiV1Group.Get("/origins/:id", r.getOrigin)
		apiV1Group.Put("/origins/:id", r.updateOrigin)
		apiV1Group.Delete("/origins/:id", r.deleteOrigin)
	}
}
