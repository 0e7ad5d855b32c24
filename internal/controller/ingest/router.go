package ingest

import (
	"net"
	"net/http"
	"strings"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

// NewRouter mounts the capture handler. Every method on every path is
// accepted; classification happens downstream.
func NewRouter(app *fiber.App, relay usecase.RelayUseCase, l logger.Interface) {
	c := &Controller{relay: relay, logger: l}

	app.All("/*", c.capture)
}

type Controller struct {
	relay  usecase.RelayUseCase
	logger logger.Interface
}

func (c *Controller) capture(ctx *fiber.Ctx) error {
	capture := dto.Capture{
		Method:   ctx.Method(),
		Protocol: ctx.Protocol(),
		Hostname: normalizeHostname(ctx.Hostname()),
		URI:      ctx.OriginalURL(),
		Headers:  captureHeaders(ctx),
		Body:     append([]byte(nil), ctx.Body()...),
	}

	req, err := c.relay.Capture(ctx.UserContext(), capture)
	if err != nil {
		c.logger.Error(err, "ingest - Controller - capture")

		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "storage problems"})
	}

	// The stored copy is identified for the caller, but delivery is async:
	// nothing of the origin's eventual answer is available yet.
	ctx.Set("X-Relay-Request-Id", req.ID.String())

	return ctx.SendStatus(http.StatusNoContent)
}

// captureHeaders copies headers in wire order. fasthttp reuses its buffers
// between requests, so everything is copied out.
func captureHeaders(ctx *fiber.Ctx) []entity.Header {
	var headers []entity.Header

	ctx.Request().Header.VisitAll(func(key, value []byte) {
		headers = append(headers, entity.Header{
			Name:  string(key),
			Value: string(value),
		})
	})

	return headers
}

// normalizeHostname lowercases the host and strips any port so lookups hit
// the same origin regardless of how the client addressed us.
func normalizeHostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	return strings.ToLower(host)
}
