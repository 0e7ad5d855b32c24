package v1

import (
	"errors"
	"net/http"

	"github.com/andrsolo/Request-Relay/internal/controller/restapi/v1/response"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type queueRequestBody struct {
	RequestID string `json:"req_id" validate:"required,uuid"`
}

// @Summary 	Queue request for delivery
// @Description Re-executes a stored request as a fresh copy, bypassing backoff
// @Tags 		queue
// @Accept 		json
// @Produce 	json
// @Param 		request body queueRequestBody true "Request to queue"
// @Success 	202 {object} response.Queued
// @Failure 	400 {object} response.Error "Invalid payload"
// @Failure 	404 {object} response.Error "Request not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/queue [post]
func (r *V1) queueRequest(ctx *fiber.Ctx) error {
	var body queueRequestBody
	if err := ctx.BodyParser(&body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid json body")
	}
	if err := r.validate.Struct(body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	id, err := uuid.Parse(body.RequestID)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "req_id must be a uuid")
	}

	retry, err := r.relay.Requeue(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "request not found")
		}
		r.logger.Error(err, "restapi - v1 - queueRequest")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusAccepted).JSON(response.Queued{
		RequestID: retry.ID.String(),
		State:     int(retry.State),
	})
}
