package v1

import (
	"errors"
	"net/http"

	"github.com/andrsolo/Request-Relay/internal/controller/restapi/v1/response"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// @Summary 	List delivery attempts
// @Description Lists the attempt audit trail, optionally for one request
// @Tags 		attempts
// @Produce 	json
// @Param 		_start     query int    false "Window start offset"
// @Param 		_end       query int    false "Window end offset"
// @Param 		_sort      query string false "Sort column"
// @Param 		_order     query string false "ASC or DESC"
// @Param 		request_id query string false "Filter by request ID(uuid)"
// @Success 	200 {object} response.AttemptList
// @Failure 	400 {object} response.Error "Invalid filter"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/attempts [get]
func (r *V1) listAttempts(ctx *fiber.Ctx) error {
	var requestID *uuid.UUID
	if s := ctx.Query("request_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return errorResponse(ctx, http.StatusBadRequest, "request_id must be a uuid")
		}
		requestID = &id
	}

	attempts, total, err := r.relay.ListAttempts(ctx.UserContext(), parsePage(ctx), requestID)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - listAttempts")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.AttemptList{
		Attempts: make([]response.Attempt, 0, len(attempts)),
		Total:    total,
	}
	for _, attempt := range attempts {
		resp.Attempts = append(resp.Attempts, toAttemptResponse(attempt))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

// @Summary 	Get attempt
// @Description Returns one delivery attempt with its response snapshot
// @Tags 		attempts
// @Produce 	json
// @Param 		id path string true "Attempt ID(uuid)"
// @Success 	200 {object} response.Attempt
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Attempt not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/attempts/{id} [get]
func (r *V1) getAttempt(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	attempt, err := r.relay.GetAttempt(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "attempt not found")
		}
		r.logger.Error(err, "restapi - v1 - getAttempt")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(toAttemptResponse(attempt))
}
