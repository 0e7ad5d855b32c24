package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andrsolo/Request-Relay/internal/controller/restapi/v1/response"
	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// @Summary 	List relayed requests
// @Description Lists stored requests with paging, sorting and filtering
// @Tags 		requests
// @Produce 	json
// @Param 		_start query int    false "Window start offset"
// @Param 		_end   query int    false "Window end offset"
// @Param 		_sort  query string false "Sort column"
// @Param 		_order query string false "ASC or DESC"
// @Param 		state query string false "Comma-separated state codes"
// @Param 		id    query string false "Comma-separated request ids"
// @Success 	200 {object} response.RequestList
// @Failure 	400 {object} response.Error "Invalid filter"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/requests [get]
func (r *V1) listRequests(ctx *fiber.Ctx) error {
	filter, err := parseRequestFilter(ctx)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	requests, total, err := r.relay.ListRequests(ctx.UserContext(), parsePage(ctx), filter)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - listRequests")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.RequestList{
		Requests: make([]response.Request, 0, len(requests)),
		Total:    total,
	}
	for _, req := range requests {
		resp.Requests = append(resp.Requests, toRequestResponse(req))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

func parseRequestFilter(ctx *fiber.Ctx) (repo.RequestFilter, error) {
	var filter repo.RequestFilter

	if states := ctx.Query("state"); states != "" {
		for _, s := range strings.Split(states, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return filter, errors.New("state must be a number")
			}
			state, err := entity.ParseState(code)
			if err != nil {
				return filter, err
			}
			filter.States = append(filter.States, state)
		}
	}

	if ids := ctx.Query("id"); ids != "" {
		for _, s := range strings.Split(ids, ",") {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err != nil {
				return filter, errors.New("id must be a uuid")
			}
			filter.IDs = append(filter.IDs, id)
		}
	}

	return filter, nil
}

// @Summary 	Get request
// @Description Returns one stored request with its lifecycle fields
// @Tags 		requests
// @Produce 	json
// @Param 		id path string true "Request ID(uuid)"
// @Success 	200 {object} response.Request
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Request not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/requests/{id} [get]
func (r *V1) getRequest(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	req, err := r.relay.GetRequest(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "request not found")
		}
		r.logger.Error(err, "restapi - v1 - getRequest")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(toRequestResponse(req))
}

type resubmitRequestBody struct {
	Method  string            `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	URI     string            `json:"uri" validate:"required"`
	Headers []response.Header `json:"headers"`
	Body    string            `json:"body"`
}

// @Summary 	Edit and re-queue request
// @Description Creates an edited copy of a stored request and queues it for delivery. The original stays untouched.
// @Tags 		requests
// @Accept 		json
// @Produce 	json
// @Param 		id path string true "Request ID(uuid)"
// @Param 		request body resubmitRequestBody true "Edited fields"
// @Success 	201 {object} response.Request
// @Failure 	400 {object} response.Error "Invalid payload"
// @Failure 	404 {object} response.Error "Request not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/requests/{id} [put]
func (r *V1) resubmitRequest(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	var body resubmitRequestBody
	if err := ctx.BodyParser(&body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid json body")
	}
	if err := r.validate.Struct(body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	headers := make([]entity.Header, 0, len(body.Headers))
	for _, h := range body.Headers {
		headers = append(headers, entity.Header{Name: h.Name, Value: h.Value})
	}

	retry, err := r.relay.Resubmit(ctx.UserContext(), id, dto.RequestEdit{
		Method:  body.Method,
		URI:     body.URI,
		Headers: headers,
		Body:    []byte(body.Body),
	})
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "request not found")
		}
		r.logger.Error(err, "restapi - v1 - resubmitRequest")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusCreated).JSON(toRequestResponse(retry))
}
