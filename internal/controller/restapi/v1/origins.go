package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/andrsolo/Request-Relay/internal/controller/restapi/v1/response"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type originBody struct {
	Domain         string `json:"domain" validate:"required,hostname_rfc1123"`
	OriginURI      string `json:"origin_uri" validate:"required,url"`
	TimeoutMS      int64  `json:"timeout_ms" validate:"omitempty,gt=0"`
	AlertThreshold *int   `json:"alert_threshold" validate:"omitempty,gt=0"`
}

// @Summary 	Create origin
// @Description Registers a domain and the origin requests for it are relayed to
// @Tags 		origins
// @Accept 		json
// @Produce 	json
// @Param 		origin body originBody true "Origin"
// @Success 	201 {object} response.Origin
// @Failure 	400 {object} response.Error "Invalid payload"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/origins [post]
func (r *V1) createOrigin(ctx *fiber.Ctx) error {
	var body originBody
	if err := ctx.BodyParser(&body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid json body")
	}
	if err := r.validate.Struct(body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	origin := &entity.Origin{
		Domain:         body.Domain,
		OriginURI:      body.OriginURI,
		Timeout:        time.Duration(body.TimeoutMS) * time.Millisecond,
		AlertThreshold: body.AlertThreshold,
	}

	if err := r.origins.Create(ctx.UserContext(), origin); err != nil {
		r.logger.Error(err, "restapi - v1 - createOrigin")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusCreated).JSON(toOriginResponse(origin))
}

// @Summary 	List origins
// @Description Lists registered origins with paging
// @Tags 		origins
// @Produce 	json
// @Param 		_start query int    false "Window start offset"
// @Param 		_end   query int    false "Window end offset"
// @Param 		_sort  query string false "Sort column"
// @Param 		_order query string false "ASC or DESC"
// @Success 	200 {object} response.OriginList
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/origins [get]
func (r *V1) listOrigins(ctx *fiber.Ctx) error {
	origins, total, err := r.origins.List(ctx.UserContext(), parsePage(ctx))
	if err != nil {
		r.logger.Error(err, "restapi - v1 - listOrigins")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.OriginList{
		Origins: make([]response.Origin, 0, len(origins)),
		Total:   total,
	}
	for _, origin := range origins {
		resp.Origins = append(resp.Origins, toOriginResponse(origin))
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}

// @Summary 	Get origin
// @Tags 		origins
// @Produce 	json
// @Param 		id path string true "Origin ID(uuid)"
// @Success 	200 {object} response.Origin
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Origin not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/origins/{id} [get]
func (r *V1) getOrigin(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	origin, err := r.origins.GetByID(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "origin not found")
		}
		r.logger.Error(err, "restapi - v1 - getOrigin")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(toOriginResponse(origin))
}

// @Summary 	Update origin
// @Description Updates an origin; the in-memory domain cache is refreshed
// @Tags 		origins
// @Accept 		json
// @Produce 	json
// @Param 		id     path string     true "Origin ID(uuid)"
// @Param 		origin body originBody true "Origin"
// @Success 	200 {object} response.Origin
// @Failure 	400 {object} response.Error "Invalid payload"
// @Failure 	404 {object} response.Error "Origin not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/origins/{id} [put]
func (r *V1) updateOrigin(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	var body originBody
	if err := ctx.BodyParser(&body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid json body")
	}
	if err := r.validate.Struct(body); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, err.Error())
	}

	origin, err := r.origins.GetByID(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "origin not found")
		}
		r.logger.Error(err, "restapi - v1 - updateOrigin")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	origin.Domain = body.Domain
	origin.OriginURI = body.OriginURI
	origin.Timeout = time.Duration(body.TimeoutMS) * time.Millisecond
	origin.AlertThreshold = body.AlertThreshold

	if err := r.origins.Update(ctx.UserContext(), origin); err != nil {
		r.logger.Error(err, "restapi - v1 - updateOrigin")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(toOriginResponse(origin))
}

// @Summary 	Delete origin
// @Description Deletes an origin. Requests already captured for it settle as skipped.
// @Tags 		origins
// @Param 		id path string true "Origin ID(uuid)"
// @Success 	204 "Deleted"
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	404 {object} response.Error "Origin not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/origins/{id} [delete]
func (r *V1) deleteOrigin(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	if err := r.origins.Delete(ctx.UserContext(), id); err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "origin not found")
		}
		r.logger.Error(err, "restapi - v1 - deleteOrigin")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.SendStatus(http.StatusNoContent)
}
