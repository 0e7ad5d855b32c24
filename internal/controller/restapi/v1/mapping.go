package v1

import (
	"time"

	"github.com/andrsolo/Request-Relay/internal/controller/restapi/v1/response"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/gofiber/fiber/v2"
)

func parsePage(ctx *fiber.Ctx) repo.Page {
	return repo.Page{
		Start: ctx.QueryInt("_start", 0),
		End:   ctx.QueryInt("_end", 25),
		Sort:  ctx.Query("_sort"),
		Order: ctx.Query("_order"),
	}
}

func toRequestResponse(req *entity.Request) response.Request {
	headers := make([]response.Header, 0, len(req.Headers))
	for _, h := range req.Headers {
		headers = append(headers, response.Header{Name: h.Name, Value: h.Value})
	}

	resp := response.Request{
		ID:        req.ID.String(),
		Method:    req.Method,
		Protocol:  req.Protocol,
		Hostname:  req.Hostname,
		URI:       req.URI,
		Headers:   headers,
		Body:      string(req.Body),
		State:     int(req.State),
		StateName: req.State.String(),
		CreatedAt: req.CreatedAt.Format(time.RFC3339),
		UpdatedAt: req.UpdatedAt.Format(time.RFC3339),
	}

	if req.FromRequestID != nil {
		from := req.FromRequestID.String()
		resp.FromRequestID = &from
	}
	if req.RetryAt != nil {
		at := req.RetryAt.Format(time.RFC3339)
		resp.RetryAt = &at
	}

	return resp
}

func toAttemptResponse(attempt *entity.Attempt) response.Attempt {
	return response.Attempt{
		ID:             attempt.ID.String(),
		RequestID:      attempt.RequestID.String(),
		ResponseStatus: attempt.ResponseStatus,
		ResponseBody:   string(attempt.ResponseBody),
		CreatedAt:      attempt.CreatedAt.Format(time.RFC3339),
	}
}

func toOriginResponse(origin *entity.Origin) response.Origin {
	return response.Origin{
		ID:             origin.ID.String(),
		Domain:         origin.Domain,
		OriginURI:      origin.OriginURI,
		TimeoutMS:      origin.Timeout.Milliseconds(),
		AlertThreshold: origin.AlertThreshold,
		CreatedAt:      origin.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      origin.UpdatedAt.Format(time.RFC3339),
	}
}
