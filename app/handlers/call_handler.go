package handlers

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/amirphl/call-congress/app/dto"
	businessflow "github.com/amirphl/call-congress/business_flow"
	"github.com/amirphl/call-congress/utils"
)

// CallHandlerInterface defines the telephony webhook endpoints
type CallHandlerInterface interface {
	CreateCall(c fiber.Ctx) error
	IncomingCall(c fiber.Ctx) error
	Connection(c fiber.Ctx) error
	ZipParse(c fiber.Ctx) error
	MakeCalls(c fiber.Ctx) error
	MakeSingleCall(c fiber.Ctx) error
	CallComplete(c fiber.Ctx) error
	CallCompleteStatus(c fiber.Ctx) error
}

// CallHandler implements CallHandlerInterface
type CallHandler struct {
	flow    businessflow.CallFlow
	timeout time.Duration
}

func NewCallHandler(flow businessflow.CallFlow, timeout time.Duration) CallHandlerInterface {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CallHandler{flow: flow, timeout: timeout}
}

// ErrorResponse standard JSON error
func (h *CallHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// CreateCall places the first call to the user
// @Router /create [post]
func (h *CallHandler) CreateCall(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, utils.PathCreate)
	defer cancel()

	result, err := h.flow.CreateCall(ctx, requestValues(c))
	if err != nil {
		return h.handleError(c, "Create call failed", err)
	}

	status := fiber.StatusOK
	if result.ProviderFailed {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(result)
}

// IncomingCall answers calls to the campaign numbers
// @Router /incoming_call [post]
func (h *CallHandler) IncomingCall(c fiber.Ctx) error {
	return h.twiml(c, utils.PathIncomingCall, h.flow.IncomingCall)
}

// Connection runs when the user picks up the placed call
// @Router /connection [post]
func (h *CallHandler) Connection(c fiber.Ctx) error {
	return h.twiml(c, utils.PathConnection, h.flow.Connection)
}

// ZipParse handles the gathered zip code digits
// @Router /zip_parse [post]
func (h *CallHandler) ZipParse(c fiber.Ctx) error {
	return h.twiml(c, utils.PathZipParse, h.flow.ZipParse)
}

// MakeCalls announces the call block
// @Router /make_calls [post]
func (h *CallHandler) MakeCalls(c fiber.Ctx) error {
	return h.twiml(c, utils.PathMakeCalls, h.flow.MakeCalls)
}

// MakeSingleCall dials one representative
// @Router /make_single_call [post]
func (h *CallHandler) MakeSingleCall(c fiber.Ctx) error {
	return h.twiml(c, utils.PathMakeSingleCall, h.flow.MakeSingleCall)
}

// CallComplete ends one leg
// @Router /call_complete [post]
func (h *CallHandler) CallComplete(c fiber.Ctx) error {
	return h.twiml(c, utils.PathCallComplete, h.flow.CallComplete)
}

// CallCompleteStatus receives the placement status callback
// @Router /call_complete_status [post]
func (h *CallHandler) CallCompleteStatus(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, utils.PathCallCompleteStatus)
	defer cancel()

	result, err := h.flow.CallCompleteStatus(ctx, requestValues(c))
	if err != nil {
		return h.handleError(c, "Call status callback failed", err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

type stepFunc func(ctx context.Context, values url.Values) (*businessflow.CallStep, error)

func (h *CallHandler) twiml(c fiber.Ctx, endpoint string, fn stepFunc) error {
	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	step, err := fn(ctx, requestValues(c))
	if err != nil {
		return h.handleError(c, "Call flow step failed", err)
	}
	doc, err := step.Render()
	if err != nil {
		return h.handleError(c, "Call flow render failed", err)
	}
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
	return c.Status(fiber.StatusOK).SendString(doc)
}

func (h *CallHandler) handleError(c fiber.Ctx, logMsg string, err error) error {
	switch {
	case businessflow.IsMalformedSpecialCall(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Malformed special call", "MALFORMED_SPECIAL_CALL", nil)
	case businessflow.IsNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Not found", errorCode(err, "NOT_FOUND"), nil)
	}
	log.Println(logMsg, c.Get(fiber.HeaderXRequestID), err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", errorCode(err, "INTERNAL_ERROR"), nil)
}

func (h *CallHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, endpoint, h.timeout)
}

// requestValues merges query and form values; form values follow query values.
// A malformed pair is dropped on its own, the rest of the request is kept.
func requestValues(c fiber.Ctx) url.Values {
	values, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationForm) {
		form, _ := url.ParseQuery(string(c.Body()))
		for k, vs := range form {
			values[k] = append(values[k], vs...)
		}
	}
	return values
}
