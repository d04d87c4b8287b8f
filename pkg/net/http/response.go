package http

import (
	"net/http"

	"placedir/pkg"

	"github.com/gofiber/fiber/v2"
)

// JSONResponse writes body as JSON with the given HTTP status.
func JSONResponse(c *fiber.Ctx, status int, body any) error {
	return c.Status(status).JSON(body)
}

// OK writes a 200 response with body.
func OK(c *fiber.Ctx, body any) error {
	return JSONResponse(c, http.StatusOK, body)
}

// Created writes a 201 response with body.
func Created(c *fiber.Ctx, body any) error {
	return JSONResponse(c, http.StatusCreated, body)
}

// Accepted writes a 202 response with body.
func Accepted(c *fiber.Ctx, body any) error {
	return JSONResponse(c, http.StatusAccepted, body)
}

// NoContent writes a 204 response with no body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// PartialContent writes a 206 response with body, used when a search or
// feed result was truncated to the requested limit.
func PartialContent(c *fiber.Ctx, body any) error {
	return JSONResponse(c, http.StatusPartialContent, body)
}

// RangeNotSatisfiable writes a 416 response with no body.
func RangeNotSatisfiable(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusRequestedRangeNotSatisfiable)
}

// BadRequest writes a 400 response with body.
func BadRequest(c *fiber.Ctx, body any) error {
	return JSONResponse(c, http.StatusBadRequest, body)
}

// errorBody is the wire shape shared by the coded error responses below.
type errorBody struct {
	Code    string `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Unauthorized writes a 401 response.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusUnauthorized, errorBody{Code: code, Title: title, Message: message})
}

// Forbidden writes a 403 response.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusForbidden, errorBody{Code: code, Title: title, Message: message})
}

// NotFound writes a 404 response.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusNotFound, errorBody{Code: code, Title: title, Message: message})
}

// Conflict writes a 409 response.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusConflict, errorBody{Code: code, Title: title, Message: message})
}

// UnprocessableEntity writes a 422 response.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusUnprocessableEntity, errorBody{Code: code, Title: title, Message: message})
}

// InternalServerError writes a 500 response.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return JSONResponse(c, http.StatusInternalServerError, errorBody{Code: code, Title: title, Message: message})
}

// NotImplemented writes a 501 response whose code field is the numeric status,
// matching the shape handlers get for free from fiber.Map elsewhere.
func NotImplemented(c *fiber.Ctx, message string) error {
	return JSONResponse(c, http.StatusNotImplemented, fiber.Map{
		"code":    http.StatusNotImplemented,
		"title":   "Not Implemented",
		"message": message,
	})
}

// JSONResponseError writes rErr using its own status code.
func JSONResponseError(c *fiber.Ctx, rErr common.ResponseError) error {
	return JSONResponse(c, rErr.Code, rErr)
}
