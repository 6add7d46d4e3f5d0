package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"evalgo.org/gridmapper/internal/auth"
	"evalgo.org/gridmapper/internal/generator"
	"evalgo.org/gridmapper/internal/validation"
	"evalgo.org/gridmapper/models"
)

// generateMap handles POST /api/generate-map. The response body is the
// generation result for successes and for failures found while
// generating; malformed requests get a validation error with field errors.
// @Summary Generate grid square maps
// @Description Parse a contest log and render one map per band and continent
// @Tags Maps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param X-Request-ID header string false "Request ID, used in map keys when it is 1-64 letters, digits or dashes"
// @Param request body models.GenerationRequest true "Contest log and map options"
// @Success 200 {object} models.GenerationResult "Maps generated"
// @Failure 400 {object} APIError "Invalid request"
// @Failure 401 {object} APIError "Unauthorized"
// @Failure 422 {object} models.GenerationResult "No plottable contacts"
// @Failure 502 {object} models.GenerationResult "Map storage failed"
// @Failure 500 {object} models.GenerationResult "Internal server error"
// @Router /api/generate-map [post]
func (s *Server) generateMap(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestError("Failed to read request body", err.Error())
	}

	req, result := s.validator.ValidateRequestJSON(body)
	if !result.Valid {
		return validationFailure(result)
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"callsign":   req.Callsign,
		"client":     auth.ClientName(c),
		"file":       req.FileName,
	}).Debug("Generating maps")

	ctx := generator.WithRequestID(c.Request().Context(), requestID)
	res := s.generator.Generate(ctx, req)

	return c.JSON(statusFor(res.Failure), res)
}

// validateRequest handles POST /api/validate: it checks a request without
// generating anything.
// @Summary Validate a generation request
// @Description Check a request and its contest log without rendering maps
// @Tags Maps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param request body models.GenerationRequest true "Contest log and map options"
// @Success 200 {object} validation.ValidationResult "Request is valid"
// @Failure 400 {object} validation.ValidationResult "Request is invalid"
// @Failure 401 {object} APIError "Unauthorized"
// @Router /api/validate [post]
func (s *Server) validateRequest(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return BadRequestError("Failed to read request body", err.Error())
	}

	_, result := s.validator.ValidateRequestJSON(body)
	if result.Valid {
		return c.JSON(http.StatusOK, result)
	}

	return c.JSON(http.StatusBadRequest, result)
}

// statusFor maps a generation failure to its HTTP status.
func statusFor(kind models.FailureKind) int {
	switch kind {
	case models.FailureNone:
		return http.StatusOK
	case models.FailureValidation:
		return http.StatusBadRequest
	case models.FailureNoContacts:
		return http.StatusUnprocessableEntity
	case models.FailureStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func validationFailure(result *validation.ValidationResult) *APIError {
	fields := make(map[string]string, len(result.Errors))
	for _, e := range result.Errors {
		fields[e.Field] = e.Message
	}
	apiErr := ValidationError("Validation failed", fields)
	apiErr.Details = result.Error()
	return apiErr
}
