package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "error with details",
			apiError: &APIError{
				Code:    400,
				Message: "Bad Request",
				Details: "Invalid JSON format",
			},
			want: "Bad Request: Invalid JSON format",
		},
		{
			name: "error without details",
			apiError: &APIError{
				Code:    404,
				Message: "Not Found",
			},
			want: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBadRequestError(t *testing.T) {
	err := BadRequestError("Invalid input", "Field 'callsign' is required")

	if err.Code != http.StatusBadRequest {
		t.Errorf("BadRequestError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if err.Message != "Invalid input" {
		t.Errorf("BadRequestError().Message = %v, want %v", err.Message, "Invalid input")
	}
	if err.Details != "Field 'callsign' is required" {
		t.Errorf("BadRequestError().Details = %v, want %v", err.Details, "Field 'callsign' is required")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("Map", "2024-06-08/W1ABC/x/W1ABC_20m_EU.png")

	if err.Code != http.StatusNotFound {
		t.Errorf("NotFoundError().Code = %v, want %v", err.Code, http.StatusNotFound)
	}
	if err.Message != "Map not found" {
		t.Errorf("NotFoundError().Message = %v, want %v", err.Message, "Map not found")
	}
	if id, ok := err.Context["id"].(string); !ok || id != "2024-06-08/W1ABC/x/W1ABC_20m_EU.png" {
		t.Errorf("NotFoundError().Context['id'] = %v", err.Context["id"])
	}
}

func TestValidationError(t *testing.T) {
	fieldErrors := map[string]string{
		"callsign":      "is required",
		"continents[0]": "is not a known continent code or name",
	}
	err := ValidationError("Validation failed", fieldErrors)

	if err.Code != http.StatusBadRequest {
		t.Errorf("ValidationError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if len(err.FieldError) != 2 {
		t.Errorf("ValidationError().FieldError length = %v, want 2", len(err.FieldError))
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		debug       bool
		wantStatus  int
		wantError   string
		wantDetails string
	}{
		{
			name:        "api error",
			err:         BadRequestError("Invalid Content-Type", "got text/plain"),
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid Content-Type",
			wantDetails: "got text/plain",
		},
		{
			name:        "echo error",
			err:         echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header"),
			wantStatus:  http.StatusUnauthorized,
			wantError:   "Unauthorized",
			wantDetails: "missing authorization header",
		},
		{
			name:        "generic error hidden",
			err:         errors.New("disk on fire"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal server error",
			wantDetails: "An internal error occurred. Please try again later.",
		},
		{
			name:        "generic error in debug",
			err:         errors.New("disk on fire"),
			debug:       true,
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal server error",
			wantDetails: "disk on fire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Debug = tt.debug
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			HTTPErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", rec.Code, tt.wantStatus)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %v", body["error"], tt.wantError)
			}
			if body["details"] != tt.wantDetails {
				t.Errorf("details = %v, want %v", body["details"], tt.wantDetails)
			}
		})
	}
}

func TestGetHTTPMessage(t *testing.T) {
	tests := []struct {
		name string
		code int
		want string
	}{
		{"Bad Request", http.StatusBadRequest, "Bad request"},
		{"Not Found", http.StatusNotFound, "Resource not found"},
		{"Internal Server Error", http.StatusInternalServerError, "Internal server error"},
		{"Unknown Code", 999, http.StatusText(999)}, // Falls back to http.StatusText for unknown codes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getHTTPMessage(tt.code); got != tt.want {
				t.Errorf("getHTTPMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}
