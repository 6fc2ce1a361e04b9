package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"query-responder-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	type req struct {
		Query string `json:"query" validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(req{Query: "hi"}))

	err := ValidateRequest(req{})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "is required", ve.Fields["query"])

	err = ValidateRequest(req{Query: "too long"})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields["query"], "at most 5")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"fiber error", fiber.NewError(fiber.StatusNotFound, "nope"), 404},
		{"validation", &ValidationError{Fields: map[string]string{"query": "is required"}}, 400},
		{"invalid input", fmt.Errorf("%w: empty", rag.ErrInvalidInput), 400},
		{"other", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHandlerMiddleware_RendersEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/bad", func(ctx *fiber.Ctx) error {
		return fmt.Errorf("%w: query must not be empty", rag.ErrInvalidInput)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/bad", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, 400, body.Code)
	assert.Contains(t, body.Message, "query must not be empty")
}

func TestSessionID_Precedence(t *testing.T) {
	const secret = "test-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-42",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	app := fiber.New()
	app.Use(OptionalJwt(secret))
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString(SessionID(ctx, ctx.Query("session_id")))
	})

	tests := []struct {
		name   string
		url    string
		header map[string]string
		want   string
	}{
		{"explicit", "/?session_id=abc", map[string]string{"X-Session-ID": "hdr"}, "abc"},
		{"header", "/", map[string]string{"X-Session-ID": "hdr", "Authorization": "Bearer " + signed}, "hdr"},
		{"token", "/", map[string]string{"Authorization": "Bearer " + signed}, "user:u-42"},
		{"bad token falls back to ip", "/", map[string]string{"Authorization": "Bearer nope"}, "ip:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(got), tt.want), string(got))
		})
	}
}
