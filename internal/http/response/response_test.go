package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/expense-report/internal/lib/validate"
)

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	Write(rec, req, http.StatusNotFound, "No files found for the user in the specified date range.")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, "No files found for the user in the specified date range.", got.Body)
}

func TestValidationError(t *testing.T) {
	type request struct {
		PeriodEnding string `validate:"required,datetime=2006-01-02"`
		TravelStart  string `validate:"omitempty,datetime=2006-01-02"`
	}

	err := validate.New().Struct(request{TravelStart: "June 10"})
	require.Error(t, err)

	msg := ValidationError(err.(validator.ValidationErrors))
	assert.Contains(t, msg, "field PeriodEnding is a required field")
	assert.Contains(t, msg, "field TravelStart can contain only date in format YYYY-MM-DD")
}
