package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/assassins-go/internal/model"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: game_id=g1", model.ErrGameNotFound), http.StatusNotFound, CodeGameNotFound},
		{model.ErrAssignmentNotFound, http.StatusNotFound, CodeTargetNotFound},
		{model.ErrInvalidEdgeState, http.StatusConflict, CodeInvalidEdgeState},
		{model.ErrEmailTaken, http.StatusConflict, CodeEmailTaken},
		{model.ErrNotAdmin, http.StatusForbidden, CodeNotAdmin},
		{fmt.Errorf("reseed: %w", model.ErrTxConflict), http.StatusServiceUnavailable, CodeContention},
		{model.ErrGameOver, http.StatusUnprocessableEntity, CodeGameOver},
		{fmt.Errorf("%w: bad", model.ErrUnprocessable), http.StatusUnprocessableEntity, CodeUnprocessable},
		{fmt.Errorf("%w: game id is required", model.ErrInvalidID), http.StatusBadRequest, CodeInvalidRequest},
		{NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, c := range cases {
		he := toHTTPError(c.err)
		assert.Equal(t, c.status, he.status, c.err.Error())
		assert.Equal(t, c.code, he.apiError.Code, c.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("connection refused to 10.0.0.1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternalError, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "10.0.0.1")
}
