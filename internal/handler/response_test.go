package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/abaflow/practice-api/pkg/errors"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{errors.NewValidation("bad input"), http.StatusUnprocessableEntity},
		{errors.NewNotFound("appointment"), http.StatusNotFound},
		{errors.NewConflict("slot taken"), http.StatusConflict},
		{errors.NewInvalidState("not scheduled"), http.StatusConflict},
		{errors.NewAlreadyJustified(), http.StatusConflict},
		{errors.NewForbidden("nope"), http.StatusForbidden},
		{fmt.Errorf("database on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		RespondError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, fmt.Errorf("pq: connection refused host=10.0.0.5"))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "internal server error")
}
