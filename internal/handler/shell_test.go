package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestShellPages(t *testing.T) {
	e := newEcho(t)
	e.GET("/", Index)
	e.GET("/profile/", ProfileRedirect)
	e.GET("/healthz", Health)

	rec := doJSON(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/static/app.js")

	rec = doJSON(e, http.MethodGet, "/profile/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = doJSON(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rec.Body.String())
}
