package handlers

import (
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

var (
	humaNewError    = huma.NewError
	installErrorMap sync.Once
)

// newError reports request validation failures as 400 Bad Request. Client
// input that does not match the schema is a malformed request here.
func newError(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	return humaNewError(status, msg, errs...)
}

// RegisterRoutes registers the short link routes.
func RegisterRoutes(api huma.API, linkHandler *LinkHandler) {
	installErrorMap.Do(func() {
		huma.NewError = newError
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/shorturls",
		Summary:       "Create short URL",
		Description:   "Creates a short URL, optionally with a custom short code and validity in minutes (default 30).",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, linkHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "redirect-short-url",
		Method:      http.MethodGet,
		Path:        "/shorturls/{shortcode}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL while the short code is valid.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusGone, http.StatusInternalServerError},
	}, linkHandler.RedirectToURL)
}
