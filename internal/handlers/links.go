package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkshort/internal/shortener"
	"github.com/serroba/linkshort/internal/telemetry"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal Server Error"

// LinkService is the link registry as seen by the HTTP layer.
type LinkService interface {
	Create(ctx context.Context, in shortener.CreateInput) (*shortener.Link, error)
	Resolve(ctx context.Context, code shortener.Code) (*shortener.Link, error)
}

// LinkHandler handles short link operations.
type LinkHandler struct {
	service LinkService
	emitter shortener.Emitter
	logger  *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(service LinkService, emitter shortener.Emitter, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		emitter: emitter,
		logger:  logger,
	}
}

func (h *LinkHandler) CreateShortURL(
	ctx context.Context, req *CreateShortURLRequest,
) (resp *CreateShortURLResponse, err error) {
	defer h.recoverInternal(&err)

	link, err := h.service.Create(ctx, shortener.CreateInput{
		URL:             req.Body.URL,
		ValidityMinutes: req.Body.Validity,
		Shortcode:       req.Body.Shortcode,
	})
	if err != nil {
		return nil, h.toHTTPError(err)
	}

	resp = &CreateShortURLResponse{}
	resp.Body.ShortLink = link.ShortLink
	resp.Body.Expiry = link.ExpiresAt.UTC()

	return resp, nil
}

func (h *LinkHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (resp *RedirectResponse, err error) {
	defer h.recoverInternal(&err)

	link, err := h.service.Resolve(ctx, shortener.Code(req.Shortcode))
	if err != nil {
		return nil, h.toHTTPError(err)
	}

	return &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: link.OriginalURL,
	}, nil
}

// toHTTPError maps service errors to HTTP errors. Expected outcomes keep
// their message; anything else is reported at fatal level and answered with
// a generic 500.
func (h *LinkHandler) toHTTPError(err error) error {
	switch {
	case errors.Is(err, shortener.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, shortener.ErrCollision):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, shortener.ErrExpired):
		return huma.NewError(http.StatusGone, err.Error())
	default:
		return h.internalError(err)
	}
}

func (h *LinkHandler) internalError(err error) error {
	h.logger.Error("unhandled error", zap.Error(err))
	h.emitter.Emit(telemetry.LevelFatal, telemetry.PackageHandler, "An unhandled error occurred: "+err.Error())

	return huma.Error500InternalServerError(internalErrorMessage)
}

func (h *LinkHandler) recoverInternal(err *error) {
	if r := recover(); r != nil {
		*err = h.internalError(fmt.Errorf("panic: %v", r))
	}
}
