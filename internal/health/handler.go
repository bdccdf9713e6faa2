package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// InProcessChecker is the checker for the in-process telemetry transport,
// which is always reachable.
type InProcessChecker struct{}

func (InProcessChecker) Ping(context.Context) error {
	return nil
}

// Counter reports the number of stored links.
type Counter interface {
	Len() int
}

// Handler handles health check operations.
type Handler struct {
	telemetry Checker
	links     Counter
}

// NewHandler creates a new health handler.
func NewHandler(telemetry Checker, links Counter) *Handler {
	return &Handler{telemetry: telemetry, links: links}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status    string `doc:"ok or degraded"                      json:"status"`
		Links     int    `doc:"Stored links, including expired"     json:"links"`
		Telemetry string `doc:"Telemetry transport health"          json:"telemetry"`
	}
}

// Check reports registry size and telemetry transport health. An
// unreachable transport degrades the status but never fails the check:
// link handling does not depend on it.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Links = h.links.Len()

	if err := h.telemetry.Ping(ctx); err != nil {
		resp.Body.Telemetry = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Telemetry = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
