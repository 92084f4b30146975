package httpapi

import "context"

// HealthOutput mirrors spec.md §6's health contract: overall status
// plus a per-source view lifted straight from the rate limiter.
type HealthOutput struct {
	Body struct {
		Status  string            `json:"status" doc:"\"ok\" or \"degraded\""`
		Sources map[string]string `json:"sources" doc:"source_id -> \"ok\"|\"throttled\"|\"unavailable\""`
	}
}

// Health reports the engine's liveness and per-source rate limiter
// status. It never returns an error: a degraded source is surfaced in
// the body, not as an HTTP failure.
func (h *Handler) Health(ctx context.Context, input *struct{}) (*HealthOutput, error) {
	status, sources := h.engine.HealthStatus()
	out := &HealthOutput{}
	out.Body.Status = status
	out.Body.Sources = sources
	return out, nil
}
