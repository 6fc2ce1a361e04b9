package service

import (
	"context"
	"time"

	"query-responder-be/internal/dto"
)

const ServiceName = "Query Responder RAG API"

// Pinger is anything whose liveness can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type healthService struct {
	probes  map[string]Pinger
	static  map[string]string
	timeout time.Duration
}

// NewHealthService probes each entry of probes on every check; static entries
// are reported as given and never degrade the status.
func NewHealthService(probes map[string]Pinger, static map[string]string) IHealthService {
	return &healthService{
		probes:  probes,
		static:  static,
		timeout: 2 * time.Second,
	}
}

func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	checks := make(map[string]string, len(s.probes)+len(s.static))
	for name, v := range s.static {
		checks[name] = v
	}

	healthy := true
	for name, p := range s.probes {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			checks[name] = "error: " + err.Error()
			continue
		}
		checks[name] = "ok"
	}

	res := &dto.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Message:   "All systems operational",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
	if !healthy {
		res.Status = "degraded"
		res.Message = "Some dependencies are unavailable; answers may fall back to degraded modes"
	}
	return res
}
