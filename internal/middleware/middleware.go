package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/handlers"
	"github.com/akolanti/landbot/internal/metrics"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	code         string
}

// Policy selects the optional checks for a route. Trace injection and the host
// allow list always run.
type Policy struct {
	Auth      bool
	RateLimit bool
}

var (
	Public  = Policy{}
	Limited = Policy{RateLimit: true}
	Private = Policy{Auth: true}
)

type Middleware struct {
	settings *config.Settings
	limiter  *IPRateLimiter
	logger   *logger_i.Logger
}

func New(settings *config.Settings) *Middleware {
	return &Middleware{
		settings: settings,
		limiter:  NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND),
		logger:   logger_i.NewLogger("middleware"),
	}
}

func (m *Middleware) Wrap(next http.HandlerFunc, policy Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := m.processRequest(requestResponseStruct{req: r, writer: rec}, policy)

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc()
		re.logger.Debug("Request served", "path", r.URL.Path, "status", rec.Status, "duration", time.Since(start))
	}
}

func (m *Middleware) processRequest(re requestResponseStruct, policy Policy) requestResponseStruct {
	re.logger = m.logger
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = m.allowedHost(re)
	if re.badRequest.isBadRequest {
		return re
	}
	if policy.Auth {
		re = m.authenticate(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	if policy.RateLimit {
		re = m.rateLimiter(re)
	}
	return re
}

// routeLabel keeps metric cardinality bounded by using the chi pattern, not the raw path.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		remote := ""
		if re.req != nil {
			remote = re.req.RemoteAddr
		}
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", remote)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.errorMessage, re.badRequest.code, "")
		return false
	}
	return true
}
