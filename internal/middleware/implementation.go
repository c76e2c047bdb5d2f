package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/akolanti/landbot/internal/adapter/utils"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/pkg/logger_i"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	req := re.req
	if req == nil {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusBadRequest,
			errorMessage: "request is empty",
			code:         "INVALID_INPUT",
		}
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With(config.TRACE_ID_KEY, trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	re.writer.Header().Set("X-Trace-Id", trace)
	re.req = req.WithContext(ctx)
	return re
}

func (m *Middleware) allowedHost(re requestResponseStruct) requestResponseStruct {
	if m.settings.HostAllowed(re.req.Host) {
		return re
	}
	re.badRequest = failureStruct{
		isBadRequest: true,
		httpCode:     http.StatusBadRequest,
		errorMessage: "Invalid host header",
		code:         "INVALID_INPUT",
	}
	return re
}

func (m *Middleware) authenticate(re requestResponseStruct) requestResponseStruct {
	if !IsValidBearerToken(re.req.Header.Get("Authorization"), m.settings, re.logger) {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusUnauthorized,
			errorMessage: "Unauthorized",
			code:         "UNAUTHORIZED",
		}
		return re
	}
	re.logger.Debug("Authorized")
	return re
}

// IsValidBearerToken compares in constant time. With no AUTH_TOKEN configured, debug
// mode lets everything through and production rejects everything.
func IsValidBearerToken(authHeader string, settings *config.Settings, log *logger_i.Logger) bool {
	if settings.AuthToken == "" {
		if settings.Debug {
			log.Warn("AUTH_TOKEN is empty, auth bypassed in debug mode")
			return true
		}
		log.Error("AUTH_TOKEN is not configured")
		return false
	}
	if authHeader == "" {
		log.Warn("Empty authorization header")
		return false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		log.Warn("No Bearer header")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(authHeader, "Bearer ")), []byte(settings.AuthToken)) != 1 {
		log.Warn("Invalid authorization header")
		return false
	}
	return true
}

func (m *Middleware) rateLimiter(re requestResponseStruct) requestResponseStruct {
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !m.limiter.Allow(ip) {
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Trop de requêtes, réessayez dans un instant",
			code:         "RATE_LIMITED",
		}
		return re
	}
	return re
}
