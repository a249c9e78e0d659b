package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/observability"
)

const slowRequestThreshold = 500 * time.Millisecond

// Observability records request metrics and one structured log line per
// request on the tutor, student, admin and webhook surfaces. Health checks
// and metric scrapes are not observed.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		surface := requestSurface(c.Path())
		if surface == "" {
			return err
		}

		// Route templates keep signup tokens out of labels and logs.
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		fields := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("surface", surface).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("latency", elapsed)
		if tutorID, ok := c.Locals("user_id").(uint); ok {
			fields = fields.Uint("tutor_id", tutorID)
		}
		if elapsed > slowRequestThreshold {
			fields = fields.Bool("slow", true)
		}
		requestLogger := fields.Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("request failed")
		case status >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("request rejected")
		default:
			requestLogger.Info().Msg("request completed")
		}

		return err
	}
}

// requestSurface names the part of the application a path belongs to, or ""
// for paths that are not observed.
func requestSurface(path string) string {
	switch {
	case hasSegmentPrefix(path, "/tutor"):
		return "tutor"
	case hasSegmentPrefix(path, "/signup"):
		return "signup"
	case hasSegmentPrefix(path, "/admin"):
		return "admin"
	case hasSegmentPrefix(path, "/login"), hasSegmentPrefix(path, "/logout"):
		return "auth"
	case hasSegmentPrefix(path, "/deploy"):
		return "deploy"
	default:
		return ""
	}
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
