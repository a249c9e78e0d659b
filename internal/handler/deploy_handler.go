package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/deploy"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/utils"
)

// DeployRunner runs the deploy steps.
type DeployRunner interface {
	Run(ctx context.Context) error
}

// DeployHandler serves the signed deploy webhook.
type DeployHandler struct {
	secret string
	runner DeployRunner
	logger zerolog.Logger
}

// NewDeployHandler constructs the webhook handler. An empty secret rejects
// every request.
func NewDeployHandler(secret string, runner DeployRunner, logger zerolog.Logger) *DeployHandler {
	return &DeployHandler{
		secret: secret,
		runner: runner,
		logger: logger.With().Str("component", "deploy_handler").Logger(),
	}
}

// Register binds the webhook route.
func (h *DeployHandler) Register(router fiber.Router) {
	router.Post("/deploy", h.trigger)
}

func (h *DeployHandler) trigger(c *fiber.Ctx) error {
	log := middleware.RequestLogger(c, h.logger)

	if err := deploy.VerifySignature(h.secret, c.Body(), c.Get(deploy.SignatureHeader)); err != nil {
		log.Warn().Err(err).Str("ip", c.IP()).Msg("rejected deploy webhook")
		return utils.SendError(c, fiber.StatusForbidden, "invalid signature")
	}

	if err := h.runner.Run(requestContext(c)); err != nil {
		event := log.Error().Err(err)
		var stepErr *deploy.StepError
		if errors.As(err, &stepErr) {
			event = event.Str("step", stepErr.Step).Str("output", stepErr.Output)
		}
		event.Msg("deploy failed")
		return utils.SendError(c, fiber.StatusNotFound, "deploy failed")
	}

	log.Info().Msg("deploy finished")
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "deploy finished", nil)
}
