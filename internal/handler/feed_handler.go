package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/service"
)

const (
	feedWriteWait    = 10 * time.Second
	feedPingInterval = 30 * time.Second
)

// FeedHandler streams booking events to the logged-in tutor over a websocket.
type FeedHandler struct {
	feed   service.FeedService
	logger zerolog.Logger
}

// NewFeedHandler constructs the booking feed handler.
func NewFeedHandler(feed service.FeedService, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the feed route under an authenticated tutor group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/feed", websocket.New(h.stream))
}

func (h *FeedHandler) stream(conn *websocket.Conn) {
	tutorID, ok := conn.Locals("user_id").(uint)
	if !ok || tutorID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "login required"))
		_ = conn.Close()
		return
	}

	events, cancel := h.feed.Subscribe(tutorID)
	defer cancel()

	logger := h.logger.With().Uint("tutor_id", tutorID).Logger()
	logger.Info().Msg("feed connected")
	defer logger.Info().Msg("feed disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, open := <-events:
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
