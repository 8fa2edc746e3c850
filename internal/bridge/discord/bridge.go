package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/pulseboard/realtime-backend/internal/client"
	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// discordSession interface allows for mocking the Discord session in tests.
type discordSession interface {
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config holds configuration for the Discord bridge.
type Config struct {
	// Token is the bot token from Discord Developer Portal (required)
	Token string

	// ChannelID is the channel notifications are mirrored into (required)
	ChannelID string

	// RateLimit caps outbound messages per second
	RateLimit float64

	// RateBurst is the burst capacity for the rate limiter
	RateBurst int

	// Logger is an optional slog.Logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("discord: token is required")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("discord: channel ID is required")
	}
	if c.RateLimit == 0 {
		c.RateLimit = 1 // Conservative default for a notification channel
	}
	if c.RateBurst == 0 {
		c.RateBurst = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Bridge mirrors notification:new events into a Discord channel. It is a
// headless consumer of the subscription layer: it authenticates and joins
// rooms exactly like a browser client would.
type Bridge struct {
	config      Config
	session     discordSession
	manager     *client.Manager
	limiter     *rate.Limiter
	logger      *slog.Logger
	queue       chan *domain.NotificationPayload
	unsubscribe func()

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBridge creates a bridge using a real Discord session.
func NewBridge(config Config, manager *client.Manager) (*Bridge, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return newBridge(config, session, manager), nil
}

func newBridge(config Config, session discordSession, manager *client.Manager) *Bridge {
	return &Bridge{
		config:  config,
		session: session,
		manager: manager,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		logger:  config.Logger.With("bridge", "discord"),
		queue:   make(chan *domain.NotificationPayload, 100),
	}
}

// Start opens the Discord session and subscribes to notifications. Messages
// are relayed by a single worker so Discord's rate limits are respected even
// during bursts.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("bridge already started")
	}
	b.started = true
	workerCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		cancel()
		return fmt.Errorf("opening discord session: %w", err)
	}

	b.unsubscribe = b.manager.Subscribe(domain.EventNotificationNew, func(p domain.Payload) {
		notification, ok := p.(*domain.NotificationPayload)
		if !ok {
			return
		}
		select {
		case b.queue <- notification:
		default:
			b.logger.Warn("notification queue full, dropping",
				"notification_id", notification.ID,
			)
		}
	})

	b.wg.Add(1)
	go b.relayLoop(workerCtx)

	b.logger.Info("discord bridge started", "channel_id", b.config.ChannelID)
	return nil
}

func (b *Bridge) relayLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-b.queue:
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}
			b.send(notification)
		}
	}
}

func (b *Bridge) send(notification *domain.NotificationPayload) {
	content := formatNotification(notification)
	if _, err := b.session.ChannelMessageSend(b.config.ChannelID, content); err != nil {
		b.logger.Error("failed to relay notification",
			"notification_id", notification.ID,
			"error", err,
		)
		return
	}
	b.logger.Debug("notification relayed", "notification_id", notification.ID)
}

func formatNotification(n *domain.NotificationPayload) string {
	if n.Body == "" {
		return fmt.Sprintf("**%s**", n.Title)
	}
	return fmt.Sprintf("**%s**\n%s", n.Title, n.Body)
}

// Stop unsubscribes, drains the worker, and closes the Discord session.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	cancel := b.cancel
	b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	cancel()
	b.wg.Wait()
	return b.session.Close()
}
