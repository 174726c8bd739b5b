package advisorchat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/api"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/realtime"
	"github.com/Desarso/advisorchat/sessions"
)

// Re-export the types most callers need
type ChatSession = sessions.ChatSession
type SessionState = sessions.State
type Notifier = sessions.Notifier
type NotifierFunc = sessions.NotifierFunc
type ConnectionStatus = realtime.ConnectionStatus
type Message = models.Message

// Client wires the REST client, the push connection and one chat session
// for a single signed-in user.
type Client struct {
	API       *api.Client
	Transport *realtime.Manager
	Session   *sessions.ChatSession

	cfg    Config
	logger zerolog.Logger
}

// NewClient builds the three layers from cfg. Nothing connects until Start.
func NewClient(cfg Config, logger zerolog.Logger, opts ...sessions.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pushURL := cfg.PushURL()
	if pushURL == "" {
		return nil, fmt.Errorf("no push URL for api_url %q", cfg.APIURL)
	}

	c := &Client{cfg: cfg, logger: logger.With().Str("component", "client").Logger()}

	c.API = api.New(api.Options{
		BaseURL:        cfg.APIURL,
		Token:          cfg.AuthToken,
		Timeout:        cfg.RequestTimeout,
		Logger:         logger,
		OnUnauthorized: c.unauthorized,
	})

	attempts := cfg.MaxReconnectAttempts
	if attempts == 0 {
		// zero means no retries here; the manager reads zero as the default
		attempts = -1
	}
	c.Transport = realtime.NewManager(realtime.Options{
		URL:                  pushURL,
		MaxReconnectAttempts: attempts,
		ReconnectDelay:       cfg.ReconnectDelay,
		Logger:               logger,
	})

	opts = append([]sessions.Option{
		sessions.WithLogger(logger),
		sessions.WithRequestTimeout(cfg.RequestTimeout),
	}, opts...)
	c.Session = sessions.NewChatSession(c.API, c.Transport, opts...)
	return c, nil
}

// Config returns the settings the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Start subscribes the session and connects the push channel when a token
// is configured.
func (c *Client) Start() {
	c.Session.Start(c.API.Token())
}

// Close disconnects and releases the session.
func (c *Client) Close() {
	c.Session.Close()
}

// Login exchanges a Google OAuth code for a token and reconnects the push
// channel with it.
func (c *Client) Login(ctx context.Context, code string) (*models.AuthResult, error) {
	res, err := c.API.GoogleAuth(ctx, code)
	if err != nil {
		return nil, err
	}
	c.reconnect(res.Token)
	return res, nil
}

// Logout ends the backend session and drops the push connection.
func (c *Client) Logout(ctx context.Context) error {
	err := c.API.Logout(ctx)
	c.Transport.Disconnect()
	return err
}

// SetToken switches both channels to token.
func (c *Client) SetToken(token string) {
	c.API.SetToken(token)
	c.reconnect(token)
}

func (c *Client) reconnect(token string) {
	c.Transport.Disconnect()
	if token != "" {
		c.Transport.Connect(token)
	}
}

// unauthorized runs when the backend rejects the token: the REST client has
// already forgotten it, and the push channel would be rejected too.
func (c *Client) unauthorized() {
	c.logger.Warn().Msg("token rejected, disconnecting")
	c.Transport.Disconnect()
}
