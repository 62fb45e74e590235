package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
)

// SlackAdapter implements Adapter for Slack using Socket Mode.
type SlackAdapter struct {
	botToken string
	appToken string
	client   *slack.Client
	socket   *socketmode.Client
	handler  MessageHandler
	threads  map[string]string // channelID:userID -> thread_ts
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewSlackAdapter creates a Slack gateway adapter.
// botToken is the Bot User OAuth Token (xoxb-...).
// appToken is the App-Level Token (xapp-...) for Socket Mode.
func NewSlackAdapter(botToken, appToken string, logger *zap.Logger) *SlackAdapter {
	client := slack.New(botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socket := socketmode.New(client,
		socketmode.OptionLog(zap.NewStdLog(logger)),
	)

	return &SlackAdapter{
		botToken: botToken,
		appToken: appToken,
		client:   client,
		socket:   socket,
		threads:  make(map[string]string),
		logger:   logger,
	}
}

func (a *SlackAdapter) Platform() string { return "slack" }

func (a *SlackAdapter) OnMessage(h MessageHandler) { a.handler = h }

// Connect starts the Socket Mode event loop in a background goroutine.
func (a *SlackAdapter) Connect(ctx context.Context) error {
	go a.handleEvents(ctx)
	go func() {
		if err := a.socket.RunContext(ctx); err != nil {
			a.logger.Error("slack socket mode error", zap.Error(err))
		}
	}()
	a.logger.Info("slack adapter connected via socket mode")
	return nil
}

func (a *SlackAdapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			a.processEvent(evt)
		}
	}
}

func (a *SlackAdapter) processEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		a.socket.Ack(*evt.Request)

		if eventsAPI.Type == slackevents.CallbackEvent {
			switch inner := eventsAPI.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				// Ignore bot messages to avoid loops
				if inner.BotID != "" {
					return
				}
				a.handleSlackMessage(inner)
			}
		}
	}
}

func (a *SlackAdapter) handleSlackMessage(ev *slackevents.MessageEvent) {
	if a.handler == nil {
		return
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}
	key := fmt.Sprintf("%s:%s", ev.Channel, ev.User)
	a.mu.Lock()
	a.threads[key] = threadTS
	a.mu.Unlock()

	a.handler(&InboundMessage{
		Platform:  "slack",
		ChannelID: ev.Channel,
		UserID:    ev.User,
		UserName:  ev.User,
		Content:   ev.Text,
		Timestamp: time.Now(),
		ReplyTo:   threadTS,
	})
}

// Send posts a reply to a Slack channel, threading when possible.
func (a *SlackAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Content, false),
	}
	if msg.ReplyTo != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ReplyTo))
	}

	_, _, err := a.client.PostMessage(msg.ChannelID, opts...)
	if err != nil {
		a.logger.Error("slack send failed",
			zap.String("channel", msg.ChannelID), zap.Error(err))
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

// Close is a no-op; the socket context cancellation handles shutdown.
func (a *SlackAdapter) Close() error {
	return nil
}
