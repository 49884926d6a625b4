package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/sirupsen/logrus"

	"tisops-insights-go/internal/logger"
)

// Poster is the part of *slack.Client the notifier needs.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type Slack struct {
	client  Poster
	channel string
	log     *logrus.Entry
}

func NewSlack(token, channelID string) *Slack {
	return NewSlackWithClient(slack.New(token), channelID)
}

func NewSlackWithClient(client Poster, channelID string) *Slack {
	return &Slack{
		client:  client,
		channel: channelID,
		log:     logger.New().WithField("component", "notify.slack").WithField("channel", channelID),
	}
}

// Post sends text as a plain mrkdwn message.
func (s *Slack) Post(ctx context.Context, text string) error {
	_, ts, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("post to %s: %w", s.channel, err)
	}
	s.log.WithField("ts", ts).Info("summary posted")
	return nil
}
