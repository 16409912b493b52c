package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"campus-erp/internal/domain"
)

// Sender posts one message to every URL it was created for.
type Sender interface {
	Send(message string, params *types.Params) []error
}

// SenderFactory builds a Sender for concrete service URLs.
type SenderFactory func(urls ...string) (Sender, error)

func shoutrrrSender(urls ...string) (Sender, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// shoutrrrChannel delivers through shoutrrr service URLs. The placeholders
// {user_id} and {user_type} are substituted per recipient, so a URL such as
// ntfy://ntfy.example.com/campus-{user_type}-{user_id} reaches one person.
type shoutrrrChannel struct {
	kind      domain.Channel
	urls      []string
	newSender SenderFactory
}

func NewPushChannel(urls []string) Channel {
	return NewShoutrrrChannel(domain.ChannelPush, urls, shoutrrrSender)
}

func NewSMSChannel(urls []string) Channel {
	return NewShoutrrrChannel(domain.ChannelSMS, urls, shoutrrrSender)
}

func NewShoutrrrChannel(kind domain.Channel, urls []string, factory SenderFactory) Channel {
	return &shoutrrrChannel{
		kind:      kind,
		urls:      append([]string{}, urls...),
		newSender: factory,
	}
}

func (c *shoutrrrChannel) Kind() domain.Channel { return c.kind }

func (c *shoutrrrChannel) Send(ctx context.Context, n domain.Notification) error {
	if len(c.urls) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	replacer := strings.NewReplacer(
		"{user_id}", n.UserID.String(),
		"{user_type}", string(n.UserType),
	)
	urls := make([]string, len(c.urls))
	for i, u := range c.urls {
		urls[i] = replacer.Replace(u)
	}

	sender, err := c.newSender(urls...)
	if err != nil {
		return fmt.Errorf("failed to create %s sender: %w", c.kind, err)
	}

	params := types.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	return errors.Join(sender.Send(n.Message, &params)...)
}
