package delivery

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"

	"campus-erp/internal/domain"
	"campus-erp/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/notification.html"))

// ErrNoAddress is returned when the recipient has no email on file.
var ErrNoAddress = errors.New("recipient has no email address")

// AddressBook resolves an actor to a deliverable email address.
type AddressBook interface {
	EmailFor(ctx context.Context, actor domain.Actor) (string, error)
}

// StudentDirectory looks addresses up in the students table. Staff
// addresses live outside this service.
type StudentDirectory struct {
	Students repository.StudentRepository
}

func (d StudentDirectory) EmailFor(ctx context.Context, actor domain.Actor) (string, error) {
	if actor.Type != domain.UserTypeStudent {
		return "", ErrNoAddress
	}
	student, err := d.Students.GetByID(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	if student.Email == "" {
		return "", ErrNoAddress
	}
	return student.Email, nil
}

type EmailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type emailChannel struct {
	sender    EmailSender
	addresses AddressBook
	fromEmail string
}

func NewEmailChannel(apiKey, fromEmail string, addresses AddressBook) Channel {
	client := resend.NewClient(apiKey)
	return NewEmailChannelWithSender(client.Emails, fromEmail, addresses)
}

func NewEmailChannelWithSender(sender EmailSender, fromEmail string, addresses AddressBook) Channel {
	return &emailChannel{
		sender:    sender,
		addresses: addresses,
		fromEmail: fromEmail,
	}
}

func (c *emailChannel) Kind() domain.Channel { return domain.ChannelEmail }

func (c *emailChannel) Send(ctx context.Context, n domain.Notification) error {
	to, err := c.addresses.EmailFor(ctx, n.Owner())
	if errors.Is(err, ErrNoAddress) || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve email address: %w", err)
	}

	var body bytes.Buffer
	data := struct {
		Title   string
		Message string
	}{
		Title:   n.Title,
		Message: n.Message,
	}
	if err := emailTemplate.ExecuteTemplate(&body, "layout.html", data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Campus <%s>", c.fromEmail),
		To:      []string{to},
		Html:    body.String(),
		Subject: n.Title,
	}
	_, err = c.sender.Send(params)
	return err
}
