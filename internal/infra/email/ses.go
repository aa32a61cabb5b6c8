// Package email sends contact-form submissions through AWS SES (SESv2 API).
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// SendAPI is the subset of the SESv2 client used here.
type SendAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer implements port.Mailer.
type SESMailer struct {
	api       SendAPI
	fromEmail string
	toEmail   string
	logger    *zap.Logger
}

// NewSESMailer builds a mailer from an AWS config.
func NewSESMailer(cfg aws.Config, fromEmail, toEmail string, logger *zap.Logger) *SESMailer {
	return NewSESMailerWithAPI(sesv2.NewFromConfig(cfg), fromEmail, toEmail, logger)
}

// NewSESMailerWithAPI builds a mailer over any SendAPI implementation.
func NewSESMailerWithAPI(api SendAPI, fromEmail, toEmail string, logger *zap.Logger) *SESMailer {
	return &SESMailer{api: api, fromEmail: fromEmail, toEmail: toEmail, logger: logger}
}

// SendContact forwards a contact request to the sales inbox. Replies go to
// the sender.
func (m *SESMailer) SendContact(ctx context.Context, req *domain.ContactRequest) error {
	subject := "Contacto web"
	if req.Subject != "" {
		subject = "Contacto web: " + req.Subject
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.fromEmail),
		Destination:      &sestypes.Destination{ToAddresses: []string{m.toEmail}},
		ReplyToAddresses: []string{req.Email},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(contactHTML(req)), Charset: aws.String("UTF-8")},
					Text: &sestypes.Content{Data: aws.String(contactText(req)), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := m.api.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if out != nil && out.MessageId != nil {
		m.logger.Info("email: contact forwarded", zap.String("message_id", *out.MessageId))
	}
	return nil
}

func contactFields(req *domain.ContactRequest) [][2]string {
	return [][2]string{
		{"Nombre", req.Name},
		{"Correo", req.Email},
		{"Teléfono", req.Phone},
		{"Empresa", req.Company},
	}
}

func contactText(req *domain.ContactRequest) string {
	var b strings.Builder
	for _, f := range contactFields(req) {
		if f[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
		}
	}
	b.WriteString("\n")
	b.WriteString(req.Message)
	return b.String()
}

func contactHTML(req *domain.ContactRequest) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="es"><body style="font-family:sans-serif">`)
	b.WriteString("<table>")
	for _, f := range contactFields(req) {
		if f[1] != "" {
			fmt.Fprintf(&b, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", f[0], html.EscapeString(f[1]))
		}
	}
	b.WriteString("</table><p>")
	b.WriteString(strings.ReplaceAll(html.EscapeString(req.Message), "\n", "<br>"))
	b.WriteString("</p></body></html>")
	return b.String()
}

// LogMailer only logs submissions. Used when SES is not configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendContact(_ context.Context, req *domain.ContactRequest) error {
	m.Logger.Info("email: SES not configured, contact request logged only",
		zap.String("email", req.Email),
		zap.String("name", req.Name),
	)
	return nil
}
