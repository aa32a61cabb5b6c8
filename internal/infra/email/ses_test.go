package email_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/email"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSendContact(t *testing.T) {
	api := &fakeSES{}
	m := email.NewSESMailerWithAPI(api, "no-reply@trabamex.mx", "ventas@trabamex.mx", zap.NewNop())

	err := m.SendContact(context.Background(), &domain.ContactRequest{
		Name:    "Ana <script>",
		Email:   "ana@empresa.mx",
		Subject: "Cotización",
		Message: "Necesitamos recolección\nmensual",
	})
	require.NoError(t, err)

	in := api.input
	require.Equal(t, "no-reply@trabamex.mx", *in.FromEmailAddress)
	require.Equal(t, []string{"ventas@trabamex.mx"}, in.Destination.ToAddresses)
	require.Equal(t, []string{"ana@empresa.mx"}, in.ReplyToAddresses)
	require.Equal(t, "Contacto web: Cotización", *in.Content.Simple.Subject.Data)

	htmlBody := *in.Content.Simple.Body.Html.Data
	require.Contains(t, htmlBody, "Ana &lt;script&gt;")
	require.Contains(t, htmlBody, "recolección<br>mensual")
	require.True(t, strings.HasSuffix(*in.Content.Simple.Body.Text.Data, "Necesitamos recolección\nmensual"))
}

func TestSendContact_Error(t *testing.T) {
	api := &fakeSES{err: errors.New("throttled")}
	m := email.NewSESMailerWithAPI(api, "a@b.mx", "c@d.mx", zap.NewNop())

	err := m.SendContact(context.Background(), &domain.ContactRequest{Name: "Ana", Email: "ana@empresa.mx", Message: "hola!"})
	require.ErrorContains(t, err, "throttled")
}
