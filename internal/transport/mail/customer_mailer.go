package mail

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"time"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`
<h2>Bienvenido a {{.Brand}}</h2>
<p>Hola {{.Name}}, tu código de verificación es:</p>
<h1>{{.Code}}</h1>
<p>Este código expira en {{.Minutes}} minutos.</p>
`))

var resetTemplate = template.Must(template.New("reset").Parse(`
<h2>Recuperación de contraseña</h2>
<p>Hemos recibido una solicitud para restablecer tu contraseña.</p>
<p>Haz clic en el siguiente enlace:</p>
<a href="{{.Link}}">Restablecer contraseña</a>
<p>Este enlace expirará en {{.Minutes}} minutos.</p>
<p>Si no solicitaste este cambio, ignora este mensaje.</p>
`))

// CustomerMailer renders customer notifications and hands them to a Sender,
// normally a Dispatcher.
type CustomerMailer struct {
	sender          Sender
	brand           string
	resetURL        string
	verificationTTL time.Duration
	resetTTL        time.Duration
}

type CustomerMailerConfig struct {
	Brand           string
	ResetURL        string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func NewCustomerMailer(sender Sender, cfg CustomerMailerConfig) *CustomerMailer {
	if cfg.Brand == "" {
		cfg.Brand = "Quantiva"
	}
	return &CustomerMailer{
		sender:          sender,
		brand:           cfg.Brand,
		resetURL:        cfg.ResetURL,
		verificationTTL: cfg.VerificationTTL,
		resetTTL:        cfg.ResetTTL,
	}
}

func (m *CustomerMailer) SendVerificationCode(ctx context.Context, email, name, code string) error {
	var body bytes.Buffer
	err := verificationTemplate.Execute(&body, map[string]any{
		"Brand":   m.brand,
		"Name":    name,
		"Code":    code,
		"Minutes": int(m.verificationTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:       email,
		Subject:  "Código de verificación",
		HTMLBody: body.String(),
	})
}

func (m *CustomerMailer) SendPasswordReset(ctx context.Context, email, rawToken string) error {
	link, err := ResetLink(m.resetURL, rawToken)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	err = resetTemplate.Execute(&body, map[string]any{
		"Link":    link,
		"Minutes": int(m.resetTTL.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:       email,
		Subject:  "Restablecer contraseña - " + m.brand,
		HTMLBody: body.String(),
	})
}

// ResetLink appends the raw token as the "token" query parameter of base.
func ResetLink(base, rawToken string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", rawToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
