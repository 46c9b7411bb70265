// Package render is the default rendering collaborator: it turns a template
// reference plus variables into a finished email payload. The notification
// pipeline treats it as a black box behind the notification.Renderer
// interface; deployments with a dedicated rendering service swap it out.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/prepally/prepally-backend/internal/notification"
)

const baseLayout = `
<!DOCTYPE html>
<html>
<head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
    <style>
        body { background-color: #f6f9fc; font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; font-size: 16px; line-height: 1.5; margin: 0; padding: 0; }
        .container { display: block; margin: 0 auto; max-width: 580px; padding: 10px; }
        .main { background: #ffffff; border-radius: 8px; border: 1px solid #e1e9ee; padding: 24px; }
        .footer { color: #8898aa; font-size: 12px; text-align: center; margin-top: 16px; }
        h1 { font-size: 22px; font-weight: 700; margin: 0 0 20px 0; color: #32325d; }
        p { margin: 0 0 16px 0; color: #525f7f; }
        .btn { background-color: #5e6ad2; border-radius: 4px; color: #ffffff; display: inline-block; font-weight: bold; padding: 12px 25px; text-decoration: none; }
        .highlight { background: #f6f9fc; border-radius: 4px; color: #32325d; font-size: 20px; padding: 12px; text-align: center; font-weight: 700; }
    </style>
</head>
<body>
    <div class="container">
        <div class="main">{{template "body" .}}</div>
        <div class="footer">
            &copy; {{.currentYear}} Prepally &middot;
            <a href="{{.termsUrl}}">Terms</a> &middot;
            <a href="{{.privacyUrl}}">Privacy</a> &middot;
            {{.supportEmail}}
        </div>
    </div>
</body>
</html>`

var bodies = map[notification.TemplateRef]string{
	notification.TemplateWelcome: `{{define "body"}}
<h1>Welcome, {{.firstName}}</h1>
<p>Your account is ready. Schedule your first mock interview from the dashboard.</p>
<p><a class="btn" href="{{.dashboardUrl}}">Go to dashboard</a></p>
{{end}}`,
	notification.TemplateEmailVerification: `{{define "body"}}
<h1>Verify your email</h1>
<p>Hi {{.firstName}}, confirm this address to activate your account.</p>
<p><a class="btn" href="{{.verifyUrl}}">Verify email</a></p>
{{if .expiresInMinutes}}<p>The link expires in {{.expiresInMinutes}} minutes.</p>{{end}}
{{end}}`,
	notification.TemplatePasswordReset: `{{define "body"}}
<h1>Reset your password</h1>
<p><a class="btn" href="{{.resetUrl}}">Choose a new password</a></p>
{{if .expiresInMinutes}}<p>The link expires in {{.expiresInMinutes}} minutes. If you did not request this, ignore this message.</p>{{end}}
{{end}}`,
	notification.TemplatePurchaseReceipt: `{{define "body"}}
<h1>Receipt</h1>
<p>Hi {{.firstName}}, thanks for your purchase of {{.creditCount}} credits on {{.purchaseDate}}.</p>
<div class="highlight">{{.amount}}</div>
<p>Payment reference: {{.paymentId}}</p>
{{if .invoiceUrl}}<p><a href="{{.invoiceUrl}}">Download invoice</a></p>{{end}}
{{end}}`,
	notification.TemplateLowCredits: `{{define "body"}}
<h1>You're running low on credits</h1>
<p>Hi {{.firstName}}, you have {{.currentCredits}} credits left (warning threshold: {{.threshold}}).</p>
{{if .topUpUrl}}<p><a class="btn" href="{{.topUpUrl}}">Top up</a></p>{{end}}
{{end}}`,
	notification.TemplateInterviewFeedback: `{{define "body"}}
<h1>Your feedback is ready</h1>
<p>Hi {{.firstName}}, the feedback for "{{.interviewTitle}}" is available.</p>
{{if .overallScore}}<div class="highlight">{{.overallScore}}</div>{{end}}
<p><a class="btn" href="{{.feedbackUrl}}">View feedback</a></p>
{{end}}`,
	notification.TemplateInterviewReminder: `{{define "body"}}
<h1>Upcoming interview</h1>
<p>Hi {{.firstName}}, "{{.interviewTitle}}" starts at {{.startsAt}}.</p>
{{if .joinUrl}}<p><a class="btn" href="{{.joinUrl}}">Join</a></p>{{end}}
{{end}}`,
}

var subjects = map[notification.TemplateRef]map[string]string{
	notification.TemplateWelcome: {
		"en": "Welcome to Prepally",
		"es": "Bienvenido a Prepally",
		"pt": "Bem-vindo ao Prepally",
	},
	notification.TemplateEmailVerification: {
		"en": "Verify your email address",
		"es": "Verifica tu correo electrónico",
		"pt": "Verifique seu e-mail",
	},
	notification.TemplatePasswordReset: {
		"en": "Reset your password",
		"es": "Restablece tu contraseña",
		"pt": "Redefina sua senha",
	},
	notification.TemplatePurchaseReceipt: {
		"en": "Your Prepally receipt",
		"es": "Tu recibo de Prepally",
		"pt": "Seu recibo do Prepally",
	},
	notification.TemplateLowCredits: {
		"en": "You're running low on credits",
		"es": "Te quedan pocos créditos",
		"pt": "Seus créditos estão acabando",
	},
	notification.TemplateInterviewFeedback: {
		"en": "Your interview feedback is ready",
		"es": "Tu feedback de entrevista está listo",
		"pt": "Seu feedback de entrevista está pronto",
	},
	notification.TemplateInterviewReminder: {
		"en": "Interview reminder",
		"es": "Recordatorio de entrevista",
		"pt": "Lembrete de entrevista",
	},
}

// Engine renders finished payloads with html/template. Templates are parsed
// once at construction.
type Engine struct {
	templates map[notification.TemplateRef]*template.Template
}

func NewEngine() (*Engine, error) {
	parsed := make(map[notification.TemplateRef]*template.Template, len(bodies))
	for ref, body := range bodies {
		tmpl, err := template.New(string(ref)).Parse(baseLayout + body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", ref, err)
		}
		parsed[ref] = tmpl
	}
	return &Engine{templates: parsed}, nil
}

// Render implements notification.Renderer.
func (e *Engine) Render(ref notification.TemplateRef, lang string, vars map[string]string) (*notification.RenderedEmail, error) {
	tmpl, ok := e.templates[ref]
	if !ok {
		return nil, fmt.Errorf("no template registered for %s", ref)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", ref, err)
	}

	return &notification.RenderedEmail{
		Subject: subjectFor(ref, lang),
		HTML:    buf.String(),
	}, nil
}

func subjectFor(ref notification.TemplateRef, lang string) string {
	byLang, ok := subjects[ref]
	if !ok {
		return "Notification from Prepally"
	}
	if subject, ok := byLang[lang]; ok {
		return subject
	}
	return byLang[notification.FallbackLanguage]
}
