package notification

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ProviderPayload is the provider-agnostic outbound payload.
type ProviderPayload struct {
	To          string
	From        string
	Template    TemplateRef
	Language    string
	Variables   map[string]string
	Attachments []Attachment
}

// ProviderResponse carries the provider's delivery identifier for audit.
type ProviderResponse struct {
	MessageID string
}

// Provider is the outbound delivery port. Implementations own their timeout
// behavior; the dispatcher treats a timeout as a normal send failure.
type Provider interface {
	Name() string
	Send(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error)
}

// RenderedEmail is the finished visual payload produced by the rendering
// collaborator.
type RenderedEmail struct {
	Subject string
	HTML    string
}

// Renderer turns a template reference plus variables into a finished payload.
// Layout logic lives behind this boundary, not in the dispatcher.
type Renderer interface {
	Render(ref TemplateRef, lang string, vars map[string]string) (*RenderedEmail, error)
}

// ResendProvider delivers email through Resend. The client is constructed
// explicitly and injected so tests can substitute a fake provider.
type ResendProvider struct {
	client   *resend.Client
	renderer Renderer
}

func NewResendProvider(apiKey string, renderer Renderer) *ResendProvider {
	return &ResendProvider{
		client:   resend.NewClient(apiKey),
		renderer: renderer,
	}
}

func (p *ResendProvider) Name() string {
	return "resend"
}

func (p *ResendProvider) Send(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error) {
	rendered, err := p.renderer.Render(payload.Template, payload.Language, payload.Variables)
	if err != nil {
		return nil, fmt.Errorf("render template %s: %w", payload.Template, err)
	}

	params := &resend.SendEmailRequest{
		From:    payload.From,
		To:      []string{payload.To},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
	}
	for _, a := range payload.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	sent, err := p.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("send email via Resend: %w", err)
	}

	return &ProviderResponse{MessageID: sent.Id}, nil
}
