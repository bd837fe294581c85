package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// WhatsAppSender delivers codes through the Twilio Messages API.
type WhatsAppSender struct {
	messages messageCreator
	from     string
	now      func() time.Time
}

// NewWhatsAppSender validates the settings and returns a sender.
// A non-default api_base_url redirects Twilio requests to that host, e.g. a sandbox proxy.
func NewWhatsAppSender(cfg config.WhatsAppSettings) (*WhatsAppSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("notify: whatsapp account_sid and auth_token are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("notify: whatsapp from number is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		target, err := url.Parse(base)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("notify: whatsapp api_base_url %q is invalid", cfg.APIBaseURL)
		}
		if !strings.EqualFold(target.Host, "api.twilio.com") {
			httpClient.Transport = &hostRewrite{target: target, next: http.DefaultTransport}
		}
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(cfg.AccountSID)

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Client: base})

	return &WhatsAppSender{
		messages: rest.Api,
		from:     cfg.From,
		now:      time.Now,
	}, nil
}

// Send implements port.NotificationSender. The Twilio client has no context support,
// so cancellation is checked up front and the HTTP timeout bounds the call.
func (s *WhatsAppSender) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(whatsappAddress(s.from))
	params.SetTo(whatsappAddress(n.Destination))
	params.SetBody(body(n, s.now()))

	if _, err := s.messages.CreateMessage(params); err != nil {
		return fmt.Errorf("notify: whatsapp send: %w", err)
	}
	return nil
}

func whatsappAddress(number string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return "whatsapp:" + number
}

type hostRewrite struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.Host = h.target.Host
	return h.next.RoundTrip(out)
}

var _ port.NotificationSender = (*WhatsAppSender)(nil)
