package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"
	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

type recordingSender struct {
	got []domain.Notification
	err error
}

func (r *recordingSender) Send(_ context.Context, n domain.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func sampleNotification(channel, destination string) domain.Notification {
	return domain.Notification{
		Channel:     channel,
		Destination: destination,
		Name:        "Ana",
		Code:        "048213",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestRouterDispatchesByChannel(t *testing.T) {
	email := &recordingSender{}
	whatsapp := &recordingSender{}
	router := NewRouter(nil).
		Register(domain.ChannelEmail, email).
		Register(domain.ChannelWhatsApp, whatsapp)

	if err := router.Send(context.Background(), sampleNotification(domain.ChannelWhatsApp, "59171234567")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(whatsapp.got) != 1 || len(email.got) != 0 {
		t.Fatalf("expected whatsapp delivery only, got email=%d whatsapp=%d", len(email.got), len(whatsapp.got))
	}

	err := router.Send(context.Background(), sampleNotification("sms", "59171234567"))
	if !errors.Is(err, ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestRouterFallback(t *testing.T) {
	fallback := &recordingSender{}
	router := NewRouter(fallback)

	if err := router.Send(context.Background(), sampleNotification(domain.ChannelEmail, "ana@example.com")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(fallback.got) != 1 {
		t.Fatal("expected fallback to receive the notification")
	}
}

func TestLogSenderMasksDestination(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewLogSender(zap.New(core), false)

	if err := sender.Send(context.Background(), sampleNotification(domain.ChannelEmail, "ana.quispe@example.com")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["destination"] != "ana***@example.com" {
		t.Fatalf("expected masked destination, got %v", fields["destination"])
	}
	if _, ok := fields["code"]; ok {
		t.Fatal("code must not be logged unless revealed")
	}

	revealing := NewLogSender(zap.New(core), true)
	_ = revealing.Send(context.Background(), sampleNotification(domain.ChannelEmail, "ana@example.com"))
	if logs.All()[1].ContextMap()["code"] != "048213" {
		t.Fatal("expected code in development log")
	}
}

type capturingDialer struct {
	msgs []*mail.Msg
	err  error
}

func (d *capturingDialer) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	d.msgs = append(d.msgs, messages...)
	return d.err
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMessageBodyUsesSenderClock(t *testing.T) {
	n := sampleNotification(domain.ChannelEmail, "ana@example.com")
	n.ExpiresAt = fixedNow.Add(time.Hour)

	if got := body(n, fixedNow); !strings.Contains(got, "Vence en 1 hora.") {
		t.Fatalf("unexpected body: %q", got)
	}
	if got := remaining(fixedNow.Add(25*time.Minute), fixedNow); got != "25 minutos" {
		t.Fatalf("unexpected remaining %q", got)
	}
	if got := remaining(fixedNow.Add(-time.Minute), fixedNow); got != "unos minutos" {
		t.Fatalf("unexpected remaining for past expiry %q", got)
	}
}

func TestEmailSenderComposesMessage(t *testing.T) {
	sender, err := NewEmailSender(config.EmailSettings{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "secret",
		From:     "no-reply@micampofresco.bo",
	})
	if err != nil {
		t.Fatalf("NewEmailSender returned error: %v", err)
	}
	dialer := &capturingDialer{}
	sender.client = dialer
	sender.now = func() time.Time { return fixedNow }

	n := sampleNotification(domain.ChannelEmail, "ana@example.com")
	n.ExpiresAt = fixedNow.Add(time.Hour)
	if err := sender.Send(context.Background(), n); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(dialer.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(dialer.msgs))
	}

	var buf bytes.Buffer
	if _, err := dialer.msgs[0].WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo returned error: %v", err)
	}
	raw := buf.String()

	for i := 0; i < len(raw); i++ {
		if raw[i] >= 0x80 {
			t.Fatalf("non-ASCII byte %#x at offset %d", raw[i], i)
		}
	}
	if !strings.Contains(raw, "Subject: =?UTF-8?") {
		t.Fatalf("subject is not RFC 2047 encoded: %q", raw)
	}
	if !strings.Contains(raw, "ana@example.com") || !strings.Contains(raw, "048213") {
		t.Fatalf("message missing recipient or code: %q", raw)
	}
}

func TestEmailSenderRejectsHeaderInjection(t *testing.T) {
	sender, err := NewEmailSender(config.EmailSettings{Host: "smtp.example.com", Port: 25, From: "a@b.co"})
	if err != nil {
		t.Fatalf("NewEmailSender returned error: %v", err)
	}
	dialer := &capturingDialer{}
	sender.client = dialer

	err = sender.Send(context.Background(), sampleNotification(domain.ChannelEmail, "ana@example.com\r\nBcc: x@y.z"))
	if err == nil {
		t.Fatal("expected error for destination with CRLF")
	}
	if len(dialer.msgs) != 0 {
		t.Fatal("message must not be sent")
	}
}

func TestEmailSenderSurfacesDialErrors(t *testing.T) {
	sender, _ := NewEmailSender(config.EmailSettings{Host: "smtp.example.com", Port: 25, From: "a@b.co"})
	sender.client = &capturingDialer{err: errors.New("connection refused")}

	err := sender.Send(context.Background(), sampleNotification(domain.ChannelEmail, "ana@example.com"))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestEmailSenderRequiresHost(t *testing.T) {
	if _, err := NewEmailSender(config.EmailSettings{From: "a@b.co"}); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestWhatsAppSenderPostsToTwilio(t *testing.T) {
	var (
		gotPath string
		gotForm map[string]string
		gotUser string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	sender, err := NewWhatsAppSender(config.WhatsAppSettings{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+14155238886",
		APIBaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewWhatsAppSender returned error: %v", err)
	}

	if err := sender.Send(context.Background(), sampleNotification(domain.ChannelWhatsApp, "59171234567")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "AC123" {
		t.Fatalf("expected basic auth user AC123, got %q", gotUser)
	}
	if gotForm["To"] != "whatsapp:+59171234567" || gotForm["From"] != "whatsapp:+14155238886" {
		t.Fatalf("unexpected addresses: %v", gotForm)
	}
	if !strings.Contains(gotForm["Body"], "048213") {
		t.Fatalf("body missing code: %q", gotForm["Body"])
	}
}

func TestWhatsAppSenderSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid To","status":400}`))
	}))
	defer server.Close()

	sender, _ := NewWhatsAppSender(config.WhatsAppSettings{AccountSID: "AC1", AuthToken: "t", From: "+1", APIBaseURL: server.URL})
	err := sender.Send(context.Background(), sampleNotification(domain.ChannelWhatsApp, "123"))

	var apiErr *twilioclient.TwilioRestError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected TwilioRestError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != 21211 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestWhatsAppSenderHonoursCancelledContext(t *testing.T) {
	sender, _ := NewWhatsAppSender(config.WhatsAppSettings{AccountSID: "AC1", AuthToken: "t", From: "+1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sender.Send(ctx, sampleNotification(domain.ChannelWhatsApp, "123")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
