// Package notify delivers recovery codes over email, WhatsApp or the log.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
)

// ErrChannelUnavailable is returned when no sender is registered for a channel.
var ErrChannelUnavailable = errors.New("notify: channel unavailable")

const subject = "MiCampoFresco: código de recuperación"

func body(n domain.Notification, now time.Time) string {
	greeting := "Hola"
	if n.Name != "" {
		greeting = "Hola " + n.Name
	}
	return fmt.Sprintf("%s,\n\nTu código de recuperación es: %s\nVence en %s.\n\nSi no solicitaste este código, ignora este mensaje.\n",
		greeting, n.Code, remaining(n.ExpiresAt, now))
}

func remaining(expiresAt, now time.Time) string {
	d := expiresAt.Sub(now).Round(time.Minute)
	if d <= 0 {
		return "unos minutos"
	}
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", hours)
	}
	return fmt.Sprintf("%d minutos", int(d/time.Minute))
}
