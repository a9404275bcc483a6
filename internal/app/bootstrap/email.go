package bootstrap

import (
	"strings"

	appconfig "github.com/clinicbook/clinic-booking/internal/config"
	"github.com/clinicbook/clinic-booking/internal/notify"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// BuildEmailSender selects the email provider named by EMAIL_PROVIDER.
// "auto" prefers SendGrid, then SES, then the logging stub. It returns the
// sender and the provider name actually chosen.
func BuildEmailSender(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	sendgrid := func() notify.EmailSender {
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	ses := func() notify.EmailSender {
		if strings.TrimSpace(cfg.EmailFromAddress) == "" {
			return nil
		}
		if s := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	switch provider {
	case "sendgrid":
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		logger.Warn("EMAIL_PROVIDER=sendgrid but SENDGRID_API_KEY is empty; using stub")
	case "ses":
		if s := ses(); s != nil {
			return s, "ses"
		}
		logger.Warn("EMAIL_PROVIDER=ses but SES client or sender address is missing; using stub")
	case "stub":
	default:
		if s := sendgrid(); s != nil {
			return s, "sendgrid"
		}
		if s := ses(); s != nil {
			return s, "ses"
		}
	}
	return notify.NewStubEmailSender(logger), "stub"
}
