package config

import (
	"crypto/tls"
	"time"

	"github.com/rs/zerolog/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

// ProvideSmtp connects the SMTP client the mailer sends through. Email is a
// best-effort channel, so an unreachable transport at startup yields a nil
// client and a warning instead of aborting the service.
func ProvideSmtp(config *Config) *mail.SMTPClient {
	if !config.EmailConfig.Enabled || config.EmailConfig.SmtpHost == "" {
		log.Warn().Msg("Email notices disabled")
		return nil
	}

	server := mail.NewSMTPClient()
	server.Host = config.EmailConfig.SmtpHost
	server.Port = config.EmailConfig.SmtpPort
	server.Username = config.EmailConfig.SmtpUser
	server.Password = config.EmailConfig.SmtpPassword
	server.Encryption = mail.EncryptionSTARTTLS
	server.TLSConfig = &tls.Config{InsecureSkipVerify: config.EmailConfig.SmtpSkipInsecure}
	server.SendTimeout = 10 * time.Second
	server.ConnectTimeout = 10 * time.Second
	server.KeepAlive = true

	smtpClient, err := server.Connect()
	if err != nil {
		log.Warn().Err(err).Msg("Could not connect to SMTP server, email notices degraded")
		return nil
	}

	return smtpClient
}
