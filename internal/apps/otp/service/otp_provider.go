package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"otp-gateway/internal/common/telegram"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
)

// OTPProvider defines the interface for delivering an OTP code
type OTPProvider interface {
	SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error
}

// consoleProvider only logs the dispatch (for local environment)
type consoleProvider struct {
	log *logrus.Logger
}

func (p *consoleProvider) SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error {
	entry := p.log.WithFields(logrus.Fields{
		"component": "otp",
		"phone":     utils.MaskPhone(phone),
		"ttl":       ttl.String(),
	})
	entry.Info("OTP dispatched")
	entry.WithField("code", code).Debug("OTP code")
	return nil
}

// NewConsoleProvider creates a provider that logs OTPs instead of sending SMS
func NewConsoleProvider(log *logrus.Logger) OTPProvider {
	return &consoleProvider{log: log}
}

// DefaultAuthKeyURL is the AuthKey.io SMS request endpoint
const DefaultAuthKeyURL = "https://api.authkey.io/request"

// AuthKeyOptions configures the AuthKey.io SMS provider
type AuthKeyOptions struct {
	BaseURL     string
	AuthKey     string
	TemplateID  string
	CountryCode string
	Company     string
	Timeout     time.Duration
}

// authKeyProvider sends OTP via AuthKey.io API
type authKeyProvider struct {
	opts       AuthKeyOptions
	httpClient *http.Client
}

func (a *authKeyProvider) SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error {
	params := url.Values{}
	params.Add("authkey", a.opts.AuthKey)
	params.Add("mobile", a.localNumber(phone))
	params.Add("country_code", a.opts.CountryCode)
	params.Add("sid", a.opts.TemplateID)
	params.Add("company", a.opts.Company)
	params.Add("otp", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build AuthKey request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send OTP via AuthKey: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("AuthKey API returned status %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// localNumber strips the configured country code from a +-prefixed number
func (a *authKeyProvider) localNumber(phone string) string {
	if rest, ok := strings.CutPrefix(phone, "+"+a.opts.CountryCode); ok {
		return rest
	}
	return strings.TrimPrefix(phone, "+")
}

// NewAuthKeyProvider creates an AuthKey.io SMS provider
func NewAuthKeyProvider(opts AuthKeyOptions) OTPProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAuthKeyURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &authKeyProvider{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// telegramProvider relays OTPs to an operator Telegram chat
type telegramProvider struct {
	client telegram.Client
}

func (p *telegramProvider) SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error {
	text := fmt.Sprintf("<b>OTP</b>: <code>%s</code>\n<b>Phone</b>: %s\n<i>Valid for %d minutes</i>",
		html.EscapeString(code), html.EscapeString(phone), int(ttl.Minutes()))
	if err := p.client.Broadcast(ctx, text); err != nil {
		return fmt.Errorf("failed to send OTP via Telegram: %w", err)
	}
	return nil
}

// NewTelegramProvider creates a Telegram OTP provider
func NewTelegramProvider(client telegram.Client) OTPProvider {
	return &telegramProvider{client: client}
}

// multiProvider fans a dispatch out to every provider
type multiProvider []OTPProvider

func (m multiProvider) SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error {
	var errs []error
	for _, p := range m {
		if err := p.SendOTP(ctx, phone, code, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMultiProvider combines providers; all are attempted
func NewMultiProvider(providers ...OTPProvider) OTPProvider {
	return multiProvider(providers)
}
