package alert

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"otp-gateway/internal/common/telegram"

	"github.com/sirupsen/logrus"
)

// Alerter raises operator-facing alerts for failures that are not surfaced to callers
type Alerter interface {
	Alert(ctx context.Context, title string, fields map[string]string)
}

type alerter struct {
	log      *logrus.Logger
	telegram telegram.Client
}

// New creates an Alerter that always logs and, when tg is not nil, also notifies Telegram
func New(log *logrus.Logger, tg telegram.Client) Alerter {
	return &alerter{log: log, telegram: tg}
}

func (a *alerter) Alert(ctx context.Context, title string, fields map[string]string) {
	logFields := logrus.Fields{"alert": true}
	for k, v := range fields {
		logFields[k] = v
	}
	a.log.WithFields(logFields).Error(title)

	if a.telegram == nil {
		return
	}
	if err := a.telegram.Broadcast(ctx, format(title, fields)); err != nil {
		a.log.WithError(err).Warn("failed to deliver alert to Telegram")
	}
}

func format(title string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>%s</b>", html.EscapeString(title))
	for _, k := range keys {
		fmt.Fprintf(&b, "\n<b>%s:</b> <code>%s</code>", html.EscapeString(k), html.EscapeString(fields[k]))
	}
	return b.String()
}
