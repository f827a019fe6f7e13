// Package emailsvc holds the core.EmailService backends.
package emailsvc

import (
	"context"
	"fmt"

	"github.com/trezcool/riyaaz/core"
)

// Backends
const (
	BackendConsole  = "console"
	BackendSendgrid = "sendgrid"
	BackendSES      = "ses"
)

// New returns the EmailService selected by conf.Email.Backend.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", BackendConsole:
		return NewConsoleService(conf, logger), nil
	case BackendSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, fmt.Errorf("email backend %q requires a sendgrid API key", BackendSendgrid)
		}
		return NewSendgridService(conf, logger), nil
	case BackendSES:
		return NewSESService(ctx, conf, logger)
	default:
		return nil, fmt.Errorf("unknown email backend %q", conf.Email.Backend)
	}
}
