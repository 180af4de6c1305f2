package paypal

import (
	"go.uber.org/fx"

	"github.com/maxmarketing/backend/internal/app/service/ingest"
)

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) ingest.PayPalVerifier { return c }),
)
