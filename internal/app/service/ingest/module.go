package ingest

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(NewStripeAdapter),
	fx.Provide(NewPayPalAdapter),
	fx.Provide(NewService),
	fx.Provide(func(s *Service) Ingestor { return s }),
)
