package mailer

import (
	"go.uber.org/fx"

	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/app/service/ingest"
)

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Provide(func(s *Service) ingest.Notifier { return s }),
	fx.Provide(func(s *Service) account.ResetMailer { return s }),
)
