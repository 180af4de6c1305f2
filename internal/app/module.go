package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/maxmarketing/backend/internal/app/api/server"
	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/app/service/checkout"
	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/internal/app/service/generator"
	"github.com/maxmarketing/backend/internal/app/service/history"
	"github.com/maxmarketing/backend/internal/app/service/ingest"
	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/app/service/mailer"
	"github.com/maxmarketing/backend/internal/platform/db"
	"github.com/maxmarketing/backend/internal/platform/llm"
	"github.com/maxmarketing/backend/internal/platform/paypal"
	"github.com/maxmarketing/backend/internal/platform/stripeapi"
	"github.com/maxmarketing/backend/pkg/config"
	"github.com/maxmarketing/backend/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	stripeapi.Module,
	paypal.Module,
	llm.Module,
	ledger.Module,
	entitlement.Module,
	account.Module,
	mailer.Module,
	ingest.Module,
	checkout.Module,
	generator.Module,
	history.Module,
	server.Module,
)
