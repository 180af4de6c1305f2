package generator

import (
	"go.uber.org/fx"

	"github.com/maxmarketing/backend/internal/platform/llm"
)

var Module = fx.Options(
	fx.Provide(func(c *llm.Client) Completer { return c }),
	fx.Provide(NewService),
)
