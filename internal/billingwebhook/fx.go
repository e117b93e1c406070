package billingwebhook

import "go.uber.org/fx"

var Module = fx.Module("billing.webhook",
	fx.Provide(NewService),
)
