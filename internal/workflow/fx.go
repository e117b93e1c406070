package workflow

import "go.uber.org/fx"

var Module = fx.Module("workflow.client",
	fx.Provide(NewMakeClient),
)
