package pipeline

import (
	"github.com/smallbiznis/vaultload/internal/source"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline",
	fx.Provide(
		fx.Annotate(source.NewCSVReader, fx.As(new(source.Reader))),
		New,
	),
)
