package phase

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mechcore/firecontrol/internal/phase"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
