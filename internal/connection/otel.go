package connection

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mechcore/firecontrol/internal/connection"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
