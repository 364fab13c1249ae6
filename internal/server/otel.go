package server

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mechcore/firecontrol/internal/server"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
