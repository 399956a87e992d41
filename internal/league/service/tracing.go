package service

import "go.opentelemetry.io/otel"

const tracerName = "github.com/aussiebroadwan/league/internal/league/service"

var tracer = otel.Tracer(tracerName)
