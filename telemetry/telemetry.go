/*
Copyright 2025 The Packtools authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package telemetry wires up the OpenTelemetry metrics-export pipeline for
// the toolkit: resource attributes, an optional OTLP exporter behind a
// periodic reader, and registration of the resulting meter provider.
//
// Setup is idempotent with respect to an already-configured registry, and
// neither Setup nor Shutdown ever propagates a failure: telemetry is
// best-effort infrastructure and must not crash the host application.
package telemetry

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// scopeName is the instrumentation scope of the meter handed to the
// active-meter registration point.
const scopeName = "github.com/packtools/pkg/telemetry"

// exportInterval is the fixed interval at which the periodic reader pushes
// accumulated metrics to the OTLP exporter.
const exportInterval = 60 * time.Second

// ProviderRegistry is the read/write handle for the meter-provider
// registration Setup and Shutdown operate on. Injecting it keeps the
// bootstrap testable without touching process-global state.
type ProviderRegistry interface {
	MeterProvider() metric.MeterProvider
	SetMeterProvider(metric.MeterProvider)
}

// globalRegistry delegates to the process-wide OpenTelemetry globals.
type globalRegistry struct{}

func (globalRegistry) MeterProvider() metric.MeterProvider      { return otel.GetMeterProvider() }
func (globalRegistry) SetMeterProvider(mp metric.MeterProvider) { otel.SetMeterProvider(mp) }

// GlobalRegistry returns the registry backed by the process-wide
// OpenTelemetry meter-provider singleton.
func GlobalRegistry() ProviderRegistry {
	return globalRegistry{}
}

// Manager owns the setup and teardown of the metrics pipeline.
type Manager struct {
	opts     Options
	registry ProviderRegistry
	log      logr.Logger
}

// NewManager returns a Manager for the given options. A nil registry
// defaults to the OpenTelemetry globals, an unset logger to a no-op logger.
func NewManager(opts Options) *Manager {
	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry{}
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Manager{opts: opts, registry: registry, log: log}
}

// Setup constructs the metrics pipeline and registers its meter provider
// with the registry. It returns early when metrics are disabled, and skips
// registration when the registry already holds a provider that is not a
// recognizable placeholder. Setup never returns an error; failures are
// logged and telemetry stays unconfigured or partially configured.
//
// Concurrent Setup calls race on the registry's check-then-act sequence.
// Bootstrap is expected to run once, on a single goroutine, during process
// startup.
func (m *Manager) Setup(ctx context.Context) {
	if !m.opts.Enabled || m.opts.GloballyDisabled {
		return
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(m.newResource()),
	}
	if m.opts.OTLPEndpoint != "" {
		exporter, err := m.newExporter(ctx)
		if err != nil {
			m.log.Error(err, "failed to construct the OTLP metric exporter",
				"endpoint", m.opts.OTLPEndpoint)
		} else {
			providerOpts = append(providerOpts, sdkmetric.WithReader(
				sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))))
		}
	}
	provider := sdkmetric.NewMeterProvider(providerOpts...)

	if !m.shouldOverride() {
		m.log.V(1).Info("meter provider already configured, skipping registration")
		// Release the reader of the provider that lost the race.
		_ = provider.Shutdown(ctx)
		return
	}

	m.registry.SetMeterProvider(provider)
	setMeter(provider.Meter(scopeName))
	m.log.Info("metrics pipeline configured",
		"endpoint", m.opts.OTLPEndpoint, "protocol", m.opts.OTLPProtocol)
}

// Shutdown flushes and stops the registered meter provider, if it exposes a
// shutdown hook. Failures are logged as warnings; Shutdown never propagates
// them.
func (m *Manager) Shutdown(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Info("meter provider shutdown panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()

	shutter, ok := m.registry.MeterProvider().(interface{ Shutdown(context.Context) error })
	if !ok {
		return
	}
	if err := shutter.Shutdown(ctx); err != nil {
		m.log.Error(err, "failed to shut down the meter provider")
		return
	}
	m.log.V(1).Info("meter provider shut down")
}

func (m *Manager) newResource() *resource.Resource {
	var attrs []attribute.KeyValue
	if m.opts.ServiceName != "" {
		attrs = append(attrs, semconv.ServiceName(m.opts.ServiceName))
	}
	if m.opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(m.opts.ServiceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func (m *Manager) newExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	if m.opts.OTLPProtocol == "grpc" {
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(m.opts.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(m.opts.OTLPHeaders))
	}
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(m.opts.OTLPEndpoint),
		otlpmetrichttp.WithHeaders(m.opts.OTLPHeaders))
}

// shouldOverride reports whether the provider currently held by the registry
// may safely be replaced. Placeholders are replaced: no-op providers, the
// global delegating proxy, mock-framework doubles, and providers lacking the
// SDK shutdown capability. A real provider deliberately installed elsewhere
// is left alone. A panic during introspection is treated as "no usable
// provider installed" and the new provider is registered unconditionally:
// telemetry availability wins over strict idempotency.
func (m *Manager) shouldOverride() (override bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.V(1).Info("meter provider introspection failed, overriding",
				"panic", fmt.Sprintf("%v", r))
			override = true
		}
	}()

	current := m.registry.MeterProvider()
	if current == nil {
		return true
	}

	t := reflect.TypeOf(current)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if strings.Contains(name, "Mock") || strings.Contains(name, "mock") ||
		strings.Contains(name, "NoOp") || strings.Contains(name, "Noop") {
		return true
	}
	switch pkg := t.PkgPath(); {
	case strings.HasSuffix(pkg, "/metric/noop"),
		strings.HasSuffix(pkg, "/internal/global"),
		strings.Contains(pkg, "mock"):
		return true
	}
	if _, ok := current.(interface{ Shutdown(context.Context) error }); !ok {
		// No shutdown hook means this is not a real SDK provider.
		return true
	}
	return false
}
