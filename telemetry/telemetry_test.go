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

package telemetry

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// fakeRegistry records provider registrations without touching the
// process-wide OpenTelemetry globals.
type fakeRegistry struct {
	provider metric.MeterProvider
	sets     int
}

func (f *fakeRegistry) MeterProvider() metric.MeterProvider { return f.provider }

func (f *fakeRegistry) SetMeterProvider(mp metric.MeterProvider) {
	f.provider = mp
	f.sets++
}

// panickingRegistry fails provider introspection: reads panic, writes are
// recorded by the embedded fake.
type panickingRegistry struct {
	fakeRegistry
}

func (p *panickingRegistry) MeterProvider() metric.MeterProvider {
	panic("broken provider registration")
}

// panickingProvider carries a shutdown hook that blows up when invoked.
type panickingProvider struct {
	noop.MeterProvider
}

func (panickingProvider) Shutdown(context.Context) error {
	panic("exporter flush failure")
}

// MockMeterProvider stands in for a test-double left behind by a mocking
// framework.
type MockMeterProvider struct {
	noop.MeterProvider
}

// staticMeterProvider is a non-placeholder name without the SDK shutdown
// capability.
type staticMeterProvider struct {
	noop.MeterProvider
}

func enabledOptions(registry ProviderRegistry) Options {
	return Options{
		Enabled:        true,
		ServiceName:    "pkgtool",
		ServiceVersion: "1.2.3",
		Registry:       registry,
	}
}

func TestManager_Setup_DisabledShortCircuit(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{
			name: "metrics disabled",
			opts: Options{Enabled: false},
		},
		{
			name: "globally disabled wins over enabled",
			opts: Options{Enabled: true, GloballyDisabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			registry := &fakeRegistry{}
			tt.opts.Registry = registry
			NewManager(tt.opts).Setup(context.Background())

			g.Expect(registry.sets).To(BeZero())
			g.Expect(registry.provider).To(BeNil())
		})
	}
}

func TestManager_Setup_RegistersProvider(t *testing.T) {
	g := NewWithT(t)

	registry := &fakeRegistry{provider: noop.NewMeterProvider()}
	NewManager(enabledOptions(registry)).Setup(context.Background())

	g.Expect(registry.sets).To(Equal(1))
	g.Expect(registry.provider).To(BeAssignableToTypeOf(&sdkmetric.MeterProvider{}))

	// The active meter is usable after registration.
	counter, err := Meter().Int64Counter("pkgtool.setup.test")
	g.Expect(err).ToNot(HaveOccurred())
	counter.Add(context.Background(), 1)

	NewManager(enabledOptions(registry)).Shutdown(context.Background())
}

func TestManager_Setup_Idempotent(t *testing.T) {
	g := NewWithT(t)

	registry := &fakeRegistry{}
	ctx := context.Background()

	NewManager(enabledOptions(registry)).Setup(ctx)
	g.Expect(registry.sets).To(Equal(1))
	configured := registry.provider

	// A second bootstrap detects the real provider and no-ops.
	NewManager(enabledOptions(registry)).Setup(ctx)
	g.Expect(registry.sets).To(Equal(1))
	g.Expect(registry.provider).To(BeIdenticalTo(configured))

	NewManager(enabledOptions(registry)).Shutdown(ctx)
}

func TestManager_Setup_OverridesPlaceholders(t *testing.T) {
	tests := []struct {
		name    string
		current metric.MeterProvider
	}{
		{
			name:    "nothing registered",
			current: nil,
		},
		{
			name:    "noop provider",
			current: noop.NewMeterProvider(),
		},
		{
			name:    "mock framework double",
			current: MockMeterProvider{},
		},
		{
			name:    "provider without shutdown capability",
			current: staticMeterProvider{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			registry := &fakeRegistry{provider: tt.current}
			NewManager(enabledOptions(registry)).Setup(context.Background())

			g.Expect(registry.sets).To(Equal(1))
			g.Expect(registry.provider).To(BeAssignableToTypeOf(&sdkmetric.MeterProvider{}))

			NewManager(enabledOptions(registry)).Shutdown(context.Background())
		})
	}
}

func TestManager_Setup_FailsOpenOnIntrospectionPanic(t *testing.T) {
	g := NewWithT(t)

	// When introspecting the current provider blows up, the bootstrap
	// treats the registry as holding no usable provider and registers
	// the new one unconditionally.
	registry := &panickingRegistry{}
	g.Expect(func() {
		NewManager(enabledOptions(registry)).Setup(context.Background())
	}).ToNot(Panic())

	g.Expect(registry.sets).To(Equal(1))
	g.Expect(registry.provider).To(BeAssignableToTypeOf(&sdkmetric.MeterProvider{}))
}

func TestManager_Setup_WithOTLPReader(t *testing.T) {
	g := NewWithT(t)

	for _, protocol := range []string{"grpc", "http/protobuf"} {
		registry := &fakeRegistry{}
		opts := enabledOptions(registry)
		opts.OTLPEndpoint = "http://localhost:4318"
		opts.OTLPProtocol = protocol
		opts.OTLPHeaders = map[string]string{"authorization": "Bearer token"}

		// Exporter construction performs no I/O; export happens later,
		// on the reader's interval.
		NewManager(opts).Setup(context.Background())
		g.Expect(registry.sets).To(Equal(1), "protocol: %s", protocol)
	}
}

func TestManager_Shutdown_NeverPropagates(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()

	// No shutdown hook on the registered provider.
	g.Expect(func() {
		NewManager(enabledOptions(&fakeRegistry{provider: noop.NewMeterProvider()})).Shutdown(ctx)
	}).ToNot(Panic())

	// Nothing registered at all.
	g.Expect(func() {
		NewManager(enabledOptions(&fakeRegistry{})).Shutdown(ctx)
	}).ToNot(Panic())

	// Fetching the provider panics.
	g.Expect(func() {
		NewManager(enabledOptions(&panickingRegistry{})).Shutdown(ctx)
	}).ToNot(Panic())

	// The provider's own shutdown hook panics.
	g.Expect(func() {
		NewManager(enabledOptions(&fakeRegistry{provider: panickingProvider{}})).Shutdown(ctx)
	}).ToNot(Panic())

	// Double shutdown of a real provider.
	registry := &fakeRegistry{}
	manager := NewManager(enabledOptions(registry))
	manager.Setup(ctx)
	g.Expect(func() {
		manager.Shutdown(ctx)
		manager.Shutdown(ctx)
	}).ToNot(Panic())
}
