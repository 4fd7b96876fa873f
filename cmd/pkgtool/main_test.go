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

package main

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// recordingProvider counts shutdown invocations. It carries the shutdown
// capability, so the bootstrap treats it as a real provider and leaves it
// registered.
type recordingProvider struct {
	noop.MeterProvider
	shutdowns int
}

func (p *recordingProvider) Shutdown(context.Context) error {
	p.shutdowns++
	return nil
}

type staticRegistry struct {
	provider metric.MeterProvider
}

func (r *staticRegistry) MeterProvider() metric.MeterProvider      { return r.provider }
func (r *staticRegistry) SetMeterProvider(mp metric.MeterProvider) { r.provider = mp }

func TestRun_FlushesTelemetryOnCommandFailure(t *testing.T) {
	g := NewWithT(t)

	provider := &recordingProvider{}
	rootFlags.telemetry.Enabled = true
	rootFlags.telemetry.Registry = &staticRegistry{provider: provider}

	rootCmd.SetArgs([]string{"checksum", "normalize", "not-a-checksum"})
	err := run(context.Background())

	g.Expect(err).To(HaveOccurred())
	g.Expect(provider.shutdowns).To(Equal(1))
}
