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
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

const (
	flagMetricsEnabled = "metrics-enabled"
	envMetricsEnabled  = "METRICS_ENABLED"

	flagTelemetryDisabled = "telemetry-disabled"
	envTelemetryDisabled  = "TELEMETRY_DISABLED"

	flagServiceName = "service-name"
	envServiceName  = "SERVICE_NAME"

	flagServiceVersion = "service-version"
	envServiceVersion  = "SERVICE_VERSION"

	flagOTLPEndpoint = "otlp-endpoint"
	envOTLPEndpoint  = "OTLP_ENDPOINT"

	flagOTLPProtocol    = "otlp-protocol"
	envOTLPProtocol     = "OTLP_PROTOCOL"
	defaultOTLPProtocol = "http/protobuf"

	flagOTLPHeaders = "otlp-headers"
)

// Options contains the configuration settings for the metrics pipeline.
type Options struct {
	// Enabled toggles metrics collection on or off.
	Enabled bool

	// GloballyDisabled is the process-wide telemetry kill switch. It takes
	// precedence over Enabled.
	GloballyDisabled bool

	// ServiceName is set as the service.name resource attribute when non-empty.
	ServiceName string

	// ServiceVersion is set as the service.version resource attribute when non-empty.
	ServiceVersion string

	// OTLPEndpoint is the URL of the OTLP collector. When empty, the meter
	// provider is constructed without a reader and exports nothing.
	OTLPEndpoint string

	// OTLPProtocol selects the exporter transport: "grpc" selects the gRPC
	// transport, any other value selects the HTTP transport.
	OTLPProtocol string

	// OTLPHeaders are attached to every OTLP export request.
	OTLPHeaders map[string]string

	// Logger receives the bootstrap's own log events. Defaults to a no-op
	// logger when unset.
	Logger logr.Logger

	// Registry is the meter-provider registry the bootstrap reads and
	// writes. Defaults to the process-wide OpenTelemetry globals.
	Registry ProviderRegistry
}

// BindFlags will parse the given pflag.FlagSet for telemetry option flags
// and set the Options accordingly.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, flagMetricsEnabled,
		envOrDefaultBool(envMetricsEnabled, false),
		"Enable the export of metrics to an OTLP collector.")

	fs.BoolVar(&o.GloballyDisabled, flagTelemetryDisabled,
		envOrDefaultBool(envTelemetryDisabled, false),
		"Disable all telemetry, overriding --metrics-enabled.")

	fs.StringVar(&o.ServiceName, flagServiceName,
		envOrDefault(envServiceName, ""),
		"The service name reported as a resource attribute.")

	fs.StringVar(&o.ServiceVersion, flagServiceVersion,
		envOrDefault(envServiceVersion, ""),
		"The service version reported as a resource attribute.")

	fs.StringVar(&o.OTLPEndpoint, flagOTLPEndpoint,
		envOrDefault(envOTLPEndpoint, ""),
		"The URL of the OTLP collector metrics are exported to.")

	fs.StringVar(&o.OTLPProtocol, flagOTLPProtocol,
		envOrDefault(envOTLPProtocol, defaultOTLPProtocol),
		"The OTLP transport protocol. Can be 'grpc' or 'http/protobuf'.")

	fs.StringToStringVar(&o.OTLPHeaders, flagOTLPHeaders, nil,
		"Headers attached to OTLP export requests, as comma-separated key=value pairs.")
}

// envOrDefault returns the value of the environment variable named by the key.
// If the variable is empty or not present, it returns the defaultValue instead.
func envOrDefault(envName, defaultValue string) string {
	if ret := os.Getenv(envName); ret != "" {
		return ret
	}
	return defaultValue
}

func envOrDefaultBool(envName string, defaultValue bool) bool {
	if ret := os.Getenv(envName); ret != "" {
		if b, err := strconv.ParseBool(ret); err == nil {
			return b
		}
	}
	return defaultValue
}
