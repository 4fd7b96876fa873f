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
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// activeMeter is the meter the rest of the metrics API emits through.
// It stays a no-op until Setup registers a real provider. Written once,
// during single-threaded startup.
var activeMeter metric.Meter = noop.Meter{}

func setMeter(m metric.Meter) {
	activeMeter = m
}

// Meter returns the meter registered by Setup, or a no-op meter when the
// metrics pipeline has not been configured.
func Meter() metric.Meter {
	return activeMeter
}
