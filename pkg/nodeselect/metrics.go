// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeselect

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/node-scheduler/pkg/metrics"
)

var (
	evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodeselect",
		Name:      "evaluations_total",
		Help:      "Number of Evaluate calls, by chosen strategy and outcome.",
	}, []string{"strategy", "outcome"})

	failuresByKind = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nodeselect",
		Name:      "evaluation_failures_total",
		Help:      "Number of failed Evaluate calls, by ErrorKind.",
	}, []string{"kind"})
)

func init() {
	_ = metrics.RegisterCollector("nodeselect", func() (prometheus.Collector, error) {
		return prometheus.NewMultiCollector(evaluations, failuresByKind), nil
	})
}

func recordOutcome(strategyName string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	evaluations.WithLabelValues(strategyName, outcome).Inc()
}

func recordFailure(kind ErrorKind) {
	failuresByKind.WithLabelValues(kind.String()).Inc()
}
