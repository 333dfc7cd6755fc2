/*
Copyright 2024 Cadre Data, Inc.

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

package session

import "github.com/prometheus/client_golang/prometheus"

var (
	metricMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xwire",
			Name:      "messages_sent_total",
			Help:      "Number of client messages queued for sending, by message type.",
		},
		[]string{"type"},
	)
	metricMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xwire",
			Name:      "messages_received_total",
			Help:      "Number of server messages received, by message type.",
		},
		[]string{"type"},
	)
	metricStatementsExecuted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xwire",
			Name:      "statements_executed_total",
			Help:      "Number of statements queued for execution.",
		},
	)
	metricSessionsDamaged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xwire",
			Name:      "sessions_damaged_total",
			Help:      "Number of sessions rendered unusable by protocol violations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricMessagesSent,
		metricMessagesReceived,
		metricStatementsExecuted,
		metricSessionsDamaged,
	)
}
