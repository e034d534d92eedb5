// Package kafka publishes pipeline lifecycle events so downstream consumers
// (portfolio dashboards, alerting) can react to freshly analyzed contracts
// without polling the offer store.
package kafka

// Topic names.  Topics are provisioned by the deployment, not by this code.
const (
	// TopicContractAnalyzed carries one event per successfully analyzed
	// contract.
	TopicContractAnalyzed = "contract.analyzed"
)
