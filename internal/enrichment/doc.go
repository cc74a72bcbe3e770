// Package enrichment defines the contract between the concurrency core and
// the external enrichment service: the Invoker interface, the classified
// error taxonomy, and the decoded shape of a single result record.
package enrichment
