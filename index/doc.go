// Package index defines the contract between metrigo's engine layer and its
// index implementations, along with the shared distance and error types.
package index
