// Package alerts delivers short status messages from router scripts to
// operators: SMS through the router CLI and STRING datapoints to Remote Manager.
package alerts
