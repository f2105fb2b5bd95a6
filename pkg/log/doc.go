// Package log is a thin wrapper around the standard library logger that gives
// every msgsearch component its own named logger.
//
// Each line is prefixed with the component name so output from the refresh
// path and the search path can be told apart in CloudWatch or journald:
//
//	l := log.ForComponent("refresh")
//	l.Infof("installed %d messages", n)
//	// 2025/01/02 10:00:00.000000 INFO [refresh>] installed 250 messages
//
// Debug output is off by default. It can be enabled for everything with
// SetGlobalDebug (the --debug CLI flag) or for a single component with
// EnableDebugFor.
//
// Tests can capture output by passing a bytes.Buffer to SetOutput.
//
// The package name collides with the standard library "log"; alias one of
// them when both are needed.
package log
