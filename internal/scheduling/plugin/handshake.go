// Package plugin is the SDK and net/rpc transport for constraint plugins:
// out-of-process soft-cost terms an institution can add beyond S1-S7
// without recompiling the solver. Unlike the engine plugins this codebase
// descends from, constraint plugins exchange a single evaluate call with a
// plain JSON-shaped snapshot, so the simpler net/rpc transport go-plugin
// offers is preferred here over hand-authored protobuf.
package plugin

import (
	hcplugin "github.com/hashicorp/go-plugin"
)

// HandshakeConfig is used to verify that a constraint plugin binary is
// compatible with the host's SDK version. Both host and plugin must use
// the same handshake configuration.
var HandshakeConfig = hcplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SHIFTFORGE_CONSTRAINT_PLUGIN",
	MagicCookieValue: "shiftforge-constraint-v1",
}

// PluginMap is the map of plugins dispensed over the RPC connection. A
// constraint plugin binary always serves exactly one named plugin.
var PluginMap = map[string]hcplugin.Plugin{
	"constraint": &ConstraintPlugin{},
}
