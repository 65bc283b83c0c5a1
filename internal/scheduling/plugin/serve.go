package plugin

import (
	hcplugin "github.com/hashicorp/go-plugin"
)

// Serve starts the plugin server for a constraint evaluator. Call this
// from the main function of a constraint plugin binary.
//
//	func main() {
//		plugin.Serve(&myConstraint{})
//	}
func Serve(impl ConstraintEvaluator) {
	hcplugin.Serve(&hcplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hcplugin.Plugin{
			"constraint": &ConstraintPlugin{Impl: impl},
		},
	})
}
