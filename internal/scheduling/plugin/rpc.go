package plugin

import (
	"net/rpc"

	hcplugin "github.com/hashicorp/go-plugin"
)

// ConstraintEvaluator is the interface a constraint plugin binary
// implements. Name identifies the term in statistics output; Evaluate
// returns the additional soft-cost contribution for one snapshot.
type ConstraintEvaluator interface {
	Name() string
	Evaluate(snapshot Snapshot) (float64, error)
}

// ConstraintPlugin is the go-plugin Plugin implementation dispensed under
// the "constraint" key. Impl is set on the plugin-binary side; the host
// side only ever calls Client.
type ConstraintPlugin struct {
	Impl ConstraintEvaluator
}

// Server returns the RPC server the plugin binary runs, wrapping Impl.
func (p *ConstraintPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &constraintPluginRPCServer{impl: p.Impl}, nil
}

// Client returns the RPC client stub the host uses, satisfying
// ConstraintEvaluator itself so callers never see the RPC plumbing.
func (p *ConstraintPlugin) Client(_ *hcplugin.MuxBroker, client *rpc.Client) (interface{}, error) {
	return &constraintPluginRPCClient{client: client}, nil
}

// constraintPluginRPCClient is the host-side stub: every call to it is a
// blocking net/rpc round trip to the plugin subprocess.
type constraintPluginRPCClient struct {
	client *rpc.Client
}

func (c *constraintPluginRPCClient) Name() string {
	var resp string
	if err := c.client.Call("Plugin.Name", new(interface{}), &resp); err != nil {
		return ""
	}
	return resp
}

func (c *constraintPluginRPCClient) Evaluate(snapshot Snapshot) (float64, error) {
	var resp float64
	err := c.client.Call("Plugin.Evaluate", snapshot, &resp)
	return resp, err
}

// constraintPluginRPCServer runs inside the plugin subprocess, dispatching
// net/rpc calls to the author's ConstraintEvaluator implementation.
type constraintPluginRPCServer struct {
	impl ConstraintEvaluator
}

func (s *constraintPluginRPCServer) Name(_ interface{}, resp *string) error {
	*resp = s.impl.Name()
	return nil
}

func (s *constraintPluginRPCServer) Evaluate(snapshot Snapshot, resp *float64) error {
	v, err := s.impl.Evaluate(snapshot)
	*resp = v
	return err
}
