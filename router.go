package ope

// Hint is the caller's routing preference.
type Hint string

// Routing hints. The empty hint behaves like HintCloud.
const (
	HintLocal Hint = "local"
	HintCloud Hint = "cloud"
)

// Valid reports whether h is a known hint.
func (h Hint) Valid() bool {
	return h == "" || h == HintLocal || h == HintCloud
}

// Capabilities reports what the environment can reach.
type Capabilities interface {
	IsMockMode() bool
	HasCloud() bool
	HasLocalHTTP() bool
}

// StaticCapabilities is a fixed Capabilities value.
type StaticCapabilities struct {
	Mock      bool
	Cloud     bool
	LocalHTTP bool
}

func (c StaticCapabilities) IsMockMode() bool   { return c.Mock }
func (c StaticCapabilities) HasCloud() bool     { return c.Cloud }
func (c StaticCapabilities) HasLocalHTTP() bool { return c.LocalHTTP }

// Adapters is the set of adapters the router chooses from. Mock and LocalEcho
// fall back to the built-in implementations when nil.
type Adapters struct {
	Mock      Adapter
	LocalEcho Adapter
	LocalHTTP Adapter
	Cloud     Adapter
}

// RouteDecision names the selected model and carries its adapter.
type RouteDecision struct {
	ModelID     string  `json:"model"`
	AdapterName string  `json:"adapter"`
	Adapter     Adapter `json:"-"`
}

// Route selects an adapter. Mock mode wins over any hint; a local hint never
// reaches the cloud; otherwise cloud, then local HTTP, then local echo.
// Every input yields a decision.
func Route(caps Capabilities, hint Hint, adapters Adapters) RouteDecision {
	if caps == nil {
		caps = StaticCapabilities{}
	}
	mock := adapters.Mock
	if mock == nil {
		mock = NewMockAdapter()
	}
	echo := adapters.LocalEcho
	if echo == nil {
		echo = NewEchoAdapter()
	}
	hasLocal := caps.HasLocalHTTP() && adapters.LocalHTTP != nil
	hasCloud := caps.HasCloud() && adapters.Cloud != nil

	var selected Adapter
	switch {
	case caps.IsMockMode():
		selected = mock
	case hint == HintLocal && hasLocal:
		selected = adapters.LocalHTTP
	case hint == HintLocal:
		selected = echo
	case hasCloud:
		selected = adapters.Cloud
	case hasLocal:
		selected = adapters.LocalHTTP
	default:
		selected = echo
	}
	return decisionFor(selected)
}

func decisionFor(a Adapter) RouteDecision {
	return RouteDecision{ModelID: a.Model(), AdapterName: a.Name(), Adapter: a}
}
