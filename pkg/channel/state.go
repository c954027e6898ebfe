package channel

// State is the transient readiness of the link to one tab's page agent.
//
// Unknown -> Probing -> Ready
// Unknown -> Probing -> InstallRequested -> Probing -> Ready | Unreachable
type State string

const (
	StateUnknown          State = "unknown"
	StateProbing          State = "probing"
	StateInstallRequested State = "install-requested"
	StateReady            State = "ready"
	StateUnreachable      State = "unreachable"
)

// Status is the result of EnsureReady.
type Status struct {
	// State is Ready or Unreachable once EnsureReady returns.
	State State `json:"state"`

	// Reason carries the last probe error when State is Unreachable.
	Reason string `json:"reason,omitempty"`

	// Attempts is the number of probes that were sent.
	Attempts int `json:"attempts"`

	// InstallRequested is true when the installer was asked to inject the agent.
	InstallRequested bool `json:"installRequested"`

	// AgentVersion is reported by the agent on a successful probe.
	AgentVersion string `json:"agentVersion,omitempty"`
}

// Ready reports whether the channel can carry operations.
func (s Status) Ready() bool {
	return s.State == StateReady
}
