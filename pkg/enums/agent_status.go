package enums

import "fmt"

// AgentStatus is the onboarding state of a pickup/delivery agent.
type AgentStatus string

const (
	AgentStatusPending   AgentStatus = "PENDING"
	AgentStatusApproved  AgentStatus = "APPROVED"
	AgentStatusSuspended AgentStatus = "SUSPENDED"
)

var validAgentStatuses = []AgentStatus{
	AgentStatusPending,
	AgentStatusApproved,
	AgentStatusSuspended,
}

func (a AgentStatus) String() string {
	return string(a)
}

func (a AgentStatus) IsValid() bool {
	for _, candidate := range validAgentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgentStatus converts raw input into an AgentStatus.
func ParseAgentStatus(value string) (AgentStatus, error) {
	for _, candidate := range validAgentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent status %q", value)
}
