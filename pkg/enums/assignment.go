package enums

import "fmt"

// AssignmentType is the leg an agent is assigned to.
type AssignmentType string

const (
	AssignmentTypePickup   AssignmentType = "PICKUP"
	AssignmentTypeDelivery AssignmentType = "DELIVERY"
)

var validAssignmentTypes = []AssignmentType{
	AssignmentTypePickup,
	AssignmentTypeDelivery,
}

func (a AssignmentType) String() string {
	return string(a)
}

func (a AssignmentType) IsValid() bool {
	for _, candidate := range validAssignmentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// CompletedStatus is the assignment status reached when the leg is done.
func (a AssignmentType) CompletedStatus() AssignmentStatus {
	if a == AssignmentTypeDelivery {
		return AssignmentStatusDelivered
	}
	return AssignmentStatusPickedUp
}

// ParseAssignmentType converts raw input into an AssignmentType.
func ParseAssignmentType(value string) (AssignmentType, error) {
	for _, candidate := range validAssignmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment type %q", value)
}

// AssignmentStatus is the agent-facing state of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentStatusAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentStatusRejected  AssignmentStatus = "REJECTED"
	AssignmentStatusPickedUp  AssignmentStatus = "PICKED_UP"
	AssignmentStatusDelivered AssignmentStatus = "DELIVERED"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusAccepted,
	AssignmentStatusRejected,
	AssignmentStatusPickedUp,
	AssignmentStatusDelivered,
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusAssigned: {AssignmentStatusAccepted, AssignmentStatusRejected},
	AssignmentStatusAccepted: {AssignmentStatusPickedUp, AssignmentStatusDelivered},
}

// ActiveAssignmentStatuses block a second assignment for the same order leg.
var ActiveAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusAccepted,
}

func (s AssignmentStatus) String() string {
	return string(s)
}

func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, candidate := range assignmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
