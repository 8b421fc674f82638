package core

import "fmt"

// Status is the lifecycle state of a staging item.
type Status string

const (
	// StatusPending indicates the item awaits human review.
	StatusPending Status = "pending"
	// StatusChangesRequested indicates a reviewer asked for changes before deciding.
	StatusChangesRequested Status = "changes_requested"
	// StatusApproved indicates a reviewer approved the item for publication.
	StatusApproved Status = "approved"
	// StatusRejected indicates a reviewer rejected the item.
	StatusRejected Status = "rejected"
	// StatusArchived indicates an admin removed the item from the workflow.
	StatusArchived Status = "archived"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusChangesRequested, StatusApproved, StatusRejected, StatusArchived:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for statuses that admit no further transition
// except the admin override to archived.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusArchived:
		return true
	default:
		return false
	}
}

// ParseStatus converts a string into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// Event is a reviewer or system action that drives a status transition.
type Event string

const (
	// EventApprove is a reviewer approving a pending item.
	EventApprove Event = "approve"
	// EventReject is a reviewer rejecting a pending item.
	EventReject Event = "reject"
	// EventRequestChanges is a reviewer sending a pending item back for rework.
	EventRequestChanges Event = "request_changes"
	// EventResubmit returns a reworked item to the review queue.
	EventResubmit Event = "resubmit"
	// EventPublish records a successful publish of an approved item.
	EventPublish Event = "publish"
	// EventArchive is the admin override removing an item from the workflow.
	EventArchive Event = "archive"
)

// ParseEvent converts a string into an Event, rejecting unknown values.
func ParseEvent(raw string) (Event, error) {
	ev := Event(raw)
	switch ev {
	case EventApprove, EventReject, EventRequestChanges, EventResubmit, EventPublish, EventArchive:
		return ev, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
}

// Next returns the status reached by applying an event to s. The second
// return value is false when the transition table forbids the event, in
// which case the status is returned unchanged.
//
// Transition table (initial pending, terminals approved/rejected/archived):
//
//	pending            --approve-->          approved
//	pending            --reject-->           rejected
//	pending            --request_changes-->  changes_requested
//	changes_requested  --resubmit-->         pending
//	approved           --publish-->          approved (PublishedAt set by the caller)
//	any but archived   --archive-->          archived
func (s Status) Next(ev Event) (Status, bool) {
	switch ev {
	case EventApprove:
		if s == StatusPending {
			return StatusApproved, true
		}
	case EventReject:
		if s == StatusPending {
			return StatusRejected, true
		}
	case EventRequestChanges:
		if s == StatusPending {
			return StatusChangesRequested, true
		}
	case EventResubmit:
		if s == StatusChangesRequested {
			return StatusPending, true
		}
	case EventPublish:
		if s == StatusApproved {
			return StatusApproved, true
		}
	case EventArchive:
		if s.IsValid() && s != StatusArchived {
			return StatusArchived, true
		}
	}
	return s, false
}
