package licensing

import "github.com/afrinict/nbcportal-sub001/internal/domain/shared"

// Status is the lifecycle state of an application. The zero value is a draft
// that has not been submitted yet.
type Status string

const (
	StatusDraft     Status = ""
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// IsTerminal reports whether no further transition is permitted
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsOnStage reports whether the application currently sits on a workflow stage awaiting action
func (s Status) IsOnStage() bool {
	return s == StatusSubmitted || s == StatusInReview
}

// Label returns the applicant-facing name of the status
func (s Status) Label() string {
	if s == StatusDraft {
		return "draft"
	}
	return string(s)
}

// ParseStatus parses a status name; "draft" and "" both mean StatusDraft
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusSubmitted, StatusInReview, StatusApproved, StatusRejected:
		return Status(s), nil
	case "draft":
		return StatusDraft, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown application status: "+s)
}

// Decision is the outcome a reviewer chooses on a stage
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision name
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, "Decision must be approve or reject")
}
