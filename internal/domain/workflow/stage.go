package workflow

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

var documentTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)

const maxStageNameLength = 100

// Stage is one ordered step of a license type's review workflow
type Stage struct {
	Order             int
	Name              string
	RequiredDocuments []string
	AssignedTier      identity.RoleTier
	CanApprove        bool
	CanReject         bool
	// EstimatedDuration is advisory and only feeds the ETA projection
	EstimatedDuration time.Duration
}

// IsValidDocumentType reports whether s is a well-formed document type identifier
func IsValidDocumentType(s string) bool {
	return documentTypePattern.MatchString(s)
}

// normalize returns a copy with trimmed name and a sorted, de-duplicated document set
func (s Stage) normalize() Stage {
	out := s
	out.Name = strings.TrimSpace(s.Name)

	seen := make(map[string]struct{}, len(s.RequiredDocuments))
	docs := make([]string, 0, len(s.RequiredDocuments))
	for _, d := range s.RequiredDocuments {
		d = strings.ToLower(strings.TrimSpace(d))
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		docs = append(docs, d)
	}
	sort.Strings(docs)
	out.RequiredDocuments = docs
	return out
}

func (s Stage) validate() error {
	if s.Order <= 0 {
		return invalidWorkflow("stage order must be a positive integer")
	}
	if s.Name == "" {
		return invalidWorkflow("stage name cannot be empty")
	}
	if len(s.Name) > maxStageNameLength {
		return invalidWorkflow("stage name cannot exceed 100 characters")
	}
	if !s.AssignedTier.IsValid() {
		return invalidWorkflow("stage " + s.Name + " has an invalid assigned role tier")
	}
	if s.EstimatedDuration < 0 {
		return invalidWorkflow("stage " + s.Name + " has a negative estimated duration")
	}
	for _, d := range s.RequiredDocuments {
		if !IsValidDocumentType(d) {
			return invalidWorkflow("stage " + s.Name + " requires malformed document type " + d)
		}
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate a loaded workflow
func (s Stage) clone() Stage {
	out := s
	out.RequiredDocuments = append([]string(nil), s.RequiredDocuments...)
	return out
}

func invalidWorkflow(msg string) error {
	return shared.NewDomainError(shared.CodeInvalidWorkflow, "Invalid workflow: "+msg)
}
