package licensing

import (
	"errors"
	"sort"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// DetailMissingDocuments is the detail key listing missing document types
const DetailMissingDocuments = "missing_documents"

// NewMissingRequirementsError names the document types that are absent or unverified
func NewMissingRequirementsError(missing []string) *shared.DomainError {
	docs := append([]string(nil), missing...)
	sort.Strings(docs)
	return shared.ErrMissingRequirements.
		WithMessage("Required documents are missing or unverified: " + strings.Join(docs, ", ")).
		WithDetail(DetailMissingDocuments, docs)
}

// MissingDocuments extracts the missing document list from a MissingRequirements error
func MissingDocuments(err error) []string {
	var de *shared.DomainError
	if !errors.As(err, &de) || de.Code != shared.CodeMissingRequirements {
		return nil
	}
	docs, _ := de.Details[DetailMissingDocuments].([]string)
	return docs
}

func terminalError(s Status) error {
	return shared.ErrTerminalState.WithMessage("Application is already " + string(s))
}

func permissionDenied(reason string) error {
	return shared.ErrPermissionDenied.WithMessage(reason)
}
