package identity

import (
	"regexp"
	"strings"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

var departmentCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

const (
	maxDepartmentCodeLength = 20
	maxDepartmentNameLength = 200
)

// Department is an organizational unit and the authorization scope for workflow stages
type Department struct {
	shared.BaseAggregateRoot
	Code        string // Unique short code, stored upper-case (e.g., "LIC", "TECH")
	Name        string
	Description string
	Active      bool
}

// NewDepartment creates an active department
func NewDepartment(code, name string) (*Department, error) {
	if err := validateDepartmentCode(code); err != nil {
		return nil, err
	}
	if err := validateDepartmentName(name); err != nil {
		return nil, err
	}

	dept := &Department{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		Active:            true,
	}

	dept.AddDomainEvent(NewDepartmentCreatedEvent(dept))

	return dept, nil
}

// Update changes the department's display fields
func (d *Department) Update(name, description string) error {
	if err := validateDepartmentName(name); err != nil {
		return err
	}

	d.Name = strings.TrimSpace(name)
	d.Description = strings.TrimSpace(description)
	d.Touch(shared.Now())
	d.IncrementVersion()

	return nil
}

// Activate activates the department
func (d *Department) Activate() error {
	if d.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "Department is already active")
	}

	d.Active = true
	d.Touch(shared.Now())
	d.IncrementVersion()
	d.AddDomainEvent(NewDepartmentStatusChangedEvent(d))

	return nil
}

// Deactivate deactivates the department. Grants of an inactive department resolve to nothing.
func (d *Department) Deactivate() error {
	if !d.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "Department is already inactive")
	}

	d.Active = false
	d.Touch(shared.Now())
	d.IncrementVersion()
	d.AddDomainEvent(NewDepartmentStatusChangedEvent(d))

	return nil
}

// IsActive returns true if department is active
func (d *Department) IsActive() bool {
	return d.Active
}

func validateDepartmentCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Department code cannot be empty")
	}
	if len(code) > maxDepartmentCodeLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Department code cannot exceed 20 characters")
	}
	if !departmentCodePattern.MatchString(code) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Department code must start with a letter and contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}

func validateDepartmentName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Department name cannot be empty")
	}
	if len(name) > maxDepartmentNameLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Department name cannot exceed 200 characters")
	}
	return nil
}
