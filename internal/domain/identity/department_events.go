package identity

import (
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// Aggregate type constant for Department
const AggregateTypeDepartment = "Department"

// Department domain event types
const (
	EventTypeDepartmentCreated       = "DepartmentCreated"
	EventTypeDepartmentStatusChanged = "DepartmentStatusChanged"
)

// DepartmentCreatedEvent is raised when a new department is created
type DepartmentCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewDepartmentCreatedEvent creates a new DepartmentCreatedEvent
func NewDepartmentCreatedEvent(dept *Department) *DepartmentCreatedEvent {
	return &DepartmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepartmentCreated, AggregateTypeDepartment, dept.ID, dept.ID),
		Code:            dept.Code,
		Name:            dept.Name,
	}
}

// DepartmentStatusChangedEvent is raised when a department is activated or deactivated
type DepartmentStatusChangedEvent struct {
	shared.BaseDomainEvent
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// NewDepartmentStatusChangedEvent creates a new DepartmentStatusChangedEvent
func NewDepartmentStatusChangedEvent(dept *Department) *DepartmentStatusChangedEvent {
	return &DepartmentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepartmentStatusChanged, AggregateTypeDepartment, dept.ID, dept.ID),
		Code:            dept.Code,
		Active:          dept.Active,
	}
}
