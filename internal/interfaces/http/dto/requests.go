package dto

import "time"

// CreateApplicationRequest creates a draft, or a submitted application when Submit is set
type CreateApplicationRequest struct {
	LicenseTypeID string `json:"license_type_id" binding:"required,max=100"`
	Submit        bool   `json:"submit"`
}

// DecisionRequest approves or rejects the current stage
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Comment  string `json:"comment" binding:"max=2000"`
}

// ReassignRequest moves an application to another stage
type ReassignRequest struct {
	StageOrder int    `json:"stage_order" binding:"required,min=1"`
	Reason     string `json:"reason" binding:"max=2000"`
}

// StageRequest describes one stage of a workflow definition
type StageRequest struct {
	Order                  int      `json:"order" binding:"required,min=1"`
	Name                   string   `json:"name" binding:"required,max=200"`
	RequiredDocuments      []string `json:"required_documents" binding:"omitempty,dive,doctype"`
	AssignedRoleTier       string   `json:"assigned_role_tier" binding:"required,roletier"`
	CanApprove             bool     `json:"can_approve"`
	CanReject              bool     `json:"can_reject"`
	EstimatedDurationHours float64  `json:"estimated_duration_hours" binding:"gte=0"`
}

// EstimatedDuration converts the hour count to a duration
func (r StageRequest) EstimatedDuration() time.Duration {
	return time.Duration(r.EstimatedDurationHours * float64(time.Hour))
}

// DefineWorkflowRequest replaces the active workflow of a license type
type DefineWorkflowRequest struct {
	DepartmentID string         `json:"department_id" binding:"required,uuid"`
	Stages       []StageRequest `json:"stages" binding:"required,min=1,dive"`
}

// ResolvePermissionsRequest is the query of GET /permissions/resolve
type ResolvePermissionsRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	RoleTier     string `form:"role_tier" binding:"required,roletier"`
}

// MyPermissionsRequest is the query of GET /permissions/me
type MyPermissionsRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
}

// CreateDepartmentRequest creates a department
type CreateDepartmentRequest struct {
	Code        string `json:"code" binding:"required,min=2,max=50"`
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// DepartmentStatusRequest activates or deactivates a department
type DepartmentStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ActivityListRequest filters an activity trail
type ActivityListRequest struct {
	ListRequest
	Action       string     `form:"action" binding:"omitempty,max=50"`
	OverrideOnly bool       `form:"override_only"`
	From         *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To           *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// MetricSeriesRequest selects a metric series
type MetricSeriesRequest struct {
	MetricType string `form:"metric_type" binding:"required,max=50"`
	Period     string `form:"period" binding:"required,oneof=daily monthly"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ApplicationListRequest filters the caller's applications
type ApplicationListRequest struct {
	ListRequest
	Status string `form:"status" binding:"omitempty,oneof=draft submitted in_review approved rejected"`
}

// RevokeUserRequest revokes every token issued to a user so far
type RevokeUserRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}
