package authz

import (
	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

// Permission strings understood by the capability model
const (
	PermAccessPatients          = "can_access_patients"
	PermAccessAppointments      = "can_access_appointments"
	PermGenerateReports         = "can_generate_reports"
	PermBookAppointment         = "can_book_appointment"
	PermCancelAppointment       = "can_cancel_appointment"
	PermUpdateAppointmentReason = "can_update_appointment_reason"
	PermMarkAppointmentDone     = "can_mark_appointment_done"
	PermUpdateAppointment       = "can_update_appointment"
	PermCreateBill              = "can_create_bill"
	PermDeleteBill              = "can_delete_bill"
	PermProcessPayments         = "can_process_payments"
	PermManageStaff             = "can_manage_staff"
	PermDeletePatient           = "can_delete_patient"
	PermAccessBilling           = "can_access_billing"
)

var nursePermissions = []string{
	PermAccessPatients,
	PermAccessAppointments,
	PermGenerateReports,
	PermBookAppointment,
	PermCancelAppointment,
	PermUpdateAppointmentReason,
}

var doctorPermissions = []string{
	PermMarkAppointmentDone,
	PermUpdateAppointment,
}

// basePrincipal is the innermost capability set: an identity with no
// permissions at all
type basePrincipal struct {
	username string
	role     string
}

// HasPermission always denies on the base principal
func (p *basePrincipal) HasPermission(permission string) bool {
	return false
}

// Role returns the principal's role string
func (p *basePrincipal) Role() string {
	return p.role
}

// Username returns the principal's username
func (p *basePrincipal) Username() string {
	return p.username
}

// grantLayer wraps an inner permission set with an allow-list. Permissions
// in the set are granted, everything else is delegated to the wrapped set,
// so layers compose
type grantLayer struct {
	inner    interfaces.PermissionSet
	grants   map[string]struct{}
	allowAll bool
}

// HasPermission grants from this layer's set and delegates the rest
func (l *grantLayer) HasPermission(permission string) bool {
	if l.allowAll {
		return true
	}
	if _, ok := l.grants[permission]; ok {
		return true
	}
	return l.inner.HasPermission(permission)
}

// Role returns the wrapped principal's role
func (l *grantLayer) Role() string {
	return l.inner.Role()
}

// Username returns the wrapped principal's username
func (l *grantLayer) Username() string {
	return l.inner.Username()
}

// StackLayer wraps an existing permission set with an additional allow-list.
// The current factory applies a single layer per role, but stacking (for
// example Doctor plus an on-call supervisor grant) works without touching
// any downstream code
func StackLayer(inner interfaces.PermissionSet, permissions ...string) interfaces.PermissionSet {
	grants := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		grants[p] = struct{}{}
	}
	return &grantLayer{
		inner:  inner,
		grants: grants,
	}
}

// StackAdminLayer wraps an existing permission set with an unconditional
// grant of every permission
func StackAdminLayer(inner interfaces.PermissionSet) interfaces.PermissionSet {
	return &grantLayer{
		inner:    inner,
		allowAll: true,
	}
}

// NewPrincipal builds the capability set for a session from a stored role
// string. Unknown roles get the bare base principal, which denies every
// permission. Never panics
func NewPrincipal(username, role string) interfaces.PermissionSet {
	base := &basePrincipal{
		username: username,
		role:     role,
	}

	switch types.UserRole(role) {
	case types.RoleDoctor:
		return StackLayer(base, doctorPermissions...)
	case types.RoleNurse:
		return StackLayer(base, nursePermissions...)
	case types.RoleAdmin:
		return StackAdminLayer(base)
	default:
		return base
	}
}
