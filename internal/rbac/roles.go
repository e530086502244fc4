package rbac

// Role names. Keep these stable; they are shared with the session layer.
const (
	RoleSysAdmin    = "sysadmin"
	RoleHeadOffice  = "headoffice"
	RoleOwner       = "owner"
	RoleSalesHead   = "salesHead"
	RoleSalesperson = "salesperson"
)

func IsSysAdmin(role string) bool { return role == RoleSysAdmin }

// CanManageDevices reports whether role may edit any device by id alone.
func CanManageDevices(role string) bool {
	return role == RoleHeadOffice || role == RoleSysAdmin
}
