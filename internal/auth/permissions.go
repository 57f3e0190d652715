package auth

// Resource keys as they appear inside permission names. These mirror the
// permission catalog rows; the sets stay open and database-driven, so no
// enum or bitmask is derived from them.
const (
	ResourceDocuments  = "DOCUMENTS"
	ResourceViolations = "VIOLATIONS"
	ResourceUser       = "USER"
)

// Permission name builders. A role holds plain strings like
// READ_DOCUMENTS; matching is set membership over those strings.
func PermRead(resource string) string   { return "READ_" + resource }
func PermCreate(resource string) string { return "CREATE_" + resource }
func PermUpdate(resource string) string { return "UPDATE_" + resource }
func PermDelete(resource string) string { return "DELETE_" + resource }

// BuiltinPermissions seeds the permission catalog. Roles may reference
// additional rows created at runtime.
var BuiltinPermissions = []Permission{
	{Name: PermRead(ResourceDocuments), Description: "Read documents"},
	{Name: PermCreate(ResourceDocuments), Description: "Create documents"},
	{Name: PermUpdate(ResourceDocuments), Description: "Update documents"},
	{Name: PermDelete(ResourceDocuments), Description: "Delete documents"},
	{Name: PermRead(ResourceViolations), Description: "Read violations"},
	{Name: PermCreate(ResourceViolations), Description: "Create violations"},
	{Name: PermUpdate(ResourceViolations), Description: "Update violations"},
	{Name: PermDelete(ResourceViolations), Description: "Delete violations"},
	{Name: PermRead(ResourceUser), Description: "Read users"},
	{Name: PermCreate(ResourceUser), Description: "Create users"},
	{Name: PermUpdate(ResourceUser), Description: "Update users"},
	{Name: PermDelete(ResourceUser), Description: "Delete users"},
}
