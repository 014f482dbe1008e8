package model

// EntityKind identifies one of the persisted collections on the board.
type EntityKind string

const (
	KindColumn   EntityKind = "column"
	KindLead     EntityKind = "lead"
	KindCustomer EntityKind = "customer"
)

// String implements fmt.Stringer.
func (k EntityKind) String() string { return string(k) }

// Field names a single mutable attribute of an entity. Field names are
// shared across kinds where the meaning is the same (title, details).
type Field string

// Column and shared fields.
const (
	FieldTitle     Field = "title"
	FieldOrder     Field = "order"
	FieldUpdatedAt Field = "updated_at"
)

// Lead fields.
const (
	FieldDetails        Field = "details"
	FieldColumnID       Field = "column_id"
	FieldAssignedUserID Field = "assigned_user_id"
	FieldEmergency      Field = "is_emergency"
	FieldCompleted      Field = "is_completed"
	FieldNote           Field = "note"
	FieldReminderText   Field = "reminder_text"
	FieldReminderAt     Field = "reminder_at"
)

// Customer fields.
const (
	FieldName            Field = "name"
	FieldPhone           Field = "phone"
	FieldEmail           Field = "email"
	FieldMemberNames     Field = "member_names"
	FieldPassportFile    Field = "passport_file_id"
	FieldAadhaarFile     Field = "aadhaar_file_id"
	FieldPanFile         Field = "pan_file_id"
	FieldAssignedUserIDs Field = "assigned_user_ids"
)
