package model

import "time"

// Lead is a trackable sales record placed in exactly one column.
// IsCompleted is a soft delete: completed leads leave the board but stay in
// history until permanently deleted.
type Lead struct {
	ID             string    `json:"id" yaml:"id" db:"id"`
	Title          string    `json:"title" yaml:"title" db:"title"`
	Details        string    `json:"details" yaml:"details" db:"details"`
	ColumnID       string    `json:"column_id" yaml:"column_id" db:"column_id"`
	Order          int       `json:"order" yaml:"order" db:"sort_order"`
	AssignedUserID *string   `json:"assigned_user_id,omitempty" yaml:"assigned_user_id,omitempty" db:"assigned_user_id"`
	IsEmergency    bool      `json:"is_emergency" yaml:"is_emergency" db:"is_emergency"`
	IsCompleted    bool      `json:"is_completed" yaml:"is_completed" db:"is_completed"`
	Note           *string   `json:"note,omitempty" yaml:"note,omitempty" db:"note"`
	ReminderText   *string   `json:"reminder_text,omitempty" yaml:"reminder_text,omitempty" db:"reminder_text"`
	ReminderAt     *int64    `json:"reminder_at,omitempty" yaml:"reminder_at,omitempty" db:"reminder_at"`
	CreatedAt      time.Time `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-" db:"updated_at"`
}

// Lead defaults used by the board's create actions.
const (
	DefaultLeadTitle   = "NEW LEAD"
	DefaultLeadDetails = "Details..."
	QuickLeadTitle     = "QUICK LEAD"
	QuickLeadDetails   = "Click Edit to change details."
	ReminderLayout     = "02-01-2006 15:04"

	// ReminderInputLayout is the form used when a reminder time is typed in.
	ReminderInputLayout = "2006-01-02 15:04"
)

// ReminderTime returns the reminder time, if one is set.
func (l Lead) ReminderTime() (time.Time, bool) {
	if l.ReminderAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*l.ReminderAt), true
}

// HasReminder reports whether the lead carries reminder text.
func (l Lead) HasReminder() bool {
	return l.ReminderText != nil && *l.ReminderText != ""
}

// Clone returns a deep copy of l.
func (l Lead) Clone() Lead {
	l.AssignedUserID = cloneStringPtr(l.AssignedUserID)
	l.Note = cloneStringPtr(l.Note)
	l.ReminderText = cloneStringPtr(l.ReminderText)
	l.ReminderAt = cloneInt64Ptr(l.ReminderAt)
	return l
}

// Apply replaces the patched fields on l.
func (l *Lead) Apply(p Patch) {
	for f, v := range p {
		switch f {
		case FieldTitle:
			if s, ok := asString(v); ok {
				l.Title = s
			}
		case FieldDetails:
			if s, ok := asString(v); ok {
				l.Details = s
			}
		case FieldColumnID:
			if s, ok := asString(v); ok {
				l.ColumnID = s
			}
		case FieldOrder:
			if n, ok := asInt(v); ok {
				l.Order = n
			}
		case FieldAssignedUserID:
			l.AssignedUserID = asOptString(v)
		case FieldEmergency:
			if b, ok := v.(bool); ok {
				l.IsEmergency = b
			}
		case FieldCompleted:
			if b, ok := v.(bool); ok {
				l.IsCompleted = b
			}
		case FieldNote:
			l.Note = asOptString(v)
		case FieldReminderText:
			l.ReminderText = asOptString(v)
		case FieldReminderAt:
			l.ReminderAt = asOptInt64(v)
		case FieldUpdatedAt:
			if t, ok := asTime(v); ok {
				l.UpdatedAt = t
			}
		}
	}
}

// AsPatch returns every mutable field of l as a patch.
func (l Lead) AsPatch() Patch {
	return Patch{
		FieldTitle:          l.Title,
		FieldDetails:        l.Details,
		FieldColumnID:       l.ColumnID,
		FieldOrder:          l.Order,
		FieldAssignedUserID: cloneStringPtr(l.AssignedUserID),
		FieldEmergency:      l.IsEmergency,
		FieldCompleted:      l.IsCompleted,
		FieldNote:           cloneStringPtr(l.Note),
		FieldReminderText:   cloneStringPtr(l.ReminderText),
		FieldReminderAt:     cloneInt64Ptr(l.ReminderAt),
		FieldUpdatedAt:      l.UpdatedAt,
	}
}
