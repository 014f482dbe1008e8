package appwrite

import (
	"encoding/json"
	"time"

	"github.com/nhle/leadboard/internal/model"
)

// Attribute names on the hosted collections. Everything outside this file
// uses model fields.
var (
	columnAttrs = map[model.Field]string{
		model.FieldTitle: "title",
		model.FieldOrder: "order",
	}
	leadAttrs = map[model.Field]string{
		model.FieldTitle:          "title",
		model.FieldDetails:        "details",
		model.FieldColumnID:       "status",
		model.FieldOrder:          "order",
		model.FieldAssignedUserID: "assigned_to",
		model.FieldEmergency:      "is_emergency",
		model.FieldCompleted:      "is_completed",
		model.FieldNote:           "note",
		model.FieldReminderText:   "reminder",
		model.FieldReminderAt:     "reminder_time",
	}
	customerAttrs = map[model.Field]string{
		model.FieldName:            "name",
		model.FieldPhone:           "phone",
		model.FieldEmail:           "email",
		model.FieldDetails:         "details",
		model.FieldPassportFile:    "passport_file_id",
		model.FieldAadhaarFile:     "aadhaar_file_id",
		model.FieldPanFile:         "pan_file_id",
		model.FieldAssignedUserIDs: "assigned_users",
		model.FieldMemberNames:     "members",
	}
)

type meta struct {
	ID        string `json:"$id"`
	CreatedAt string `json:"$createdAt"`
	UpdatedAt string `json:"$updatedAt"`
}

func (m meta) times() (time.Time, time.Time) {
	return parseTime(m.CreatedAt), parseTime(m.UpdatedAt)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type columnDoc struct {
	meta
	Title string `json:"title"`
	Order int    `json:"order"`
}

func (d columnDoc) toModel() model.Column {
	created, updated := d.times()
	return model.Column{ID: d.ID, Title: d.Title, Order: d.Order, CreatedAt: created, UpdatedAt: updated}
}

type leadDoc struct {
	meta
	Title        string  `json:"title"`
	Details      string  `json:"details"`
	Status       string  `json:"status"`
	Order        int     `json:"order"`
	AssignedTo   *string `json:"assigned_to"`
	IsEmergency  bool    `json:"is_emergency"`
	IsCompleted  bool    `json:"is_completed"`
	Note         *string `json:"note"`
	Reminder     *string `json:"reminder"`
	ReminderTime *int64  `json:"reminder_time"`
}

func (d leadDoc) toModel() model.Lead {
	created, updated := d.times()
	return model.Lead{
		ID:             d.ID,
		Title:          d.Title,
		Details:        d.Details,
		ColumnID:       d.Status,
		Order:          d.Order,
		AssignedUserID: d.AssignedTo,
		IsEmergency:    d.IsEmergency,
		IsCompleted:    d.IsCompleted,
		Note:           d.Note,
		ReminderText:   d.Reminder,
		ReminderAt:     d.ReminderTime,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}
}

type customerDoc struct {
	meta
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Details        string  `json:"details"`
	PassportFileID *string `json:"passport_file_id"`
	AadhaarFileID  *string `json:"aadhaar_file_id"`
	PanFileID      *string `json:"pan_file_id"`
	AssignedUsers  *string `json:"assigned_users"`
	Members        *string `json:"members"`
}

func (d customerDoc) toModel() model.Customer {
	created, updated := d.times()
	return model.Customer{
		ID:      d.ID,
		Name:    d.Name,
		Phone:   d.Phone,
		Email:   d.Email,
		Details: d.Details,
		Documents: model.DocumentRefs{
			Passport: d.PassportFileID,
			Aadhaar:  d.AadhaarFileID,
			Pan:      d.PanFileID,
		},
		AssignedUserIDs: decodeUserIDs(d.AssignedUsers),
		MemberNames:     decodeMembers(d.Members),
		CreatedAt:       created,
		UpdatedAt:       updated,
	}
}

type member struct {
	Name string `json:"name"`
}

// decodeMembers reads the members attribute, a JSON array of {"name"}
// objects. Plain string arrays are accepted too.
func decodeMembers(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var objs []member
	if err := json.Unmarshal([]byte(*raw), &objs); err == nil {
		names := make([]string, 0, len(objs))
		for _, m := range objs {
			if m.Name != "" {
				names = append(names, m.Name)
			}
		}
		return names
	}
	var names []string
	if err := json.Unmarshal([]byte(*raw), &names); err == nil {
		return names
	}
	return nil
}

func encodeMembers(names []string) string {
	objs := make([]member, 0, len(names))
	for _, n := range names {
		objs = append(objs, member{Name: n})
	}
	data, _ := json.Marshal(objs)
	return string(data)
}

type assignedUser struct {
	ID string `json:"id"`
}

// decodeUserIDs reads assigned_users, a JSON array of user IDs. Arrays of
// {"id","name"} objects are accepted too.
func decodeUserIDs(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(*raw), &ids); err == nil {
		return ids
	}
	var objs []assignedUser
	if err := json.Unmarshal([]byte(*raw), &objs); err == nil {
		ids = make([]string, 0, len(objs))
		for _, u := range objs {
			ids = append(ids, u.ID)
		}
		return ids
	}
	return nil
}

func encodeUserIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// encodePatch maps a patch onto wire attributes. Fields the collection does
// not carry, and server-managed timestamps, are dropped.
func encodePatch(p model.Patch, attrs map[model.Field]string) map[string]any {
	data := make(map[string]any, len(p))
	for _, f := range p.Fields() {
		name, ok := attrs[f]
		if !ok {
			continue
		}
		data[name] = encodeValue(f, p[f])
	}
	return data
}

func encodeValue(f model.Field, v any) any {
	switch f {
	case model.FieldMemberNames:
		list, _ := v.([]string)
		return encodeMembers(list)
	case model.FieldAssignedUserIDs:
		list, _ := v.([]string)
		return encodeUserIDs(list)
	}
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}
