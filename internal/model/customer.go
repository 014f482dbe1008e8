package model

import "time"

// DocumentKind names one of the fixed identity documents a customer can carry.
type DocumentKind string

const (
	DocPassport DocumentKind = "passport"
	DocAadhaar  DocumentKind = "aadhaar"
	DocPan      DocumentKind = "pan"
)

// DocumentKinds lists the supported document slots in display order.
var DocumentKinds = []DocumentKind{DocPassport, DocAadhaar, DocPan}

// Field returns the customer field holding the file reference for k.
func (k DocumentKind) Field() Field {
	switch k {
	case DocAadhaar:
		return FieldAadhaarFile
	case DocPan:
		return FieldPanFile
	default:
		return FieldPassportFile
	}
}

// DocumentRefs holds blob store file IDs for a customer's documents.
type DocumentRefs struct {
	Passport *string `json:"passport,omitempty" yaml:"passport,omitempty"`
	Aadhaar  *string `json:"aadhaar,omitempty" yaml:"aadhaar,omitempty"`
	Pan      *string `json:"pan,omitempty" yaml:"pan,omitempty"`
}

// Get returns the file ID stored for kind, or nil.
func (d DocumentRefs) Get(kind DocumentKind) *string {
	switch kind {
	case DocAadhaar:
		return d.Aadhaar
	case DocPan:
		return d.Pan
	default:
		return d.Passport
	}
}

// Customer is an entry in the customer directory. Customers are linked to
// leads only informally, by copying name and details at lead creation.
type Customer struct {
	ID              string       `json:"id" yaml:"id"`
	Name            string       `json:"name" yaml:"name"`
	Phone           string       `json:"phone" yaml:"phone"`
	Email           string       `json:"email" yaml:"email"`
	Details         string       `json:"details" yaml:"details"`
	MemberNames     []string     `json:"member_names" yaml:"member_names"`
	Documents       DocumentRefs `json:"documents" yaml:"documents"`
	AssignedUserIDs []string     `json:"assigned_user_ids" yaml:"assigned_user_ids"`
	CreatedAt       time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time    `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of c.
func (c Customer) Clone() Customer {
	c.MemberNames = append([]string(nil), c.MemberNames...)
	c.AssignedUserIDs = append([]string(nil), c.AssignedUserIDs...)
	c.Documents = DocumentRefs{
		Passport: cloneStringPtr(c.Documents.Passport),
		Aadhaar:  cloneStringPtr(c.Documents.Aadhaar),
		Pan:      cloneStringPtr(c.Documents.Pan),
	}
	return c
}

// Apply replaces the patched fields on c.
func (c *Customer) Apply(p Patch) {
	for f, v := range p {
		switch f {
		case FieldName:
			if s, ok := asString(v); ok {
				c.Name = s
			}
		case FieldPhone:
			if s, ok := asString(v); ok {
				c.Phone = s
			}
		case FieldEmail:
			if s, ok := asString(v); ok {
				c.Email = s
			}
		case FieldDetails:
			if s, ok := asString(v); ok {
				c.Details = s
			}
		case FieldMemberNames:
			c.MemberNames = asStrings(v)
		case FieldAssignedUserIDs:
			c.AssignedUserIDs = asStrings(v)
		case FieldPassportFile:
			c.Documents.Passport = asOptString(v)
		case FieldAadhaarFile:
			c.Documents.Aadhaar = asOptString(v)
		case FieldPanFile:
			c.Documents.Pan = asOptString(v)
		case FieldUpdatedAt:
			if t, ok := asTime(v); ok {
				c.UpdatedAt = t
			}
		}
	}
}

// AsPatch returns every mutable field of c as a patch.
func (c Customer) AsPatch() Patch {
	return Patch{
		FieldName:            c.Name,
		FieldPhone:           c.Phone,
		FieldEmail:           c.Email,
		FieldDetails:         c.Details,
		FieldMemberNames:     append([]string(nil), c.MemberNames...),
		FieldAssignedUserIDs: append([]string(nil), c.AssignedUserIDs...),
		FieldPassportFile:    cloneStringPtr(c.Documents.Passport),
		FieldAadhaarFile:     cloneStringPtr(c.Documents.Aadhaar),
		FieldPanFile:         cloneStringPtr(c.Documents.Pan),
		FieldUpdatedAt:       c.UpdatedAt,
	}
}
