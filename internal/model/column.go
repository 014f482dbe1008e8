package model

import "time"

// Column is an ordered lane on the board. Order defines the left-to-right
// display sequence; ties are broken by ID.
type Column struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	Title     string    `json:"title" yaml:"title" db:"title"`
	Order     int       `json:"order" yaml:"order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" db:"updated_at"`
}

// DefaultColumnTitles is the column set created on first load of an empty board.
var DefaultColumnTitles = []string{"Lead", "Follow Up", "To Do", "Payment Collection"}

// Apply replaces the patched fields on c.
func (c *Column) Apply(p Patch) {
	for f, v := range p {
		switch f {
		case FieldTitle:
			if s, ok := asString(v); ok {
				c.Title = s
			}
		case FieldOrder:
			if n, ok := asInt(v); ok {
				c.Order = n
			}
		case FieldUpdatedAt:
			if t, ok := asTime(v); ok {
				c.UpdatedAt = t
			}
		}
	}
}

// AsPatch returns every mutable field of c as a patch.
func (c Column) AsPatch() Patch {
	return Patch{
		FieldTitle:     c.Title,
		FieldOrder:     c.Order,
		FieldUpdatedAt: c.UpdatedAt,
	}
}
