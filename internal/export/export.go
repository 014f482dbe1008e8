// Package export writes a board snapshot as YAML or JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want yaml or json)", s)
}

// Column is a column with its active leads in display order.
type Column struct {
	ID    string       `json:"id" yaml:"id"`
	Title string       `json:"title" yaml:"title"`
	Leads []model.Lead `json:"leads" yaml:"leads"`
}

// Snapshot is the exported board.
type Snapshot struct {
	ExportedAt time.Time        `json:"exported_at" yaml:"exported_at"`
	Columns    []Column         `json:"columns" yaml:"columns"`
	Completed  []model.Lead     `json:"completed" yaml:"completed"`
	Orphaned   []model.Lead     `json:"orphaned,omitempty" yaml:"orphaned,omitempty"`
	Customers  []model.Customer `json:"customers" yaml:"customers"`
}

// Take captures s.
func Take(s *board.State, now time.Time) Snapshot {
	snap := Snapshot{
		ExportedAt: now.UTC(),
		Completed:  s.CompletedLeads(),
		Orphaned:   s.OrphanedLeads(),
		Customers:  s.Customers(),
	}
	for _, c := range s.Columns() {
		snap.Columns = append(snap.Columns, Column{
			ID:    c.ID,
			Title: c.Title,
			Leads: s.LeadsInColumn(c.ID),
		})
	}
	return snap
}

// Write encodes snap to w.
func Write(w io.Writer, snap Snapshot, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	}
	return nil
}
