package reporting

import (
	"time"

	"trader-explorer/internal/domain"
)

// Report is a point-in-time snapshot of the trader dataset.
type Report struct {
	GeneratedAt time.Time

	Overview *domain.Overview

	// Sorted by count DESC, label ASC
	Labels []domain.LabelSummary

	// One row per label archetype, ordered by name
	Archetypes []ArchetypeRow
}

// ArchetypeRow summarizes one archetype without its member list.
type ArchetypeRow struct {
	ID      int
	Name    string
	Members int
	Share   float64 // members / total traders, 0 when there are none
}
