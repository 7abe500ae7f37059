package reporting

import (
	"context"
	"fmt"
	"time"

	"trader-explorer/internal/domain"
	"trader-explorer/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	reader storage.AnalyticsReader
	top    int
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(reader storage.AnalyticsReader) *Generator {
	return &Generator{
		reader: reader,
		top:    domain.TopTradersLimit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTop sets the number of top traders listed.
func (g *Generator) WithTop(n int) *Generator {
	if n > 0 {
		g.top = n
	}
	return g
}

// Generate produces a complete report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	overview, err := g.reader.Overview(ctx, g.top)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}

	labels, err := g.reader.LabelSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("label summary: %w", err)
	}

	archetypes, err := g.reader.Archetypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("archetypes: %w", err)
	}

	rows := make([]ArchetypeRow, 0, len(archetypes))
	for _, a := range archetypes {
		row := ArchetypeRow{ID: a.ID, Name: a.Name, Members: len(a.Members)}
		if overview.TotalTraders > 0 {
			row.Share = float64(row.Members) / float64(overview.TotalTraders)
		}
		rows = append(rows, row)
	}

	return &Report{
		GeneratedAt: g.now(),
		Overview:    overview,
		Labels:      labels,
		Archetypes:  rows,
	}, nil
}
