package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Trader Explorer Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Overview\n\n")
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total Traders", r.Overview.TotalTraders},
		{"Total Volume", formatFloat(r.Overview.TotalVolume)},
		{"Total PnL", formatFloat(r.Overview.TotalPnL)},
		{"Average ROI", formatOptional(r.Overview.AverageROI)},
	})
	sb.WriteString(t.RenderMarkdown())
	sb.WriteString("\n\n")

	sb.WriteString("## Top Traders\n\n")
	if len(r.Overview.TopTraders) > 0 {
		t = table.NewWriter()
		t.AppendHeader(table.Row{"Trader", "PnL", "ROI", "Volume", "Label"})
		for _, tr := range r.Overview.TopTraders {
			label := "-"
			if tr.Label != nil {
				label = *tr.Label
			}
			t.AppendRow(table.Row{tr.Trader, formatFloat(tr.PnL), formatOptional(tr.ROI), formatOptional(tr.Volume), label})
		}
		sb.WriteString(t.RenderMarkdown())
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("No traders loaded.\n\n")
	}

	sb.WriteString("## Label Summary\n\n")
	if len(r.Labels) > 0 {
		sb.WriteString(labelTable(r).RenderMarkdown())
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("No labels available.\n\n")
	}

	sb.WriteString("## Archetypes\n\n")
	if len(r.Archetypes) > 0 {
		t = table.NewWriter()
		t.AppendHeader(table.Row{"ID", "Name", "Members", "Share"})
		for _, a := range r.Archetypes {
			t.AppendRow(table.Row{a.ID, a.Name, a.Members, fmt.Sprintf("%.2f%%", a.Share*100)})
		}
		sb.WriteString(t.RenderMarkdown())
		sb.WriteString("\n")
	} else {
		sb.WriteString("No archetypes available.\n")
	}

	return sb.String()
}

func labelTable(r *Report) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"label", "count", "avg_ppv", "roi_mean", "roi_std"})
	for _, l := range r.Labels {
		t.AppendRow(table.Row{l.Label, l.Count, formatOptional(l.AvgPPV), formatOptional(l.ROIMean), formatOptional(l.ROIStd)})
	}
	return t
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// formatOptional renders NULL as an empty string.
func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
