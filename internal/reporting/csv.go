package reporting

// RenderCSV renders the label summary as CSV with a header row.
func RenderCSV(r *Report) string {
	return labelTable(r).RenderCSV() + "\n"
}
