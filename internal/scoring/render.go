package scoring

import (
	"fmt"
	"sort"
	"strings"

	"climateprep/domain/quality"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown formats a report as a markdown document
func RenderMarkdown(r *quality.Report) string {
	var b strings.Builder

	title := r.File.Filename
	if title == "" {
		title = "upload"
	}
	fmt.Fprintf(&b, "# Data quality report: %s\n\n", title)
	if r.ID != "" {
		fmt.Fprintf(&b, "- Report: `%s`\n", r.ID)
	}
	fmt.Fprintf(&b, "- Schema: %s\n", r.Schema)
	if r.File.SizeBytes > 0 {
		fmt.Fprintf(&b, "- File: %s, %d bytes, sha256 `%s`\n", r.File.Extension, r.File.SizeBytes, r.File.SHA256.Short())
	}
	fmt.Fprintf(&b, "- Rows: %d, columns: %d\n", r.File.Rows, r.File.Columns)
	fmt.Fprintf(&b, "- Overall score: **%.2f** (%s)\n\n", r.Assessment.OverallScore, r.Assessment.Grade)

	b.WriteString("## Quality dimensions\n\n")
	if r.Output != nil {
		b.WriteString("| Dimension | Input | Cleaned | Change |\n|---|---|---|---|\n")
		out := r.Output.Dimensions()
		for i, d := range r.Assessment.Dimensions() {
			fmt.Fprintf(&b, "| %s | %.3f | %.3f | %+.3f |\n", d.Name, d.Score, out[i].Score, out[i].Score-d.Score)
		}
	} else {
		b.WriteString("| Dimension | Score |\n|---|---|\n")
		for _, d := range r.Assessment.Dimensions() {
			fmt.Fprintf(&b, "| %s | %.3f |\n", d.Name, d.Score)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Column mapping\n\n")
	if r.Mapping.Len() == 0 {
		b.WriteString("No columns were mapped.\n\n")
	} else {
		b.WriteString("| Field | Column | Score |\n|---|---|---|\n")
		for _, field := range r.Mapping.MappedFields() {
			fmt.Fprintf(&b, "| %s | %s | %.2f |\n", cell(field), cell(r.Mapping.Fields[field]), r.Mapping.Scores[field])
		}
		b.WriteString("\n")
	}
	if len(r.MissingRequiredFields) > 0 {
		fmt.Fprintf(&b, "Missing required fields: %s\n\n", strings.Join(r.MissingRequiredFields, ", "))
	}

	if len(r.Transformations) > 0 {
		b.WriteString("## Transformations\n\n| Stage | Rows | Columns | Detail |\n|---|---|---|---|\n")
		for _, t := range r.Transformations {
			fmt.Fprintf(&b, "| %s | %d → %d | %d → %d | %s |\n", cell(t.Stage), t.RowsBefore, t.RowsAfter, t.ColumnsBefore, t.ColumnsAfter, cell(t.Detail))
		}
		b.WriteString("\n")
	}

	writeCounts(&b, "Coercion failures", r.Cleaning.CoercionErrors)
	writeCounts(&b, "Out-of-range values", r.Cleaning.OutOfRange)
	writeCounts(&b, "Imputed cells", r.Cleaning.Imputed)
	writeCounts(&b, "Clipped cells", r.Cleaning.Clipped)

	if len(r.Profiles) > 0 {
		b.WriteString("## Column profiles\n\n| Column | Count | Missing | Mean | Std | Min | Max | Outliers | Normal |\n|---|---|---|---|---|---|---|---|---|\n")
		for _, p := range r.Profiles {
			fmt.Fprintf(&b, "| %s | %d | %d | %.3g | %.3g | %.3g | %.3g | %d | %t |\n",
				cell(p.Column), p.Count, p.Missing, p.Mean, p.StdDev, p.Min, p.Max, p.Outliers, p.LooksNormal)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

// RenderHTML renders the markdown report as a standalone HTML page
func RenderHTML(r *quality.Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(RenderMarkdown(r)))

	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Data quality report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	columns := make([]string, 0, len(counts))
	for c, n := range counts {
		if n > 0 {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return
	}
	sort.Strings(columns)
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, c := range columns {
		fmt.Fprintf(b, "- %s: %d\n", c, counts[c])
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// cell escapes text for a markdown table cell
func cell(s string) string {
	return cellEscaper.Replace(s)
}
