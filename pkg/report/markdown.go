package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/isolinks/pkg/resolve"
)

const markdownTemplate = `# Distribution resolution report

Generated {{generated}}{{#if catalog}} from ` + "`{{{catalog}}}`" + `{{/if}}.

{{processed}} processed, {{resolved}} resolved, {{unresolved}} unresolved.

| Distribution | Mode | Status | Version | Hash | Size |
|---|---|---|---|---|---|
{{#each rows}}
| {{{name}}} | {{mode}} | {{status}} | {{{version}}} | {{{hash}}} | {{size bytes}} |
{{/each}}
{{#if (gt unresolved 0)}}

## Unresolved

{{#each failures}}
- **{{{name}}}**: {{{reason}}}
{{/each}}
{{/if}}
{{#if links}}

## Links

{{#each links}}
- {{{name}}}: <{{{url}}}>
{{/each}}
{{/if}}
`

// Meta describes the run a report covers.
type Meta struct {
	Catalog   string
	Generated time.Time
}

// RenderMarkdown renders a Markdown report of results.
func RenderMarkdown(results *resolve.Results, meta Meta) (string, error) {
	tpl, err := raymond.Parse(markdownTemplate)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}
	tpl.RegisterHelper("gt", func(a, b interface{}) bool {
		aVal, _ := strconv.Atoi(fmt.Sprintf("%v", a))
		bVal, _ := strconv.Atoi(fmt.Sprintf("%v", b))
		return aVal > bVal
	})
	tpl.RegisterHelper("size", func(v interface{}) string {
		n, err := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
		if err != nil || n < 0 {
			return "-"
		}
		return HumanSize(n)
	})

	out, err := tpl.Exec(markdownData(results, meta))
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

func markdownData(results *resolve.Results, meta Meta) map[string]interface{} {
	summary := results.Summary()
	var rows, failures, links []map[string]interface{}

	for _, o := range results.Outcomes() {
		row := map[string]interface{}{
			"name":    cell(o.Name),
			"mode":    Title(o.Mode.String()),
			"status":  Title(statusUnresolved),
			"version": "-",
			"hash":    "-",
			"bytes":   -1,
		}
		if o.OK() {
			rec := o.Record
			row["status"] = Title(statusResolved)
			row["version"] = cell(rec.Version)
			if rec.HasHash() {
				row["hash"] = fmt.Sprintf("%s `%s`", rec.HashType, rec.HashValue)
			}
			if rec.HasSize {
				row["bytes"] = rec.Size
			}
			links = append(links, map[string]interface{}{"name": cell(o.Name), "url": rec.URL})
		} else {
			reason := "no record"
			if o.Err != nil {
				reason = cell(o.Err.Error())
			}
			failures = append(failures, map[string]interface{}{"name": cell(o.Name), "reason": reason})
		}
		rows = append(rows, row)
	}

	generated := meta.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	return map[string]interface{}{
		"generated":  generated.UTC().Format(time.RFC3339),
		"catalog":    meta.Catalog,
		"processed":  summary.Processed,
		"resolved":   summary.Resolved,
		"unresolved": summary.Unresolved,
		"rows":       rows,
		"failures":   failures,
		"links":      links,
	}
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}
