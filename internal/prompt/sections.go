package prompt

import (
	"fmt"
	"strings"

	"nexus/internal/util/jsonutil"
)

// Payload is an instruction for the generation service.
type Payload struct {
	System string
	Task   string
}

// doc accumulates markdown sections, skipping empty bodies and numbering the
// ones it keeps.
type doc struct {
	buf strings.Builder
	n   int
}

func (d *doc) line(format string, args ...any) {
	fmt.Fprintf(&d.buf, format, args...)
	d.buf.WriteString("\n")
}

func (d *doc) blank() { d.buf.WriteString("\n") }

// field writes "- **Label:** value" when value is non-blank.
func (d *doc) field(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	d.line("- **%s:** %s", label, strings.TrimSpace(value))
}

// section writes a bold heading followed by body; blank bodies are dropped.
func (d *doc) section(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	d.line("**%s:**", title)
	d.buf.WriteString(strings.TrimRight(body, "\n"))
	d.buf.WriteString("\n\n")
}

// numbered is section with an automatically assigned ordinal.
func (d *doc) numbered(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	d.n++
	d.section(fmt.Sprintf("%d. %s", d.n, title), body)
}

func (d *doc) String() string { return strings.TrimSpace(d.buf.String()) + "\n" }

func formatList(items []string) string {
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func nonBlank(items ...string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func join(items []string) string { return strings.Join(nonBlank(items...), ", ") }

// fencedJSON renders v as an indented json block. Encoding failures fall back
// to an empty object so assembly never fails.
func fencedJSON(v any) string {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	return "```json\n" + string(b) + "\n```"
}

func quoted(s string) string { return "\"" + strings.TrimSpace(s) + "\"" }
