// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/content-engine/pkg/types"
)

// PromptContext is everything the generator is told about one request.
type PromptContext struct {
	Query types.Query

	// Context is the merged, numbered source passages.
	Context string

	// Degraded is set when no source succeeded and Context is empty.
	Degraded bool
}

var formatInstructions = map[types.ResponseFormat]string{
	types.FormatStepByStep:      "Answer as numbered steps, one action per step.",
	types.FormatComparisonTable: "Include a markdown comparison table and a short verdict.",
	types.FormatStructured:      "Use markdown sections with clear headings.",
	types.FormatComprehensive:   "Write a complete article with an introduction, markdown sections, and a conclusion.",
}

var expertiseInstructions = map[types.Expertise]string{
	types.ExpertiseNovice:       "The reader is new to the topic. Define every term and avoid jargon.",
	types.ExpertiseBeginner:     "The reader knows the basics. Explain terms briefly.",
	types.ExpertiseIntermediate: "The reader is comfortable with the topic.",
	types.ExpertiseAdvanced:     "The reader is experienced. Skip introductory material.",
	types.ExpertiseExpert:       "The reader is an expert. Be precise and technical.",
}

var generatePromptTmpl = template.Must(template.New("generate").Parse(`You are a content writer for a regulated gambling information site.

Write a {{.Type}} answer to the request below.
{{.Format}}
{{.Expertise}}
Only state facts supported by the sources. Cite sources by their [number].
Include an 18+ notice, a responsible gambling message, and an affiliate disclosure.
{{if .Locale}}Write for the {{.Locale}} market.
{{end}}
Request: {{.Query}}
{{if .Degraded}}
No sources are available. Say so and keep to general, verifiable statements.
{{else}}
Sources:
{{.Context}}
{{end}}`))

var extractPromptTmpl = template.Must(template.New("extract").Parse(`Extract the following fields from the document.

Fields:
{{range .Fields}}- {{.Name}} ({{.Type}})
{{end}}
Respond with a single JSON object whose keys are exactly the field names above. Use null for a field the document does not state. Do not include any text outside the JSON object.

Document:
{{.Content}}
`))

var claimsPromptTmpl = template.Must(template.New("claims").Parse(`Check each claim against the reference sentences.

For every claim decide one verdict:
- "verified": a reference states the same fact
- "contradicted": a reference states a different value for the same fact
- "unverified": no reference covers the claim

Respond with a JSON object {"verdicts": [{"claim": "...", "verdict": "...", "evidence": "..."}]} holding one entry per claim in the given order. Do not include any text outside the JSON object.

Claims:
{{range $i, $c := .Claims}}{{$i}}. {{$c}}
{{end}}
References:
{{range .References}}- {{.}}
{{end}}`))

// RenderPrompt renders the generation prompt for pc.
func RenderPrompt(pc PromptContext) (string, error) {
	format, ok := formatInstructions[pc.Query.Format]
	if !ok {
		format = formatInstructions[types.FormatComprehensive]
	}
	data := struct {
		Type, Format, Expertise, Locale, Query, Context string
		Degraded                                        bool
	}{
		Type:      string(pc.Query.Type),
		Format:    format,
		Expertise: expertiseInstructions[pc.Query.Expertise],
		Locale:    pc.Query.Locale,
		Query:     pc.Query.Raw,
		Context:   pc.Context,
		Degraded:  pc.Degraded || strings.TrimSpace(pc.Context) == "",
	}
	if data.Query == "" {
		data.Query = pc.Query.Text
	}
	return render(generatePromptTmpl, data)
}

type schemaField struct {
	Name, Type string
}

func renderExtractPrompt(content string, schema map[string]string) (string, error) {
	fields := make([]schemaField, 0, len(schema))
	for name, typ := range schema {
		fields = append(fields, schemaField{Name: name, Type: typ})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return render(extractPromptTmpl, struct {
		Fields  []schemaField
		Content string
	}{fields, content})
}

func renderClaimsPrompt(claims, references []string) (string, error) {
	return render(claimsPromptTmpl, struct {
		Claims, References []string
	}{claims, references})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
