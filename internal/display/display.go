// Package display renders extracted whiteboard content as an HTML fragment.
//
// Rendering is a pure function of the content and the loading flag. Diagram
// markup comes from the extraction service and is injected into the page as
// is; that service is the trust boundary. A Renderer built with sanitize set
// filters diagrams through an SVG allow-list instead.
package display

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/microcosm-cc/bluemonday"

	"whiteboard/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type State int

const (
	StateLoading State = iota
	StateEmpty
	StateContent
)

type SectionKind string

const (
	SectionText      SectionKind = "text"
	SectionEquations SectionKind = "equations"
	SectionDiagrams  SectionKind = "diagrams"
)

type DiagramView struct {
	Caption string
	Markup  template.HTML
}

type Section struct {
	Kind     SectionKind
	Title    string
	Entries  []string
	Diagrams []DiagramView
}

type View struct {
	State       State
	Placeholder template.HTML
	Sections    []Section
}

type Renderer struct {
	tmpl     *template.Template
	sanitize *bluemonday.Policy
}

func NewRenderer(sanitize bool) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/display.html")
	if err != nil {
		return nil, fmt.Errorf("parse display template: %w", err)
	}

	r := &Renderer{tmpl: tmpl}
	if sanitize {
		r.sanitize = svgPolicy()
	}
	return r, nil
}

// Build computes what Render draws. Sections appear in the fixed order text,
// equations, diagrams and only when their array is non-empty.
func (r *Renderer) Build(content *domain.ExtractedContent, isLoading bool) View {
	if isLoading {
		return View{State: StateLoading, Placeholder: placeholder}
	}
	if content == nil || content.Empty() {
		return View{State: StateEmpty}
	}

	view := View{State: StateContent}
	if len(content.Text) > 0 {
		view.Sections = append(view.Sections, Section{Kind: SectionText, Title: "Text Content", Entries: content.Text})
	}
	if len(content.Equations) > 0 {
		view.Sections = append(view.Sections, Section{Kind: SectionEquations, Title: "Equations", Entries: content.Equations})
	}
	if len(content.Diagrams) > 0 {
		diagrams := make([]DiagramView, 0, len(content.Diagrams))
		for _, d := range content.Diagrams {
			diagrams = append(diagrams, DiagramView{Caption: d.Caption(), Markup: r.markup(d.SVGContent)})
		}
		view.Sections = append(view.Sections, Section{Kind: SectionDiagrams, Title: "Diagrams", Diagrams: diagrams})
	}
	return view
}

func (r *Renderer) Render(w io.Writer, content *domain.ExtractedContent, isLoading bool) error {
	if err := r.tmpl.ExecuteTemplate(w, "display", r.Build(content, isLoading)); err != nil {
		return fmt.Errorf("render display: %w", err)
	}
	return nil
}

// HTML is Render into a value that can be embedded in a page template.
func (r *Renderer) HTML(content *domain.ExtractedContent, isLoading bool) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, content, isLoading); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) markup(raw string) template.HTML {
	if r.sanitize != nil {
		return template.HTML(r.sanitize.Sanitize(raw))
	}
	return template.HTML(raw)
}

var placeholder = drawPlaceholder()

// drawPlaceholder draws the loading skeleton: a heading bar, one large block
// and two medium blocks.
func drawPlaceholder() template.HTML {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(600, 420, `class="skeleton"`, `role="presentation"`)
	style := "fill:#e5e7eb"
	canvas.Roundrect(0, 0, 200, 32, 6, 6, style)
	canvas.Roundrect(0, 64, 600, 120, 12, 12, style)
	canvas.Roundrect(0, 208, 600, 100, 12, 12, style)
	canvas.Roundrect(0, 320, 600, 100, 12, 12, style)
	canvas.End()

	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return template.HTML(out)
}

func svgPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("svg", "g", "defs", "marker", "path", "rect", "circle", "ellipse",
		"line", "polyline", "polygon", "text", "tspan", "title", "desc")
	p.AllowAttrs("viewbox", "width", "height", "xmlns", "fill", "stroke", "stroke-width",
		"stroke-dasharray", "d", "x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry",
		"points", "transform", "font-size", "font-family", "text-anchor", "marker-end",
		"markerwidth", "markerheight", "refx", "refy", "orient", "id").Globally()
	return p
}
