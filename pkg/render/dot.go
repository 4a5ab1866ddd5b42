package render

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// Formats lists the accepted format names.
var Formats = []string{FormatDOT, FormatSVG, FormatPDF, FormatPNG}

// Options configures DOT output.
type Options struct {
	// Directed draws arrows from source to target.
	Directed bool
	// Labels prints node ids inside the nodes.
	Labels bool
	// Engine is the Graphviz layout engine, "neato" when empty.
	Engine string

	NodeColor      string
	HighlightColor string
	EdgeColor      string
	// MinSize is used for nodes without a size.
	MinSize float64
}

// OptionsFrom derives render options from visualization settings.
func OptionsFrom(s customize.Settings, directed bool) Options {
	return Options{
		Directed:       directed,
		Labels:         true,
		NodeColor:      s.CustomColors.DefaultNodeColor,
		HighlightColor: s.CustomColors.HighlightNodeColor,
		EdgeColor:      s.CustomColors.EdgeColor,
		MinSize:        s.NodeSizes.Min,
	}
}

// ToDOT converts g to Graphviz DOT. Node sizes are radii in points.
func ToDOT(g *network.Graph, opts Options) string {
	engine := opts.Engine
	if engine == "" {
		engine = "neato"
	}
	kind, arrow := "graph", "--"
	if opts.Directed {
		kind, arrow = "digraph", "->"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s G {\n", kind)
	fmt.Fprintf(&buf, "  layout=%q;\n", engine)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontsize=10, fontcolor=white];\n")
	if c := Color(opts.EdgeColor); c != "" {
		fmt.Fprintf(&buf, "  edge [color=%q];\n", c)
	}
	buf.WriteString("\n")

	if g != nil {
		for _, n := range g.Nodes {
			fmt.Fprintf(&buf, "  %q [%s];\n", n.ID.String(), strings.Join(nodeAttrs(n, opts), ", "))
		}
		buf.WriteString("\n")
		for _, l := range g.Links {
			fmt.Fprintf(&buf, "  %q %s %q;\n", l.Source.ID.String(), arrow, l.Target.ID.String())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n network.Node, opts Options) []string {
	label := ""
	if opts.Labels {
		label = n.ID.String()
	}
	size := opts.MinSize
	if n.Size != nil {
		size = *n.Size
	}
	if size <= 0 {
		size = 15
	}
	fill := n.Color
	if fill == "" {
		fill = opts.NodeColor
	}

	attrs := []string{
		fmt.Sprintf("label=%q", label),
		// diameter in inches
		"width=" + strconv.FormatFloat(2*size/72, 'f', 3, 64),
	}
	if c := Color(fill); c != "" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
	}
	if n.Highlighted {
		attrs = append(attrs, "penwidth=3")
		if c := Color(opts.HighlightColor); c != "" {
			attrs = append(attrs, fmt.Sprintf("color=%q", c))
		}
	}
	if n.X != nil && n.Y != nil {
		attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(*n.X), fmtCoord(-*n.Y)))
	}
	return attrs
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var rgbaRe = regexp.MustCompile(`^rgba?\(\s*([0-9.]+)\s*,\s*([0-9.]+)\s*,\s*([0-9.]+)\s*(?:,\s*([0-9.]+)\s*)?\)$`)

// Color converts a CSS color to a Graphviz one. Hex colors and names pass
// through; rgb() and rgba() become #RRGGBB or #RRGGBBAA. Unparseable input
// yields "".
func Color(css string) string {
	css = strings.TrimSpace(css)
	if css == "" {
		return ""
	}
	m := rgbaRe.FindStringSubmatch(css)
	if m == nil {
		if strings.HasPrefix(css, "rgb") {
			return ""
		}
		return css
	}
	var out strings.Builder
	out.WriteByte('#')
	for _, c := range m[1:4] {
		v, _ := strconv.ParseFloat(c, 64)
		fmt.Fprintf(&out, "%02x", clampByte(v))
	}
	if m[4] != "" {
		a, _ := strconv.ParseFloat(m[4], 64)
		fmt.Fprintf(&out, "%02x", clampByte(math.Round(a*255)))
	}
	return out.String()
}

func clampByte(v float64) int {
	return int(math.Max(0, math.Min(255, v)))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render produces g in the named format.
func Render(ctx context.Context, g *network.Graph, opts Options, format string) ([]byte, error) {
	dot := ToDOT(g, opts)
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG, FormatPDF, FormatPNG:
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want %s)", format, strings.Join(Formats, ", "))
	}

	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return ToPDF(ctx, svg)
	case FormatPNG:
		return ToPNG(ctx, svg, 2.0)
	}
	return svg, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.-]+)\s+([0-9.-]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
