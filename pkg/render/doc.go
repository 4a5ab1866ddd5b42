// Package render draws conversation graphs.
//
// # Overview
//
// Graphs are written as Graphviz DOT with the visual encoding already on the
// nodes (see package customize): node size becomes the circle diameter, node
// color the fill, and highlighted nodes get a thick outline. Nodes that carry
// coordinates are pinned, so a community-isolation layout renders as laid
// out.
//
//	dot := render.ToDOT(g, render.OptionsFrom(settings, directed))
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Format Conversion
//
// SVG comes from go-graphviz. [ToPDF] and [ToPNG] convert SVG with the
// external rsvg-convert tool (from librsvg). [Render] dispatches on a
// format name.
package render
