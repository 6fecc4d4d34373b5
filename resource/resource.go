// Package resource holds the static catalog of materialized resources and
// the trigger rules mapping database notifications onto them.
//
// A Resource is immutable. The catalog is built once by Catalog and handed
// to NewRegistry; nothing is registered at runtime.
package resource

import (
	"fmt"
	"path"
)

// Kind is the materialization strategy of a resource
type Kind uint8

const (
	// KindSimple writes query rows as a JSON array file
	KindSimple Kind = iota
	// KindFont writes one ifnt file per font row
	KindFont
	// KindGraphic writes one GIF file per graphic row
	KindGraphic
	// KindSignMsg writes a JSON array file, then triggers preview rendering
	KindSignMsg
	// KindGraphNode sends road node messages to the graph sink
	KindGraphNode
	// KindGraphEdge sends road messages to the graph sink
	KindGraphEdge
)

var kindNames = map[Kind]string{
	KindSimple:    "simple",
	KindFont:      "font",
	KindGraphic:   "graphic",
	KindSignMsg:   "sign_msg",
	KindGraphNode: "graph_node",
	KindGraphEdge: "graph_edge",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// WritesFiles reports whether resources of this kind publish files
func (k Kind) WritesFiles() bool {
	return k != KindGraphNode && k != KindGraphEdge
}

const (
	// FontDir is the directory (relative to the publish root) for fonts
	FontDir = "api/font"
	// GraphicDir is the directory (relative to the publish root) for graphics
	GraphicDir = "api/img"
)

// Resource describes one materialized artifact
type Resource struct {
	name string
	kind Kind
	rule TriggerRule
	sql  string
}

// Simple creates a JSON array file resource
func Simple(name string, rule TriggerRule, sql string) *Resource {
	return &Resource{name: name, kind: KindSimple, rule: rule, sql: sql}
}

// Font creates a font resource
func Font(rule TriggerRule, sql string) *Resource {
	return &Resource{name: "font", kind: KindFont, rule: rule, sql: sql}
}

// Graphic creates a graphic resource
func Graphic(rule TriggerRule, sql string) *Resource {
	return &Resource{name: "graphic", kind: KindGraphic, rule: rule, sql: sql}
}

// SignMsg creates a sign message resource
func SignMsg(name string, rule TriggerRule, sql string) *Resource {
	return &Resource{name: name, kind: KindSignMsg, rule: rule, sql: sql}
}

// GraphNode creates the road node resource
func GraphNode(rule TriggerRule) *Resource {
	return &Resource{name: "r_node", kind: KindGraphNode, rule: rule}
}

// GraphEdge creates the road resource
func GraphEdge(rule TriggerRule) *Resource {
	return &Resource{name: "road", kind: KindGraphEdge, rule: rule}
}

// Name returns the resource name; for file resources it is also the
// output path relative to the publish root
func (r *Resource) Name() string { return r.name }

// Kind returns the resource kind
func (r *Resource) Kind() Kind { return r.kind }

// Rule returns the trigger rule
func (r *Resource) Rule() TriggerRule { return r.rule }

// SQL returns the fetch query. Graph kinds have none.
func (r *Resource) SQL() string { return r.sql }

// FontPath returns the relative output path of a named font
func FontPath(name string) string {
	return path.Join(FontDir, name+".ifnt")
}

// GraphicPath returns the relative output path of a numbered graphic
func GraphicPath(number int) string {
	return path.Join(GraphicDir, fmt.Sprintf("g%d.gif", number))
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s(%s)", r.kind, r.name)
}
