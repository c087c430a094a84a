// Package synth turns preprocessed page frames into React source: one page
// module per frame, an editable wrapper per component, and the generated
// component registry that maps node ids to render classes.
package synth

import (
	"fmt"
	"strings"

	"figmagen/internal/assets"
	"figmagen/internal/types"
)

// RegistryPath is where the component registry source is emitted.
const RegistryPath = "src/figmaComponents.js"

// File is one emitted source file. Preserve marks files meant to be edited by
// hand; emitters should not overwrite an existing copy.
type File struct {
	Path     string
	Content  []byte
	Preserve bool
}

// ComponentEntry is one generated component: Name is the wrapper class,
// Instance the generated render class for a node, Doc its source.
type ComponentEntry struct {
	NodeID   string
	Name     string
	Instance string
	Doc      string
}

// Page is the synthesized output for one top-level frame.
type Page struct {
	NodeID     string
	Name       string
	FileName   string
	Files      []File
	Components []ComponentEntry
}

// PagePath returns the page module path.
func (p *Page) PagePath() string {
	return "src/pages/" + p.FileName + ".js"
}

type Synthesizer struct{}

func New() *Synthesizer {
	return &Synthesizer{}
}

// Page synthesizes the page module and components for a preprocessed frame.
// The frame whose id equals startNodeID is emitted as the index page.
func (s *Synthesizer) Page(page *types.Node, imgs assets.Map, startNodeID string) (*Page, error) {
	if page == nil {
		return nil, fmt.Errorf("synth: page is nil")
	}
	if page.ID == "" {
		return nil, fmt.Errorf("synth: page %q has no id", page.Name)
	}
	name := strings.TrimPrefix(componentName(page), "C")
	out := &Page{
		NodeID:   page.ID,
		Name:     name,
		FileName: strings.ToLower(name),
	}
	if startNodeID != "" && page.ID == startNodeID {
		out.FileName = "index"
	}

	g := &generator{imgs: imgs, seen: map[string]bool{}}
	g.component(page)
	out.Components = g.entries

	out.Files = append(out.Files, File{Path: out.PagePath(), Content: []byte(pageSource(page))})
	for _, e := range g.entries {
		out.Files = append(out.Files, File{
			Path:     "src/components/" + e.Name + ".js",
			Content:  []byte(wrapperSource(e.Name)),
			Preserve: true,
		})
	}
	return out, nil
}

// Registry renders src/figmaComponents.js for the given pages: wrapper
// imports, getComponentFromId and every generated render class.
func (s *Synthesizer) Registry(pages []*Page) File {
	var b strings.Builder
	b.WriteString("import React, { PureComponent } from 'react';\n")

	imported := map[string]bool{}
	var entries []ComponentEntry
	for _, p := range pages {
		if p == nil {
			continue
		}
		for _, e := range p.Components {
			entries = append(entries, e)
			if imported[e.Name] {
				continue
			}
			imported[e.Name] = true
			fmt.Fprintf(&b, "import { %s } from './components/%s';\n", e.Name, e.Name)
		}
	}
	b.WriteString("\n")

	b.WriteString("export function getComponentFromId(id) {\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  if (id === %s) return %s;\n", jsString(e.NodeID), e.Instance)
	}
	b.WriteString("  return null;\n}\n\n")

	for _, e := range entries {
		b.WriteString(e.Doc)
		b.WriteString("\n")
	}
	return File{Path: RegistryPath, Content: []byte(b.String())}
}

func pageSource(page *types.Node) string {
	c := componentName(page)
	name := strings.TrimPrefix(c, "C")
	var b strings.Builder
	b.WriteString("import React, { PureComponent } from 'react';\n")
	fmt.Fprintf(&b, "import { %s } from '../components/%s';\n\n", c, c)
	fmt.Fprintf(&b, "export default class Master%s extends PureComponent {\n", name)
	b.WriteString("  render() {\n")
	fmt.Fprintf(&b, "    return <div className=\"master\" style={{backgroundColor: %s}}>\n", jsString(ColorString(page.BackgroundColor)))
	fmt.Fprintf(&b, "      <%s {...this.props} nodeId=%s />\n", c, jsString(page.ID))
	b.WriteString("    </div>\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

func wrapperSource(name string) string {
	var b strings.Builder
	b.WriteString("import React, { PureComponent } from 'react';\n")
	b.WriteString("import { getComponentFromId } from '../figmaComponents';\n\n")
	fmt.Fprintf(&b, "export class %s extends PureComponent {\n", name)
	b.WriteString("  state = {};\n\n")
	b.WriteString("  render() {\n")
	b.WriteString("    const Component = getComponentFromId(this.props.nodeId);\n")
	b.WriteString("    if (!Component) return null;\n")
	b.WriteString("    return <Component {...this.props} {...this.state} />;\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}
