package synth

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"figmagen/internal/types"
)

var nonWord = regexp.MustCompile(`\W+`)

// SanitizeName strips every non-word character from a layer name so it can
// be used as a JS identifier suffix and a file name.
func SanitizeName(name string) string {
	return nonWord.ReplaceAllString(name, "")
}

// componentName returns the C-prefixed class name for a node. Layers whose
// name has no word characters fall back to their id.
func componentName(n *types.Node) string {
	name := SanitizeName(n.Name)
	if name == "" {
		name = "Node" + idSuffix(n.ID)
	}
	return "C" + name
}

// instanceName is the generated class for one node: the component name
// followed by the node id with ';' and ':' spelled out.
func instanceName(n *types.Node) string {
	return componentName(n) + idSuffix(n.ID)
}

func idSuffix(id string) string {
	id = strings.ReplaceAll(id, ";", "S")
	id = strings.ReplaceAll(id, ":", "D")
	return SanitizeName(id)
}

// ColorString renders a color as a CSS rgba() value.
func ColorString(c *types.Color) string {
	if c == nil {
		return "transparent"
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)",
		channel(c.R), channel(c.G), channel(c.B), num(c.A))
}

func channel(v float64) int {
	return int(math.Round(v * 255))
}

// num formats a float with at most two decimals and no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// jsString quotes s as a JS string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
