package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TextStyles styles a display tree for terminal output.
type TextStyles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Suffix  lipgloss.Style
	Index   lipgloss.Style
}

// NewTextStyles binds the default palette to w's colour profile. A writer
// that is not a terminal gets plain text.
func NewTextStyles(w io.Writer) TextStyles {
	r := lipgloss.NewRenderer(w)
	return TextStyles{
		Title: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#5A3E1B", Dark: "#E8C170"}).
			Bold(true),
		Section: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#3B3B3B", Dark: "#D0D0D0"}).
			Underline(true),
		Label: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#A0A0A0"}),
		Value: r.NewStyle().Bold(true),
		Suffix: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#8B4513", Dark: "#CD853F"}),
		Index: r.NewStyle().Faint(true),
	}
}

// WriteText writes n as an indented outline.
func WriteText(w io.Writer, n *Node) error {
	var b strings.Builder
	writeNode(&b, NewTextStyles(w), n, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, st TextStyles, n *Node, depth int) {
	if n == nil {
		return
	}
	pad := strings.Repeat("  ", depth)
	child := depth + 1
	switch n.Kind {
	case KindRoot:
		if n.Label != "" {
			b.WriteString(st.Title.Render(n.Label) + "\n")
		} else {
			child = depth
		}
	case KindSection:
		b.WriteString(pad + st.Section.Render(n.Label) + "\n")
	case KindArray:
		child = depth
	case KindElement:
		b.WriteString(pad + st.Index.Render("#"+FormatNumber(float64(n.Index+1))) + "\n")
	case KindImage:
		b.WriteString(pad + st.Label.Render(n.Label+":") + " " + n.Src + "\n")
	case KindText:
		b.WriteString(pad + st.Value.Render(n.Text) + "\n")
	default:
		line := pad
		if n.Icon != "" {
			line += n.Icon + " "
		}
		if n.Label != "" {
			line += st.Label.Render(n.Label+":") + " "
		}
		line += st.Value.Render(n.Text)
		switch {
		case n.Suffix == "":
		case n.Kind == KindModifier:
			line += " " + st.Suffix.Render("("+n.Suffix+")")
		default:
			line += st.Suffix.Render(n.Suffix)
		}
		b.WriteString(line + "\n")
	}
	for _, c := range n.Children {
		writeNode(b, st, c, child)
	}
}
