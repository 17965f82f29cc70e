package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/theme"
	"golang.org/x/term"
)

const defaultWidth = 80

// Color palette
var (
	Accent    = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	Green     = lipgloss.Color("#10B981")
)

// renderer styles output for one writer. Colors are dropped automatically
// when the writer is not a terminal.
type renderer struct {
	w     io.Writer
	width int

	title  lipgloss.Style
	dim    lipgloss.Style
	accent lipgloss.Style
	ok     lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	r := lipgloss.NewRenderer(w)
	return &renderer{
		w:      w,
		width:  terminalWidth(w),
		title:  r.NewStyle().Bold(true),
		dim:    r.NewStyle().Foreground(DimGray),
		accent: r.NewStyle().Foreground(Accent),
		ok:     r.NewStyle().Foreground(Green),
	}
}

// terminalWidth returns the column count of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// themes prints one line per theme: id, name, author and a premium marker.
func (r *renderer) themes(themes []domain.Item) {
	idWidth := 2
	for _, t := range themes {
		idWidth = max(idWidth, lipgloss.Width(t.String(theme.ItemKey)))
	}

	nameWidth := max(r.width-idWidth-2, 10)
	for _, t := range themes {
		id := r.dim.Width(idWidth).Render(t.String(theme.ItemKey))
		line := truncate(t.String("name"), nameWidth)
		if author := t.String("author"); author != "" {
			line += r.dim.Render(" by " + author)
		}
		if theme.IsPremium(t) {
			line += " " + r.accent.Render("premium")
		}
		fmt.Fprintln(r.w, id+"  "+line)
	}
}

func (r *renderer) summary(format string, args ...any) {
	fmt.Fprintln(r.w, r.title.Render(fmt.Sprintf(format, args...)))
}

func (r *renderer) note(format string, args ...any) {
	fmt.Fprintln(r.w, r.dim.Render(fmt.Sprintf(format, args...)))
}

func (r *renderer) success(format string, args ...any) {
	fmt.Fprintln(r.w, r.ok.Render(fmt.Sprintf(format, args...)))
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + "…"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// suggestion prints a suggested name with its matched characters highlighted.
func (r *renderer) suggestion(s theme.Suggestion) {
	if s.Distance > 0 {
		fmt.Fprintln(r.w, s.Name+r.dim.Render(fmt.Sprintf("  (%d typo)", s.Distance)))
		return
	}
	// Indexes refer to the lowercased name; only highlight when offsets agree.
	if len(s.Name) != len(strings.ToLower(s.Name)) {
		fmt.Fprintln(r.w, s.Name)
		return
	}

	matched := make(map[int]bool, len(s.MatchedIndexes))
	for _, i := range s.MatchedIndexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, c := range s.Name {
		if matched[i] {
			b.WriteString(r.accent.Render(string(c)))
		} else {
			b.WriteRune(c)
		}
	}
	fmt.Fprintln(r.w, b.String())
}
