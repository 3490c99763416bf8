package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
	"github.com/Iron-Ham/agent-chat/internal/util"
)

// Output formats accepted by --output.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormats = []string{formatText, formatJSON, formatYAML}

// addOutputFlag registers --output on cmd, storing the format in target.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", formatText, "output format: text, json or yaml")
}

func validateFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return errors.NewValidationError("output", format, "must be one of text, json, yaml")
	}
	return nil
}

// writeStructured encodes v to w as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported structured format %q", format)
	}
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// printer writes human-oriented command output, styled only when the
// destination is a terminal and NO_COLOR is unset.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

func (p *printer) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

// success prints "✓ label value".
func (p *printer) success(label, value string) {
	p.line(styles.Secondary, "✓", label, value)
}

// info prints "• label value".
func (p *printer) info(label, value string) {
	p.line(styles.Primary, "•", label, value)
}

// warn prints "! label value".
func (p *printer) warn(label, value string) {
	p.line(styles.Warning, "!", label, value)
}

func (p *printer) line(style lipgloss.Style, mark, label, value string) {
	out := p.paint(style, mark) + " " + p.paint(style.Bold(true), label)
	if value != "" {
		out += " " + value
	}
	p.println(out)
}

// table prints header and rows in left-aligned columns. widths holds the
// minimum width of every column but the last.
func (p *printer) table(widths []int, header []string, rows [][]string) {
	p.println(p.row(widths, header, func(s string) string { return p.paint(styles.TableHeader, s) }))
	for _, r := range rows {
		p.println(p.row(widths, r, nil))
	}
}

func (p *printer) row(widths []int, cells []string, style func(string) string) string {
	var b strings.Builder
	for i, cell := range cells {
		if style != nil {
			cell = style(cell)
		}
		if i < len(widths) && i < len(cells)-1 {
			cell = util.PadRight(cell, widths[i]) + " "
		}
		b.WriteString(cell)
	}
	return b.String()
}
