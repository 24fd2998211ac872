package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatLanguages formats a list of languages as JSON
func (f *Formatter) FormatLanguages(languages []LanguageDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(languages)
}

// FormatLanguageTable writes aligned columns. User definitions are marked
// with "*".
func (f *Formatter) FormatLanguageTable(languages []LanguageDTO) error {
	ids := make([]string, len(languages))
	idWidth, nameWidth := len("ID"), len("NAME")
	for i, l := range languages {
		ids[i] = l.ID
		if l.User {
			ids[i] += "*"
		}
		idWidth = max(idWidth, runewidth.StringWidth(ids[i]))
		nameWidth = max(nameWidth, runewidth.StringWidth(l.Name))
	}

	row := func(id, name, exts string) error {
		_, err := fmt.Fprintf(f.writer, "%s  %s  %s\n",
			runewidth.FillRight(id, idWidth), runewidth.FillRight(name, nameWidth), exts)
		return err
	}
	if err := row("ID", "NAME", "EXTENSIONS"); err != nil {
		return err
	}
	for i, l := range languages {
		if err := row(ids[i], l.Name, strings.Join(l.Extensions, ", ")); err != nil {
			return err
		}
	}
	return nil
}
