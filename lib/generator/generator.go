// Package generator produces Go source building a form from a
// declarative hxform.Definition, so forms described in YAML can be
// compiled into the application instead of loaded at runtime.
package generator

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm/hxform"
)

// generatedHeader starts every generated file. Clean only removes files
// carrying it.
const generatedHeader = "// Code generated by hxform generate. DO NOT EDIT."

// Options configures the generator.
type Options struct {
	// Package is the package clause of generated files. Defaults to "forms".
	Package string
	// FuncName is the constructor name. Defaults to New<ID>Form.
	FuncName string
	// Factory validates the definition before generation. Definitions
	// using custom element or rule types need the factory registering them.
	Factory *hxform.Factory
	DryRun  bool
	// Out receives progress messages.
	Out io.Writer
}

// Generator generates form constructors.
type Generator struct {
	opts Options
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Package == "" {
		opts.Package = "forms"
	}
	if opts.Factory == nil {
		opts.Factory = hxform.DefaultFactory()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Generator{opts: opts}
}

// Generate returns the formatted source of the constructor for def. The
// definition is built once first so invalid definitions fail here rather
// than in the generated code.
func (g *Generator) Generate(def *hxform.Definition) ([]byte, error) {
	if _, err := def.Build(g.opts.Factory); err != nil {
		return nil, fmt.Errorf("definition %q: %w", def.ID, err)
	}
	funcName := g.opts.FuncName
	if funcName == "" {
		funcName = "New" + exportedName(def.ID) + "Form"
	}
	return g.renderForm(def, funcName)
}

// WriteFile generates the constructor for def into path.
func (g *Generator) WriteFile(def *hxform.Definition, path string) error {
	fmt.Fprintf(g.opts.Out, "generating %s\n", path)
	if g.opts.DryRun {
		return nil
	}
	code, err := g.Generate(def)
	if err != nil {
		return err
	}
	return os.WriteFile(path, code, 0644)
}

// OutputName returns the conventional file name for def: "<id>_form.go".
func OutputName(def *hxform.Definition) string {
	return strings.ToLower(identifierWords(def.ID, "_")) + "_form.go"
}

// Clean removes generated form files from dir.
func (g *Generator) Clean(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*_form.go"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		generated, err := isGenerated(path)
		if err != nil {
			return err
		}
		if !generated {
			continue
		}
		fmt.Fprintf(g.opts.Out, "removing %s\n", path)
		if g.opts.DryRun {
			continue
		}
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func isGenerated(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	line, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(line) == generatedHeader, nil
}

// exportedName turns "checkout-address" into "CheckoutAddress".
func exportedName(id string) string {
	return identifierWords(id, "")
}

// identifierWords splits id on non-alphanumeric runes and joins the words
// with sep, title-casing them when sep is empty.
func identifierWords(id, sep string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if sep != "" {
		return strings.Join(words, sep)
	}
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	if sb.Len() == 0 || sb.String()[0] >= '0' && sb.String()[0] <= '9' {
		return "Form" + sb.String()
	}
	return sb.String()
}
