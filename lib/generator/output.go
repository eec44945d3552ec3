package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/pthm/hxform"
)

// emitter accumulates the statements of a constructor body.
type emitter struct {
	stmts    []string
	elements int
	rules    int
	// refs maps element names and ids to variable names.
	refs    map[string]string
	pending []pendingRules
}

type pendingRules struct {
	owner string
	defs  []hxform.RuleDefinition
}

const errCheck = "if err != nil {\nreturn nil, err\n}"

func (e *emitter) emit(format string, args ...any) {
	e.stmts = append(e.stmts, fmt.Sprintf(format, args...))
}

// renderForm renders and formats the constructor source.
func (g *Generator) renderForm(def *hxform.Definition, funcName string) ([]byte, error) {
	e := &emitter{refs: make(map[string]string)}
	if err := e.elementsOf("form", "", def.Elements); err != nil {
		return nil, err
	}
	e.pending = append([]pendingRules{{owner: "form", defs: def.Rules}}, e.pending...)
	for _, p := range e.pending {
		for _, rd := range p.defs {
			runAt, err := hxform.ParseRunAt(rd.RunAt)
			if err != nil {
				return nil, err
			}
			v, err := e.rule(rd, p.owner)
			if err != nil {
				return nil, err
			}
			e.emit("if err := %s.AddRule(%s, %s); err != nil {\nreturn nil, err\n}", p.owner, v, runAtName(runAt))
		}
	}
	if len(def.Defaults) > 0 {
		lit, err := e.literal(map[string]any(def.Defaults))
		if err != nil {
			return nil, err
		}
		e.emit("if err := form.AddDataSource(hxform.NewArrayDataSource(%s)); err != nil {\nreturn nil, err\n}", lit)
	}

	code, err := g.renderTemplate(def, funcName, e.stmts)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	formatted, err := format.Source(code)
	if err != nil {
		// Write unformatted for debugging
		name := OutputName(def) + ".unformatted"
		if writeErr := os.WriteFile(name, code, 0644); writeErr == nil {
			fmt.Fprintf(g.opts.Out, "  wrote unformatted code to %s for debugging\n", name)
		}
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

func (g *Generator) renderTemplate(def *hxform.Definition, funcName string, stmts []string) ([]byte, error) {
	tmpl, err := template.New("form").Funcs(template.FuncMap{
		"quote": strconv.Quote,
		"join":  strings.Join,
	}).Parse(formTemplate)
	if err != nil {
		return nil, err
	}

	var opts []string
	if def.Method != "" {
		opts = append(opts, "hxform.WithMethod("+strconv.Quote(def.Method)+")")
	}
	if def.Action != "" {
		opts = append(opts, "hxform.WithAction("+strconv.Quote(def.Action)+")")
	}
	if len(def.Attributes) > 0 {
		opts = append(opts, "hxform.WithFormAttributes("+attributesLiteral(def.Attributes)+")")
	}
	if def.Tracking != nil && !*def.Tracking {
		opts = append(opts, "hxform.WithoutTracking()")
	}

	data := struct {
		Header      string
		Package     string
		FuncName    string
		ID          string
		FormOptions []string
		Statements  []string
	}{
		Header:      generatedHeader,
		Package:     g.opts.Package,
		FuncName:    funcName,
		ID:          def.ID,
		FormOptions: opts,
		Statements:  stmts,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// elementsOf emits the elements of defs appended to the container held in
// parent. group is the qualified name of the enclosing group, if any.
func (e *emitter) elementsOf(parent, group string, defs []hxform.ElementDefinition) error {
	for _, ed := range defs {
		e.elements++
		v := "el" + strconv.Itoa(e.elements)
		data := ed.Data
		if ed.Label != "" {
			data = map[string]any{"label": ed.Label}
			for k, item := range ed.Data {
				data[k] = item
			}
		}
		dataLit := "nil"
		if len(data) > 0 {
			lit, err := e.literal(data)
			if err != nil {
				return fmt.Errorf("element %q: %w", ed.Name, err)
			}
			dataLit = lit
		}
		e.emit("%s, err := f.CreateElement(%q, %q, %s, %s)\n%s", v, ed.Type, ed.Name, attributesLiteral(ed.Attributes), dataLit, errCheck)
		e.emit("if err := %s.AppendChild(%s); err != nil {\nreturn nil, err\n}", parent, v)
		if ed.Value != nil {
			lit, err := e.literal(ed.Value)
			if err != nil {
				return fmt.Errorf("element %q: %w", ed.Name, err)
			}
			e.emit("%s.SetValue(%s)", v, lit)
		}
		if ed.Frozen {
			e.emit("%s.ToggleFrozen(true)", v)
		}

		name := qualify(group, ed.Name)
		if name != "" {
			if _, dup := e.refs[name]; !dup {
				e.refs[name] = v
			}
		}
		if id := ed.Attributes["id"]; id != "" {
			e.refs[id] = v
		}

		if len(ed.Elements) > 0 {
			c := v + "c"
			e.emit("%s := %s.(hxform.Container)", c, v)
			childGroup := group
			if strings.EqualFold(ed.Type, "group") && ed.Name != "" {
				childGroup = name
			}
			if err := e.elementsOf(c, childGroup, ed.Elements); err != nil {
				return err
			}
		}
		if len(ed.Rules) > 0 {
			e.pending = append(e.pending, pendingRules{owner: v, defs: ed.Rules})
		}
	}
	return nil
}

// qualify prefixes name with the enclosing group name.
func qualify(group, name string) string {
	if group == "" || name == "" {
		return name
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		return group + "[" + name[:i] + "]" + name[i:]
	}
	return group + "[" + name + "]"
}

// rule emits rd and its chains and returns the rule variable.
func (e *emitter) rule(rd hxform.RuleDefinition, owner string) (string, error) {
	config := "nil"
	if rd.Template != nil {
		t, err := e.rule(*rd.Template, "nil")
		if err != nil {
			return "", err
		}
		config = t
	} else if rd.Config != nil {
		lit, err := e.literal(rd.Config)
		if err != nil {
			return "", fmt.Errorf("rule %q: %w", rd.Type, err)
		}
		config = lit
	}
	e.rules++
	v := "r" + strconv.Itoa(e.rules)
	e.emit("%s, err := f.CreateRule(%q, %s, %q, %s)\n%s", v, rd.Type, owner, rd.Message, config, errCheck)
	for _, and := range rd.And {
		c, err := e.rule(and, owner)
		if err != nil {
			return "", err
		}
		e.emit("if err := %s.And(%s); err != nil {\nreturn nil, err\n}", v, c)
	}
	for _, or := range rd.Or {
		c, err := e.rule(or, owner)
		if err != nil {
			return "", err
		}
		e.emit("if err := %s.Or(%s); err != nil {\nreturn nil, err\n}", v, c)
	}
	return v, nil
}

// literal renders v as a Go expression. {element: name} maps become the
// variable of that element.
func (e *emitter) literal(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return strconv.Quote(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return "int64(" + strconv.FormatInt(t, 10) + ")", nil
	case uint64:
		return "uint64(" + strconv.FormatUint(t, 10) + ")", nil
	case float64:
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s, nil
	case []any:
		items := make([]string, len(t))
		for i, item := range t {
			lit, err := e.literal(item)
			if err != nil {
				return "", err
			}
			items[i] = lit
		}
		return "[]any{" + strings.Join(items, ", ") + "}", nil
	case map[string]any:
		if name, ok := t["element"].(string); ok && len(t) == 1 {
			ref, ok := e.refs[name]
			if !ok {
				return "", fmt.Errorf("%w: element %q referenced by a rule", hxform.ErrNotFound, name)
			}
			return ref, nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			lit, err := e.literal(t[k])
			if err != nil {
				return "", err
			}
			items[i] = strconv.Quote(k) + ": " + lit
		}
		return "map[string]any{" + strings.Join(items, ", ") + "}", nil
	}
	return "", fmt.Errorf("%w: cannot generate a literal for %T", hxform.ErrUnsupported, v)
}

func attributesLiteral(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "nil"
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = strconv.Quote(k) + ": " + strconv.Quote(attrs[k])
	}
	return "hxform.Attributes{" + strings.Join(items, ", ") + "}"
}

func runAtName(r hxform.RunAt) string {
	switch r {
	case hxform.RunAtServer:
		return "hxform.RunAtServer"
	case hxform.RunAtClient:
		return "hxform.RunAtClient"
	case hxform.RunAtClientServer:
		return "hxform.RunAtClientServer"
	case hxform.RunAtOnBlurClient:
		return "hxform.RunAtOnBlurClient"
	case hxform.RunAtOnBlurClientServer:
		return "hxform.RunAtOnBlurClientServer"
	}
	return "hxform.RunAt(" + strconv.Itoa(int(r)) + ")"
}

const formTemplate = `{{.Header}}

package {{.Package}}

import "github.com/pthm/hxform"

// {{.FuncName}} builds the {{quote .ID}} form. A nil factory uses
// hxform.DefaultFactory.
func {{.FuncName}}(f *hxform.Factory, opts ...hxform.FormOption) (*hxform.Form, error) {
	if f == nil {
		f = hxform.DefaultFactory()
	}
	form := hxform.NewForm({{quote .ID}}, append([]hxform.FormOption{ {{- join .FormOptions ", " -}} }, opts...)...)
{{- range .Statements}}
	{{.}}
{{- end}}
	return form, nil
}
`
