package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pthm/hxform"
	"github.com/pthm/hxform/lib/generator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errFormInvalid is returned by validate when the submitted data fails
// the form rules. The errors are already printed.
var errFormInvalid = errors.New("form is not valid")

type app struct {
	verbose bool
	logger  *zap.Logger
	out     io.Writer
	errOut  io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "hxform",
		Short: "Render, validate and compile declarative HTML forms",
		Long: `hxform works with YAML form definitions: elements, their rules and
defaults. Definitions can be rendered to HTML, used to validate data, served
over HTTP, or compiled into Go constructors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.renderCmd(),
		a.validateCmd(),
		a.generateCmd(),
		a.cleanCmd(),
		a.serveCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "hxform version %s\n", version)
			},
		},
	)
	return root
}

func (a *app) renderCmd() *cobra.Command {
	var (
		data      []string
		renderer  string
		scriptURL string
	)
	cmd := &cobra.Command{
		Use:   "render [definition.yaml]",
		Short: "Render a form definition",
		Long: `Prints the form as HTML, or as JSON with --renderer array. Values given
with --data are submitted and validated first, so errors are rendered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := a.loadForm(args[0])
			if err != nil {
				return err
			}
			if len(data) > 0 {
				if err := submit(form, data); err != nil {
					return err
				}
				valid := form.Validate()
				a.logger.Debug("form validated", zap.String("form", form.ID()), zap.Bool("valid", valid))
			}
			return a.render(form, renderer, scriptURL)
		},
	}
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "Submitted value as key=value (repeatable)")
	cmd.Flags().StringVarP(&renderer, "renderer", "r", "default", "Renderer type: default or array")
	cmd.Flags().StringVar(&scriptURL, "script-url", "", "URL of the validation script to reference")
	return cmd
}

func (a *app) render(form *hxform.Form, typ, scriptURL string) error {
	switch strings.ToLower(typ) {
	case "default":
		r := hxform.NewDefaultRenderer(hxform.WithScriptURL(scriptURL))
		if err := form.Render(r); err != nil {
			return err
		}
		_, err := fmt.Fprintln(a.out, r.String())
		return err
	case "array":
		r := hxform.NewArrayRenderer()
		if err := form.Render(r); err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r.View())
	}
	return fmt.Errorf("%w: renderer %q", hxform.ErrNotFound, typ)
}

func (a *app) validateCmd() *cobra.Command {
	var data []string
	cmd := &cobra.Command{
		Use:   "validate [definition.yaml]",
		Short: "Validate data against a form definition",
		Long: `Submits the --data values to the form and prints its errors. Exits with
status 1 when the data is not valid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := a.loadForm(args[0])
			if err != nil {
				return err
			}
			if err := submit(form, data); err != nil {
				return err
			}
			if form.Validate() {
				fmt.Fprintln(a.out, "valid")
				return nil
			}
			errs := form.Errors()
			for _, id := range sortedIDs(errs) {
				fmt.Fprintf(a.out, "%s: %s\n", id, errs[id])
			}
			a.logger.Debug("form invalid", zap.String("form", form.ID()), zap.Int("errors", len(errs)))
			return errFormInvalid
		},
	}
	cmd.Flags().StringArrayVarP(&data, "data", "d", nil, "Submitted value as key=value (repeatable)")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	opts := generator.Options{}
	var output string
	cmd := &cobra.Command{
		Use:   "generate [definition.yaml...]",
		Short: "Generate Go constructors for form definitions",
		Long: `Writes <id>_form.go for every definition. The generated function builds
the form through an hxform.Factory, so no YAML is read at runtime.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = a.out
			g := generator.New(opts)
			for _, path := range args {
				def, err := hxform.LoadDefinitionFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				target := filepath.Join(output, generator.OutputName(def))
				if err := g.WriteFile(def, target); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				a.logger.Debug("generated form", zap.String("definition", path), zap.String("file", target))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "forms", "Package name of generated files")
	cmd.Flags().StringVar(&opts.FuncName, "func", "", "Constructor name (default New<ID>Form)")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be generated without writing files")
	return cmd
}

func (a *app) cleanCmd() *cobra.Command {
	opts := generator.Options{}
	cmd := &cobra.Command{
		Use:   "clean [dir...]",
		Short: "Remove generated form files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			opts.Out = a.out
			g := generator.New(opts)
			for _, dir := range args {
				if err := g.Clean(dir); err != nil {
					return fmt.Errorf("%s: %w", dir, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be removed without deleting")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [definition.yaml]",
		Short: "Serve a form definition over HTTP",
		Long: `Serves the form at / and the validation script at /qfvalidate.js. Valid
submissions are answered with the submitted values as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := hxform.LoadDefinitionFile(args[0])
			if err != nil {
				return err
			}
			// Fail on startup rather than on the first request.
			if _, err := def.Build(nil); err != nil {
				return err
			}
			a.logger.Info("serving form", zap.String("form", def.ID), zap.String("addr", addr))
			return http.ListenAndServe(addr, newFormServer(def, a.logger))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

const scriptPath = "/qfvalidate.js"

// newFormServer serves def: GET renders it, submissions are validated and
// either rendered again with errors or answered with the values.
func newFormServer(def *hxform.Definition, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(scriptPath, hxform.JavascriptHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		form, err := def.Build(nil)
		if err != nil {
			logger.Error("build form", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := form.BindRequest(r); err != nil {
			logger.Warn("bind request", zap.Error(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if form.IsSubmitted() && form.Validate() {
			logger.Debug("valid submission", zap.String("form", form.ID()))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(form.Values())
			return
		}
		if form.IsSubmitted() {
			logger.Debug("invalid submission", zap.String("form", form.ID()), zap.Int("errors", len(form.Errors())))
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		rd := hxform.NewDefaultRenderer(hxform.WithScriptURL(scriptPath))
		if err := form.Render(rd); err != nil {
			logger.Error("render form", zap.Error(err))
			return
		}
		if err := hxform.Render(w, r, rd.Component()); err != nil {
			logger.Warn("write response", zap.Error(err))
		}
	})
	return mux
}

func (a *app) loadForm(path string) (*hxform.Form, error) {
	def, err := hxform.LoadDefinitionFile(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded definition", zap.String("path", path), zap.String("form", def.ID))
	return def.Build(nil)
}

// submit binds key=value pairs to form as a submission.
func submit(form *hxform.Form, pairs []string) error {
	values := url.Values{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return fmt.Errorf("%w: --data %q is not key=value", hxform.ErrInvalidArgument, pair)
		}
		values.Add(k, v)
	}
	values.Set("_qf__"+form.ID(), "")

	var (
		req *http.Request
		err error
	)
	if strings.EqualFold(form.Method(), http.MethodGet) {
		req, err = http.NewRequest(http.MethodGet, "/?"+values.Encode(), nil)
	} else {
		req, err = http.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return err
	}
	return form.BindRequest(req)
}

func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
