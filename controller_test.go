package hxform

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// newSignupController builds a two page wizard: account asks for a user
// name, profile for a numeric age.
func newSignupController(t *testing.T, id string, opts ...ControllerOption) *Controller {
	t.Helper()
	ctrl := NewController(id, opts...)

	account := NewPage("account", func(f *Flow, form *Form) error {
		user := NewText("user", nil)
		if err := form.AppendChild(user); err != nil {
			return err
		}
		required, err := NewRequired(user, "User is required", nil)
		if err != nil {
			return err
		}
		if err := user.AddRule(required, RunAtServer); err != nil {
			return err
		}
		return form.AppendChild(f.Controller().Pages()[0].Button("next", "Next"))
	})
	profile := NewPage("profile", func(f *Flow, form *Form) error {
		age := NewText("age", nil)
		if err := form.AppendChild(age); err != nil {
			return err
		}
		required, err := NewRequired(age, "Age is required", nil)
		if err != nil {
			return err
		}
		numeric, err := NewNumeric(age, "Age must be a number")
		if err != nil {
			return err
		}
		if err := required.And(numeric); err != nil {
			return err
		}
		if err := age.AddRule(required, RunAtServer); err != nil {
			return err
		}
		p := f.Controller().Pages()[1]
		for _, b := range []*Input{p.Button("back", "Back"), p.Button("next", "Finish")} {
			if err := form.AppendChild(b); err != nil {
				return err
			}
		}
		return nil
	})
	for _, p := range []*Page{account, profile} {
		if err := ctrl.AddPage(p); err != nil {
			t.Fatal(err)
		}
	}
	ctrl.AddHandler("process", ActionFunc(func(f *Flow, _ *Page, _ string) error {
		values := f.Values()
		if err := f.DestroySession(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(f.ResponseWriter(), "welcome %v, %v", values["user"], values["age"])
		return err
	}))
	return ctrl
}

func do(t *testing.T, c *TestClient, b *TestRequestBuilder) *TestResult {
	t.Helper()
	result, err := c.Do(b)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func submitPage(page, action string, values ...string) *TestRequestBuilder {
	b := NewTestRequest(http.MethodPost, "/signup").
		WithFormData("_qf__"+page, "").
		WithFormData("_qf_"+page+"_"+action, action)
	for i := 0; i+1 < len(values); i += 2 {
		b.WithFormData(values[i], values[i+1])
	}
	return b
}

func TestController_Wizard(t *testing.T) {
	c := NewTestClient(newSignupController(t, "signup"))

	result := do(t, c, NewTestRequest(http.MethodGet, "/signup"))
	if !result.IsOK() || !result.HTMLContains(`id="account"`) {
		t.Fatalf("first page not displayed: %d\n%s", result.StatusCode, result.HTML)
	}
	if result.Cookie(DefaultSessionCookie) == nil {
		t.Fatal("session cookie not set")
	}

	result = do(t, c, submitPage("account", "next", "user", ""))
	if !result.HTMLContains("User is required") {
		t.Fatalf("invalid page not redisplayed with errors:\n%s", result.HTML)
	}

	result = do(t, c, submitPage("account", "next", "user", "ada"))
	if !result.HasStatus(http.StatusSeeOther) || !result.RedirectedTo("/signup?_qf_profile_display=true") {
		t.Fatalf("next: status %d, redirect %q", result.StatusCode, result.RedirectURL)
	}

	result, err := c.Follow(result)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HTMLContainsAll(`id="profile"`, `name="_qf_profile_back"`) {
		t.Fatalf("second page not displayed:\n%s", result.HTML)
	}

	result = do(t, c, submitPage("profile", "next", "age", "old"))
	if !result.HTMLContains("Age must be a number") {
		t.Fatalf("chained rule error not shown:\n%s", result.HTML)
	}

	result = do(t, c, submitPage("profile", "next", "age", "36"))
	if !result.IsOK() || result.HTML != "welcome ada, 36" {
		t.Fatalf("process: status %d, body %q", result.StatusCode, result.HTML)
	}

	// The session was destroyed, so the wizard starts over.
	result = do(t, c, NewTestRequest(http.MethodGet, "/signup?_qf_profile_display=true"))
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Errorf("display after process redirected to %q", result.RedirectURL)
	}
}

func TestController_WizardOrder(t *testing.T) {
	c := NewTestClient(newSignupController(t, "signup"))

	result := do(t, c, NewTestRequest(http.MethodGet, "/signup?_qf_profile_display=true"))
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Fatalf("unreached page: redirect %q, want the first page", result.RedirectURL)
	}

	// Finishing from the last page with an earlier page invalid jumps back.
	result = do(t, c, submitPage("profile", "next", "age", "36"))
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Errorf("finish with invalid first page: redirect %q", result.RedirectURL)
	}
}

func TestController_BackKeepsValues(t *testing.T) {
	c := NewTestClient(newSignupController(t, "signup"))

	do(t, c, NewTestRequest(http.MethodGet, "/signup"))
	do(t, c, submitPage("account", "next", "user", "ada"))

	result := do(t, c, submitPage("profile", "back", "age", "not validated"))
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Fatalf("back: redirect %q", result.RedirectURL)
	}
	result, err := c.Follow(result)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HTMLContains(`value="ada"`) {
		t.Errorf("stored value not shown:\n%s", result.HTML)
	}

	result = do(t, c, NewTestRequest(http.MethodGet, "/signup?_qf_profile_display=true"))
	if !result.HTMLContains(`value="not validated"`) || result.HTMLContains("Age is required") {
		t.Errorf("values stored by back should be shown without errors:\n%s", result.HTML)
	}
}

func TestController_StoredValuesOverrideDefaults(t *testing.T) {
	ctrl := newSignupController(t, "signup")
	if err := ctrl.AddDataSource(NewArrayDataSource(map[string]any{"user": "guest"})); err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(ctrl)

	result := do(t, c, NewTestRequest(http.MethodGet, "/signup"))
	if !result.HTMLContains(`value="guest"`) {
		t.Fatalf("default not shown on first display:\n%s", result.HTML)
	}
	do(t, c, submitPage("account", "next", "user", "ada"))
	result = do(t, c, submitPage("profile", "back", "age", "36"))
	result, err := c.Follow(result)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HTMLContains(`value="ada"`) || result.HTMLContains(`value="guest"`) {
		t.Errorf("stored value should win over the default:\n%s", result.HTML)
	}
}

func TestController_UncheckedStaysUnchecked(t *testing.T) {
	ctrl := NewController("prefs", WithWizard(false))
	page := NewPage("prefs", func(f *Flow, form *Form) error {
		for _, n := range []Node{NewText("nick", nil), NewCheckbox("news", nil)} {
			if err := form.AppendChild(n); err != nil {
				return err
			}
		}
		return form.AppendChild(f.Controller().Pages()[0].Button("next", "Save"))
	})
	if err := ctrl.AddPage(page); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.AddDataSource(NewArrayDataSource(map[string]any{"news": "1"})); err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(ctrl)

	result := do(t, c, NewTestRequest(http.MethodGet, "/prefs"))
	if !result.HTMLContains(`checked="checked"`) {
		t.Fatalf("default should check the box:\n%s", result.HTML)
	}
	do(t, c, NewTestRequest(http.MethodPost, "/prefs").
		WithFormData("_qf__prefs", "").
		WithFormData("_qf_prefs_next", "Save").
		WithFormData("nick", "ada"))

	result = do(t, c, NewTestRequest(http.MethodGet, "/prefs"))
	if !result.HTMLContains(`value="ada"`) || result.HTMLContains(`checked="checked"`) {
		t.Errorf("unchecked box came back checked:\n%s", result.HTML)
	}
}

func TestController_RedisplayValidatesOnce(t *testing.T) {
	calls := 0
	ctrl := NewController("code")
	page := NewPage("code", func(f *Flow, form *Form) error {
		code := NewText("code", nil)
		if err := form.AppendChild(code); err != nil {
			return err
		}
		rule, err := NewCallback(code, "Wrong code", func(any) bool {
			calls++
			return false
		})
		if err != nil {
			return err
		}
		if err := code.AddRule(rule, RunAtServer); err != nil {
			return err
		}
		return form.AppendChild(f.Controller().Pages()[0].Button("next", "Check"))
	})
	if err := ctrl.AddPage(page); err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(ctrl)

	result := do(t, c, NewTestRequest(http.MethodPost, "/code").
		WithFormData("_qf__code", "").
		WithFormData("_qf_code_next", "Check").
		WithFormData("code", "1234"))
	if !result.HTMLContains("Wrong code") {
		t.Fatalf("invalid page not redisplayed:\n%s", result.HTML)
	}
	if calls != 1 {
		t.Errorf("rule ran %d times for one submit", calls)
	}

	calls = 0
	result = do(t, c, NewTestRequest(http.MethodGet, "/code"))
	if !result.HTMLContains("Wrong code") || calls != 1 {
		t.Errorf("display of a stored invalid page: %d rule calls\n%s", calls, result.HTML)
	}
}

func TestController_DefaultsValidateUnseenPages(t *testing.T) {
	ctrl := newSignupController(t, "signup", WithWizard(false))
	if err := ctrl.AddDataSource(NewArrayDataSource(map[string]any{"user": "guest"})); err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(ctrl)

	result := do(t, c, submitPage("profile", "submit", "age", "36"))
	if !result.IsOK() || result.HTML != "welcome guest, 36" {
		t.Errorf("unseen page should validate with defaults: status %d, body %q", result.StatusCode, result.HTML)
	}
}

func TestController_RequestOptions(t *testing.T) {
	ctrl := NewController("upload", WithRequestOptions(WithMaxUploadSize(3)))
	page := NewPage("upload", func(f *Flow, form *Form) error {
		if err := form.AppendChild(NewInputFile("doc", nil)); err != nil {
			return err
		}
		return form.AppendChild(f.Controller().Pages()[0].Button("next", "Send"))
	})
	if err := ctrl.AddPage(page); err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(ctrl)

	result := do(t, c, NewTestRequest(http.MethodPost, "/upload").
		WithFormData("_qf__upload", "").
		WithFormData("_qf_upload_next", "Send").
		WithFile("doc", "a.txt", "text/plain", []byte("hello")))
	if !result.HTMLContains("exceeds size limit of 3 bytes") {
		t.Errorf("controller upload limit not applied:\n%s", result.HTML)
	}
}

func TestController_DirectAction(t *testing.T) {
	c := NewTestClient(newSignupController(t, "signup", WithWizard(false)))

	result := do(t, c, submitPage("account", "profile", "user", ""))
	if !result.RedirectedTo("/signup?_qf_profile_display=true") {
		t.Fatalf("direct action: redirect %q", result.RedirectURL)
	}

	// Next on the last page of a non-wizard only stores and redisplays.
	result = do(t, c, submitPage("profile", "next", "age", "36"))
	if !result.IsOK() || !result.HTMLContains(`id="profile"`) {
		t.Errorf("last page of a non-wizard should redisplay: %d\n%s", result.StatusCode, result.HTML)
	}

	result = do(t, c, submitPage("profile", "submit", "age", "36"))
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Errorf("submit with invalid account: redirect %q", result.RedirectURL)
	}
}

func TestController_HTMXRedirect(t *testing.T) {
	c := NewTestClient(newSignupController(t, "signup"))

	result := do(t, c, submitPage("account", "next", "user", "ada").AsHTMX())
	if !result.IsOK() {
		t.Fatalf("status = %d, want 200", result.StatusCode)
	}
	if got := result.GetHeader("HX-Redirect"); got != "/signup?_qf_profile_display=true" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestController_Errors(t *testing.T) {
	tests := []struct {
		name string
		ctrl func(t *testing.T) *Controller
		req  *TestRequestBuilder
		code int
	}{
		{
			name: "unknown action",
			ctrl: func(t *testing.T) *Controller { return newSignupController(t, "signup") },
			req:  NewTestRequest(http.MethodPost, "/signup").WithFormData("_qf_account_bogus", "x"),
			code: http.StatusNotFound,
		},
		{
			name: "no pages",
			ctrl: func(*testing.T) *Controller { return NewController("empty") },
			req:  NewTestRequest(http.MethodGet, "/"),
			code: http.StatusNotFound,
		},
		{
			name: "missing id",
			ctrl: func(t *testing.T) *Controller { return newSignupController(t, "") },
			req:  NewTestRequest(http.MethodGet, "/"),
			code: http.StatusNotFound,
		},
		{
			name: "id without session",
			ctrl: func(t *testing.T) *Controller { return newSignupController(t, "") },
			req:  NewTestRequest(http.MethodGet, "/?"+KeyID+"=signup"),
			code: http.StatusNotFound,
		},
		{
			name: "process not registered",
			ctrl: func(t *testing.T) *Controller {
				ctrl := NewController("bare")
				if err := ctrl.AddPage(NewPage("only", nil)); err != nil {
					t.Fatal(err)
				}
				return ctrl
			},
			req:  NewTestRequest(http.MethodPost, "/").WithFormData("_qf__only", "").WithFormData("_qf_only_next", "x"),
			code: http.StatusNotFound,
		},
		{
			name: "failing handler",
			ctrl: func(t *testing.T) *Controller {
				ctrl := newSignupController(t, "signup")
				ctrl.AddHandler("display", ActionFunc(func(*Flow, *Page, string) error {
					return fmt.Errorf("template broke")
				}))
				return ctrl
			},
			req:  NewTestRequest(http.MethodGet, "/signup"),
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.req.Execute(tt.ctrl(t))
			if err != nil {
				t.Fatal(err)
			}
			if !result.HasStatus(tt.code) {
				t.Errorf("status = %d, want %d\n%s", result.StatusCode, tt.code, result.HTML)
			}
		})
	}
}

func TestController_CustomOnError(t *testing.T) {
	ctrl := newSignupController(t, "signup")
	var got error
	ctrl.OnError = func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}
	result, err := NewTestRequest(http.MethodPost, "/signup").WithFormData("_qf_account_bogus", "x").Execute(ctrl)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasStatus(http.StatusTeapot) || !IsNotFound(got) {
		t.Errorf("status %d, error %v", result.StatusCode, got)
	}
}

func TestController_PropagateID(t *testing.T) {
	store := NewMemoryStore(0)
	mux := http.NewServeMux()
	mux.Handle("/signup", newSignupController(t, "signup", WithStore(store), WithPropagateID(true)))
	mux.Handle("/resume", newSignupController(t, "", WithStore(store)))
	c := NewTestClient(mux)

	result := do(t, c, NewTestRequest(http.MethodGet, "/signup"))
	if !result.HTMLContainsAll(`name="`+KeyID+`"`, `value="signup"`) {
		t.Fatalf("controller id not in form:\n%s", result.HTML)
	}

	result = do(t, c, submitPage("account", "next", "user", "ada"))
	if want := "/signup?_qf_profile_display=true&" + KeyID + "=signup"; !result.RedirectedTo(want) {
		t.Errorf("redirect = %q, want %q", result.RedirectURL, want)
	}

	// A controller without an id finds the session by the propagated id.
	result = do(t, c, NewTestRequest(http.MethodGet, "/resume?"+KeyID+"=signup"))
	if !result.IsOK() || !result.HTMLContains(`value="ada"`) {
		t.Errorf("resume: status %d\n%s", result.StatusCode, result.HTML)
	}
}

func TestController_DefaultAction(t *testing.T) {
	ctrl := newSignupController(t, "signup")
	page, err := ctrl.Page("account")
	if err != nil {
		t.Fatal(err)
	}
	page.SetDefaultAction("next", "/blank.gif")

	c := NewTestClient(ctrl)
	result := do(t, c, NewTestRequest(http.MethodGet, "/signup"))
	first := strings.Index(result.HTML, `name="_qf_account_next"`)
	user := strings.Index(result.HTML, `name="user"`)
	if first < 0 || user < 0 || first > user {
		t.Fatalf("default button should come first:\n%s", result.HTML)
	}

	// Pressing Enter submits the image button coordinates.
	result = do(t, c, NewTestRequest(http.MethodPost, "/signup").
		WithFormData("_qf__account", "").
		WithFormData("_qf_account_next.x", "0").
		WithFormData("_qf_account_next.y", "0").
		WithFormData("user", "ada"))
	if !result.RedirectedTo("/signup?_qf_profile_display=true") {
		t.Errorf("default action: redirect %q", result.RedirectURL)
	}
}

func TestController_CookieStore(t *testing.T) {
	store, err := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), true)
	if err != nil {
		t.Fatal(err)
	}
	c := NewTestClient(newSignupController(t, "signup", WithStore(store)))

	result := do(t, c, submitPage("account", "next", "user", "ada"))
	if result.Cookie("_signup_container") == nil {
		t.Fatal("container cookie not set")
	}
	result, err = c.Follow(result)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HTMLContains(`id="profile"`) {
		t.Fatalf("profile not reachable with cookie session:\n%s", result.HTML)
	}

	// A cookie failing decryption restarts an explicit controller.
	result, err = NewTestRequest(http.MethodGet, "/signup?_qf_profile_display=true").
		WithCookies(&http.Cookie{Name: "_signup_container", Value: strings.Repeat("A", 64)}).
		Execute(c.Handler)
	if err != nil {
		t.Fatal(err)
	}
	if !result.RedirectedTo("/signup?_qf_account_display=true") {
		t.Errorf("tampered session: status %d, redirect %q", result.StatusCode, result.RedirectURL)
	}

	// A malformed cookie is a bad request.
	result, err = NewTestRequest(http.MethodGet, "/signup").
		WithCookies(&http.Cookie{Name: "_signup_container", Value: "tampered"}).
		Execute(c.Handler)
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasStatus(http.StatusBadRequest) {
		t.Errorf("malformed session: status %d", result.StatusCode)
	}
}

func TestController_AddPage(t *testing.T) {
	ctrl := NewController("c")
	if err := ctrl.AddPage(NewPage("a", nil)); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.AddPage(NewPage("a", nil)); !IsInvalidArgument(err) {
		t.Errorf("duplicate page = %v, want ErrInvalidArgument", err)
	}
	if err := ctrl.AddPage(nil); !IsInvalidArgument(err) {
		t.Errorf("nil page = %v, want ErrInvalidArgument", err)
	}
	owned, _ := ctrl.Page("a")
	if err := NewController("other").AddPage(owned); !IsInvalidArgument(err) {
		t.Errorf("page of another controller = %v, want ErrInvalidArgument", err)
	}
	if _, err := ctrl.Page("b"); !IsNotFound(err) {
		t.Errorf("Page(b) = %v, want ErrNotFound", err)
	}
	if !NewController("").PropagateID() {
		t.Error("controllers without id must propagate it")
	}
}

func TestWireAttrs(t *testing.T) {
	for method, key := range map[string]string{
		"":                "hx-get",
		http.MethodGet:    "hx-get",
		http.MethodPost:   "hx-post",
		http.MethodPut:    "hx-put",
		http.MethodPatch:  "hx-patch",
		http.MethodDelete: "hx-delete",
	} {
		if got := WireAttrs("/w", method); got[key] != "/w" || len(got) != 1 {
			t.Errorf("WireAttrs(%q) = %v", method, got)
		}
	}
}
