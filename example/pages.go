package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/pthm/hxform"
	"go.uber.org/zap"
)

var countries = []hxform.Option{
	{Value: "", Text: "Choose a country"},
	{Value: "de", Text: "Germany"},
	{Value: "fr", Text: "France"},
	{Value: "nl", Text: "Netherlands"},
	{Value: "uk", Text: "United Kingdom"},
}

var topics = []string{"go", "htmx", "security"}

// newSignupController builds the wizard: account, profile and topics
// pages; the last one finishes the signup.
func newSignupController(signups *Store, opts ...hxform.ControllerOption) (*hxform.Controller, error) {
	ctrl := hxform.NewController("signup", opts...)
	wire := hxform.WithFormAttributes(hxform.WireAttrs("/signup", http.MethodPost))
	pages := []*hxform.Page{
		hxform.NewPage("account", accountPage(signups), hxform.WithAction("/signup"), wire),
		hxform.NewPage("profile", profilePage, hxform.WithAction("/signup"), wire),
		hxform.NewPage("topics", topicsPage, hxform.WithAction("/signup"), wire),
	}
	for _, p := range pages {
		p.SetDefaultAction("next", blankPath)
		if err := ctrl.AddPage(p); err != nil {
			return nil, err
		}
	}
	if err := ctrl.AddDataSource(hxform.NewArrayDataSource(map[string]any{"country": "nl"})); err != nil {
		return nil, err
	}
	ctrl.AddHandler("process", hxform.ActionFunc(func(f *hxform.Flow, p *hxform.Page, _ string) error {
		return processSignup(signups, f)
	}))
	return ctrl, nil
}

func accountPage(signups *Store) hxform.BuildFunc {
	return func(f *hxform.Flow, form *hxform.Form) error {
		login := hxform.NewText("login", hxform.Attributes{"size": "20"})
		login.SetLabel("Login")
		password := hxform.NewPassword("password", nil)
		password.SetLabel("Password")
		confirm := hxform.NewPassword("confirm", nil)
		confirm.SetLabel("Repeat password")
		for _, el := range []hxform.Node{login, password, confirm} {
			if err := form.AppendChild(el); err != nil {
				return err
			}
		}

		required, err := hxform.NewRequired(login, "Choose a login", nil)
		if err != nil {
			return err
		}
		length, err := hxform.NewLength(login, "Logins have 3 to 20 characters", map[string]any{"min": 3, "max": 20})
		if err != nil {
			return err
		}
		if err := required.And(length); err != nil {
			return err
		}
		if err := login.AddRule(required, hxform.RunAtClientServer); err != nil {
			return err
		}
		free, err := hxform.NewNotCallback(login, "This login is taken", func(v any) bool {
			s, _ := v.(string)
			return signups.LoginTaken(s)
		})
		if err != nil {
			return err
		}
		if err := login.AddRule(free, hxform.RunAtServer); err != nil {
			return err
		}

		minPassword, err := hxform.NewRequired(password, "Passwords have at least 8 characters", nil)
		if err != nil {
			return err
		}
		minLength, err := hxform.NewLength(password, "Passwords have at least 8 characters", map[string]any{"min": 8})
		if err != nil {
			return err
		}
		if err := minPassword.And(minLength); err != nil {
			return err
		}
		if err := password.AddRule(minPassword, hxform.RunAtOnBlurClientServer); err != nil {
			return err
		}
		same, err := hxform.NewCompare(confirm, "Passwords do not match", password)
		if err != nil {
			return err
		}
		if err := confirm.AddRule(same, hxform.RunAtClientServer); err != nil {
			return err
		}
		return appendButtons(f, form, "next")
	}
}

func profilePage(f *hxform.Flow, form *hxform.Form) error {
	name := hxform.NewText("name", nil)
	name.SetLabel("Full name")
	email := hxform.NewEmail("email", nil)
	email.SetLabel("Email")
	country := hxform.NewSelect("country", nil)
	country.SetLabel("Country")
	country.LoadOptions(countries)
	for _, el := range []hxform.Node{name, email, country} {
		if err := form.AppendChild(el); err != nil {
			return err
		}
	}

	required, err := hxform.NewRequired(email, "Email is required", nil)
	if err != nil {
		return err
	}
	valid, err := hxform.NewEmailRule(email, "Enter a valid email address")
	if err != nil {
		return err
	}
	if err := required.And(valid); err != nil {
		return err
	}
	if err := email.AddRule(required, hxform.RunAtClientServer); err != nil {
		return err
	}
	chosen, err := hxform.NewNonempty(country, "Choose a country", nil)
	if err != nil {
		return err
	}
	if err := country.AddRule(chosen, hxform.RunAtClientServer); err != nil {
		return err
	}
	return appendButtons(f, form, "back", "next")
}

func topicsPage(f *hxform.Flow, form *hxform.Form) error {
	group := hxform.NewGroup("topics", nil)
	group.SetLabel("Interested in")
	group.SetSeparator("<br />")
	if err := form.AppendChild(group); err != nil {
		return err
	}
	for _, topic := range topics {
		box := hxform.NewCheckbox(topic, nil)
		box.SetContent(topic)
		if err := group.AppendChild(box); err != nil {
			return err
		}
	}
	some, err := hxform.NewRequired(group, "Pick at least one topic", nil)
	if err != nil {
		return err
	}
	if err := group.AddRule(some, hxform.RunAtServer); err != nil {
		return err
	}
	return appendButtons(f, form, "back", "submit")
}

var buttonLabels = map[string]string{
	"back":   "< Back",
	"next":   "Next >",
	"submit": "Sign up",
}

func appendButtons(f *hxform.Flow, form *hxform.Form, actions ...string) error {
	p, err := f.Controller().Page(form.ID())
	if err != nil {
		return err
	}
	for _, action := range actions {
		if err := form.AppendChild(p.Button(action, buttonLabels[action])); err != nil {
			return err
		}
	}
	return nil
}

func processSignup(signups *Store, f *hxform.Flow) error {
	values := f.Values()
	signup := Signup{
		Login:   fmt.Sprint(values["login"]),
		Email:   fmt.Sprint(values["email"]),
		Name:    fmt.Sprint(values["name"]),
		Country: fmt.Sprint(values["country"]),
	}
	if picked, ok := values["topics"].(map[string]any); ok {
		for topic := range picked {
			signup.Topics = append(signup.Topics, topic)
		}
		sort.Strings(signup.Topics)
	}
	id, err := signups.Add(signup)
	if err != nil {
		// Someone took the login since the account page was validated.
		f.Container().StoreValidationStatus("account", false)
		f.MarkDirty()
		p, perr := f.Controller().Page("account")
		if perr != nil {
			return perr
		}
		return f.Handle(p, "jump")
	}
	f.Logger().Info("signup completed", zap.String("id", id), zap.String("login", signup.Login))
	if err := f.DestroySession(); err != nil {
		return err
	}
	return f.Redirect("/welcome?" + url.Values{"id": {id}}.Encode())
}
