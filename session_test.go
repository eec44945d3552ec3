package hxform

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleContainer() *SessionContainer {
	c := newSessionContainer()
	c.StoreValues("account", map[string]any{"user": "ada", "tags": []any{"a", "b"}})
	c.StoreValidationStatus("account", true)
	c.StoreOpaque("plan", "pro")
	return c
}

func openSession(t *testing.T, store SessionStore, cookies ...*http.Cookie) (Session, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	sess, err := store.Open(rec, req)
	if err != nil {
		t.Fatal(err)
	}
	return sess, rec
}

func TestSessionContainer(t *testing.T) {
	c := sampleContainer()
	if valid, seen := c.ValidationStatus("account"); !valid || !seen {
		t.Errorf("account status = %v, %v", valid, seen)
	}
	if _, seen := c.ValidationStatus("profile"); seen {
		t.Error("profile should not be seen")
	}
	if c.OpaqueValue("plan") != "pro" || c.OpaqueValue("missing") != nil {
		t.Error("opaque values are wrong")
	}

	cp := c.clone()
	cp.PageValues("account")["user"] = "bob"
	cp.StoreValidationStatus("account", false)
	if c.PageValues("account")["user"] != "ada" {
		t.Error("clone shares page values")
	}
	if valid, _ := c.ValidationStatus("account"); !valid {
		t.Error("clone shares validation status")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(0)

	sess, rec := openSession(t, store)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultSessionCookie || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %v", cookies)
	}
	if err := sess.Put("_c_container", sampleContainer()); err != nil {
		t.Fatal(err)
	}

	sess, rec = openSession(t, store, cookies[0])
	if len(rec.Result().Cookies()) != 0 {
		t.Error("known session should not get a new cookie")
	}
	got, ok, err := sess.Get("_c_container")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(sampleContainer(), got); diff != "" {
		t.Errorf("container mismatch (-want +got):\n%s", diff)
	}

	got.StoreValues("account", nil)
	again, _, _ := sess.Get("_c_container")
	if again.PageValues("account") == nil {
		t.Error("Get should return a copy")
	}

	if _, ok, _ := sess.Get("_other_container"); ok {
		t.Error("unknown key found")
	}
	if err := sess.Delete("_c_container"); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after deleting the last container", store.Len())
	}
}

func TestMemoryStore_GroupedValuesAcrossPages(t *testing.T) {
	ctrl := NewController("c")
	for _, id := range []string{"where", "post"} {
		if err := ctrl.AddPage(NewPage(id, nil)); err != nil {
			t.Fatal(err)
		}
	}
	store := NewMemoryStore(0)
	sess, rec := openSession(t, store)
	c := newSessionContainer()
	c.StoreValues("where", map[string]any{"addr": map[string]any{"city": "Paris"}})
	c.StoreValues("post", map[string]any{"addr": map[string]any{"zip": "75001"}})
	if err := sess.Put("_c_container", c); err != nil {
		t.Fatal(err)
	}

	sess, _ = openSession(t, store, rec.Result().Cookies()...)
	got, _, err := sess.Get("_c_container")
	if err != nil {
		t.Fatal(err)
	}
	f := &Flow{ctrl: ctrl, container: got}
	want := map[string]any{"addr": map[string]any{"city": "Paris", "zip": "75001"}}
	if diff := cmp.Diff(want, f.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"city": "Paris"}, got.PageValues("where")["addr"]); diff != "" {
		t.Errorf("Values() changed the page values (-want +got):\n%s", diff)
	}

	stored, _, _ := sess.Get("_c_container")
	if diff := cmp.Diff(map[string]any{"city": "Paris"}, stored.PageValues("where")["addr"]); diff != "" {
		t.Errorf("stored page values changed (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	sess, rec := openSession(t, store)
	cookie := rec.Result().Cookies()[0]
	_ = sess.Put("_c_container", sampleContainer())

	clock = clock.Add(59 * time.Minute)
	sess, _ = openSession(t, store, cookie)
	if _, ok, _ := sess.Get("_c_container"); !ok {
		t.Fatal("session expired early")
	}

	// Opening the session touched it.
	clock = clock.Add(59 * time.Minute)
	if _, rec = openSession(t, store, cookie); len(rec.Result().Cookies()) != 0 {
		t.Fatal("touched session expired")
	}

	clock = clock.Add(2 * time.Hour)
	sess, rec = openSession(t, store, cookie)
	if len(rec.Result().Cookies()) != 1 {
		t.Error("expired session should be replaced")
	}
	if _, ok, _ := sess.Get("_c_container"); ok {
		t.Error("expired container still present")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestCookieStore(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	for _, encrypt := range []bool{false, true} {
		store, err := NewCookieStore(key, encrypt)
		if err != nil {
			t.Fatal(err)
		}
		store.Secure = true

		sess, rec := openSession(t, store)
		if err := sess.Put("_c_container", sampleContainer()); err != nil {
			t.Fatal(err)
		}
		// Reads within the same request see the written container.
		if _, ok, _ := sess.Get("_c_container"); !ok {
			t.Errorf("encrypt=%v: written container not visible", encrypt)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || !cookies[0].Secure || cookies[0].Path != "/" {
			t.Fatalf("encrypt=%v: cookies = %v", encrypt, cookies)
		}

		sess, _ = openSession(t, store, cookies[0])
		got, ok, err := sess.Get("_c_container")
		if err != nil || !ok {
			t.Fatalf("encrypt=%v: Get() = %v, %v", encrypt, ok, err)
		}
		if diff := cmp.Diff(sampleContainer().Values, got.Values); diff != "" {
			t.Errorf("encrypt=%v: values mismatch (-want +got):\n%s", encrypt, diff)
		}

		tampered := &http.Cookie{Name: "_c_container", Value: flipMiddle(cookies[0].Value)}
		sess, _ = openSession(t, store, tampered)
		if _, _, err := sess.Get("_c_container"); !IsDecryptionError(err) {
			t.Errorf("encrypt=%v: tampered cookie = %v, want a decryption error", encrypt, err)
		}

		other, _ := NewCookieStore([]byte("fedcba9876543210fedcba9876543210"), encrypt)
		sess, _ = openSession(t, other, cookies[0])
		if _, _, err := sess.Get("_c_container"); !IsDecryptionError(err) {
			t.Errorf("encrypt=%v: foreign key = %v, want a decryption error", encrypt, err)
		}
	}
}

func TestCookieStore_Delete(t *testing.T) {
	store, err := NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), false)
	if err != nil {
		t.Fatal(err)
	}
	sess, rec := openSession(t, store, &http.Cookie{Name: "_c_container", Value: "x"})
	if err := sess.Delete("_c_container"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := sess.Get("_c_container"); ok || err != nil {
		t.Errorf("deleted container: ok %v, err %v", ok, err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("delete should expire the cookie: %v", cookies)
	}
}

func TestNewCookieStore_Key(t *testing.T) {
	if _, err := NewCookieStore(nil, true); err == nil {
		t.Error("expected an error for an empty key")
	}
	if _, err := NewCookieStore([]byte("short"), true); err != nil {
		t.Errorf("short keys are stretched, got %v", err)
	}
}

// flipMiddle changes the character in the middle of s.
func flipMiddle(s string) string {
	b := []byte(s)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
