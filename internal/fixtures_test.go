package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/apigate/internal"
)

type testUser struct {
	ID   string
	role string
}

func (u testUser) IdentityID() string { return u.ID }
func (u testUser) Role() string       { return u.role }

// fakeHasher derives "alg$salt$secret" and counts derivations.
type fakeHasher struct {
	calls atomic.Int64
}

func (h *fakeHasher) Hash(secret, salt, algorithm string) (string, error) {
	h.calls.Add(1)
	if algorithm == "" {
		algorithm = "fake"
	}
	return algorithm + "$" + salt + "$" + secret, nil
}

type fakeCredentialStore struct {
	creds map[string]internal.Credential
	err   error
}

func (s *fakeCredentialStore) CredentialByID(_ context.Context, id string) (internal.Credential, error) {
	if s.err != nil {
		return internal.Credential{}, s.err
	}
	c, ok := s.creds[id]
	if !ok {
		return internal.Credential{}, internal.ErrCredentialNotFound
	}
	return c, nil
}

// newCredentials stores user with the token secret "s3cret".
func newCredentials(users ...testUser) *fakeCredentialStore {
	s := &fakeCredentialStore{creds: make(map[string]internal.Credential)}
	for _, u := range users {
		s.creds[u.ID] = internal.Credential{
			Identity:  u,
			Salt:      "salt-" + u.ID,
			Algorithm: "fake",
			Hash:      "fake$salt-" + u.ID + "$s3cret",
		}
	}
	return s
}

type page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owner string `json:"-"`
}

func (p *page) EntityID() string { return p.ID }

type attachment struct {
	ID string
}

func (a *attachment) EntityID() string { return a.ID }

type pageStore struct {
	pages map[string]*page
	mu    sync.Mutex
}

func newPageStore() *pageStore {
	return &pageStore{pages: map[string]*page{
		"1": {ID: "1", Title: "Home"},
		"2": {ID: "2", Title: "Draft", Owner: "2"},
	}}
}

func (s *pageStore) resolver() internal.EntityResolver {
	return internal.EntityFunc(
		func(_ context.Context, id string) (internal.Entity, error) {
			if id == "broken" {
				return nil, errors.New("db down")
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			p, ok := s.pages[id]
			if !ok {
				return nil, internal.ErrEntityNotFound
			}
			return p, nil
		},
		func(_ context.Context, identity internal.Identity, e internal.Entity) bool {
			p := e.(*page)
			return p.Owner == "" || (identity != nil && identity.IdentityID() == p.Owner)
		},
	)
}

// pageService is the service object exposed in tests.
type pageService struct {
	store *pageStore
}

func (pageService) Echo(msg string) string { return msg }

func (pageService) Sum(a, b int) int { return a + b }

func (pageService) Greet(name, greeting string) string { return greeting + ", " + name }

func (pageService) Tags(tags []string) int { return len(tags) }

func (pageService) Title(_ context.Context, p *page) (string, error) {
	if p == nil {
		return "<none>", nil
	}
	return p.Title, nil
}

func (pageService) Whoami(ctx context.Context) string {
	if id := internal.CurrentIdentity(ctx); id != nil {
		return id.IdentityID()
	}
	return "anonymous"
}

func (pageService) Upload(file []byte) int { return len(file) }

func (pageService) Read(file io.Reader) (string, error) {
	data, err := io.ReadAll(file)
	return string(data), err
}

func (pageService) Export() string { return `{"raw":true}` }

func (pageService) Find(id string) *page { return &page{ID: id, Title: "found"} }

func (pageService) Fail() error { return errors.New("boom") }

func (pageService) Deny() error { return internal.ErrPermissionDenied }

func (pageService) Guarded() error {
	return internal.ErrInternal("lookup failed", internal.WithCause(internal.ErrPermissionDenied))
}

func (pageService) Missing() error { return internal.ErrNotFound("No such page") }

func (pageService) Explode() { panic("kaboom") }

func (s pageService) Rename(p *page, title string) (*page, error) {
	if p == nil {
		return nil, internal.ErrNotFound("Page not found")
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	p.Title = title
	return p, nil
}

func (pageService) Helper(a, b, c int) int { return a + b + c }

func pageServiceDescriptor(store *pageStore) internal.Service {
	return internal.Service{
		Name:    "pages",
		Handler: pageService{store: store},
		Rules: map[string]internal.MethodAccessRule{
			"echo":    {Public: true},
			"sum":     {Public: true},
			"add":     {Verb: http.MethodPost, Public: true, Call: "sum"},
			"greet":   {Public: true},
			"tags":    {Public: true},
			"title":   {Public: true},
			"whoami":  {Public: true},
			"upload":  {Verb: http.MethodPost, Public: true},
			"read":    {Verb: http.MethodPost, Public: true},
			"export":  {Public: true, Raw: true},
			"find":    {Public: true, Match: `(?P<id>[0-9]+)`},
			"fail":    {Public: true},
			"deny":    {Public: true},
			"guarded": {Public: true},
			"missing": {Public: true},
			"explode": {Public: true},
			"rename":  {Verb: http.MethodPost, Permission: "pages.write"},
			"private": {Call: "whoami"},
		},
		Params: map[string][]internal.Param{
			"echo":   {internal.Required("msg")},
			"sum":    {internal.Required("a"), internal.Optional("b", 10)},
			"greet":  {internal.Required("name"), internal.Optional("greeting", "Hello")},
			"tags":   {internal.Required("tags")},
			"title":  {internal.Required("page")},
			"upload": {internal.Required("file")},
			"read":   {internal.Required("file")},
			"find":   {internal.Required("id")},
			"rename": {internal.Required("page"), internal.Required("title")},
			"helper": {internal.Required("a"), internal.Required("b"), internal.Required("c")},
		},
	}
}

var (
	alice = testUser{ID: "1", role: "editor"}
	bob   = testUser{ID: "2", role: "viewer"}
)

// newGateway builds an App exposing pageService with token auth for alice and bob.
func newGateway(t *testing.T, opts ...internal.Option) *internal.App {
	t.Helper()

	store := newPageStore()
	base := []internal.Option{
		internal.WithServices(pageServiceDescriptor(store)),
		internal.WithEntity("Page", store.resolver()),
		internal.WithEntity("File", internal.EntityFunc(
			func(_ context.Context, id string) (internal.Entity, error) {
				return &attachment{ID: id}, nil
			}, nil)),
		internal.WithCredentialStore(newCredentials(alice, bob)),
		internal.WithHasher(&fakeHasher{}),
		internal.WithPermissions(internal.RolePermissions{
			"editor": {"pages.write"},
		}, nil),
		internal.WithPublicAccess(),
	}
	app, err := internal.New(append(base, opts...)...)
	require.NoError(t, err)
	return app
}

type envelope struct {
	Payload json.RawMessage `json:"payload"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func tokenRequest(method, target, token string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set(internal.DefaultTokenHeader, token)
	}
	return req
}

func payloadString(t *testing.T, env envelope) string {
	t.Helper()

	var s string
	require.NoError(t, json.Unmarshal(env.Payload, &s))
	return s
}
