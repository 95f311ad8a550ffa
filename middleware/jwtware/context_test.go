package jwtware_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
)

// fakeContext is a minimal in-memory router.Context. The jwt middleware
// only touches headers, query, params, cookies, locals, and the std
// context; everything else is a stub.
type fakeContext struct {
	headers    map[string]string
	query      map[string]string
	params     map[string]string
	cookieVals map[string]string
	locals     map[any]any
	ctx        context.Context
	statusCode int
	sentBody   string
	nextCalled bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		headers:    map[string]string{},
		query:      map[string]string{},
		params:     map[string]string{},
		cookieVals: map[string]string{},
		locals:     map[any]any{},
		ctx:        context.Background(),
	}
}

func (f *fakeContext) Next() error {
	f.nextCalled = true
	return nil
}

func (f *fakeContext) Context() context.Context { return f.ctx }

func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }

func (f *fakeContext) Path() string { return "/" }

func (f *fakeContext) Method() string { return "GET" }

func (f *fakeContext) Body() []byte { return nil }

func (f *fakeContext) Status(code int) router.Context {
	f.statusCode = code
	return f
}

func (f *fakeContext) SendString(s string) error {
	f.sentBody = s
	return nil
}

func (f *fakeContext) Send(b []byte) error {
	f.sentBody = string(b)
	return nil
}

func (f *fakeContext) JSON(code int, val any) error {
	f.statusCode = code
	return nil
}

func (f *fakeContext) NoContent(code int) error {
	f.statusCode = code
	return nil
}

func (f *fakeContext) Render(name string, bind any, layout ...string) error { return nil }

func (f *fakeContext) Redirect(path string, status ...int) error { return nil }

func (f *fakeContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	return nil
}

func (f *fakeContext) RedirectBack(fallback string, status ...int) error { return nil }

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.headers[key] = val
	return f
}

func (f *fakeContext) Header(key string) string { return f.headers[key] }

func (f *fakeContext) Get(key string, defaultValue any) any { return defaultValue }

func (f *fakeContext) GetBool(key string, defaultValue bool) bool { return defaultValue }

func (f *fakeContext) GetInt(key string, def int) int { return def }

func (f *fakeContext) Set(key string, val any) {}

func (f *fakeContext) Bind(i any) error { return nil }

func (f *fakeContext) BindJSON(i any) error { return nil }

func (f *fakeContext) BindXML(i any) error { return nil }

func (f *fakeContext) BindQuery(i any) error { return nil }

func (f *fakeContext) CookieParser(i any) error { return nil }

func (f *fakeContext) Cookie(cookie *router.Cookie) {}

func (f *fakeContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := f.cookieVals[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) Param(key string, defaultValue ...string) string {
	if v, ok := f.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) ParamsInt(key string, defaultValue int) int { return defaultValue }

func (f *fakeContext) Query(key string, defaultValue ...string) string {
	if v, ok := f.query[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) QueryValues(key string) []string {
	if v, ok := f.query[key]; ok {
		return []string{v}
	}
	return nil
}

func (f *fakeContext) QueryInt(key string, defaultValue int) int { return defaultValue }

func (f *fakeContext) Queries() map[string]string { return f.query }

func (f *fakeContext) GetString(key string, defaultValue string) string {
	if v, ok := f.headers[key]; ok {
		return v
	}
	return defaultValue
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

func (f *fakeContext) OriginalURL() string { return "/" }

func (f *fakeContext) OnNext(cb func() error) {}

func (f *fakeContext) Referer() string { return "" }

func (f *fakeContext) LocalsMerge(key any, value map[string]any) map[string]any { return value }

func (f *fakeContext) FormFile(key string) (*multipart.FileHeader, error) { return nil, nil }

func (f *fakeContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) IP() string { return "" }

func (f *fakeContext) SendStatus(code int) error {
	f.statusCode = code
	return nil
}

func (f *fakeContext) SendStream(r io.Reader) error { return nil }

func (f *fakeContext) RouteName() string { return "" }

func (f *fakeContext) RouteParams() map[string]string { return f.params }

var _ router.Context = (*fakeContext)(nil)
