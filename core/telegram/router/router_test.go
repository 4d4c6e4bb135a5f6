package router

import (
	"errors"
	"testing"

	tg "github.com/m3rciful/menubot/core/telegram"
	"github.com/m3rciful/menubot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	text   string
	store  map[string]interface{}
}

func newFakeContext(upd tele.Update, text string) *fakeContext {
	return &fakeContext{update: upd, text: text, store: map[string]interface{}{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 7} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 7} }
func (f *fakeContext) Text() string             { return f.text }

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }

func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

func TestCallbackRouteDelegates(t *testing.T) {
	var got string
	route := CallbackRoute(func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	})
	if route.Endpoint != tele.OnCallback {
		t.Fatalf("endpoint = %v", route.Endpoint)
	}
	c := newFakeContext(tele.Update{ID: 1, Callback: &tele.Callback{Data: "main_seo"}}, "")
	if err := route.Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got != "main_seo" {
		t.Fatalf("delegated data = %q", got)
	}
	if c.Get("rid") == nil {
		t.Fatal("logger middleware did not run")
	}
}

func TestCallbackRoutePropagatesError(t *testing.T) {
	want := errors.New("edit failed")
	route := CallbackRoute(func(tele.Context) error { return want })
	c := newFakeContext(tele.Update{ID: 2, Callback: &tele.Callback{Data: "x"}}, "")
	if err := route.Handler(c); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestTextRoutesCommandThenFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var hits []string
	reg.RegisterCommand("/help", commands.Command{
		Handler:     func(tele.Context) error { hits = append(hits, "help"); return nil },
		Description: "Help",
		Aliases:     []string{"info"},
	})
	reg.SetTextFallback(func(tele.Context) error { hits = append(hits, "fallback"); return nil })

	routes := TextRoutes(reg, TextOptions{})
	var text tele.HandlerFunc
	for _, r := range routes {
		if r.Endpoint == tele.OnText {
			text = r.Handler
		}
	}
	if text == nil {
		t.Fatal("no text route")
	}

	for i, msg := range []string{"/info", "hello"} {
		upd := tele.Update{ID: 10 + i, Message: &tele.Message{Text: msg}}
		if err := text(newFakeContext(upd, msg)); err != nil {
			t.Fatalf("text %q: %v", msg, err)
		}
	}
	if len(hits) != 2 || hits[0] != "help" || hits[1] != "fallback" {
		t.Fatalf("hits = %v", hits)
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Menu",
		Aliases:     []string{"menu"},
	})
	routes := CommandRoutes(reg, CommandRouteOptions{})
	endpoints := map[interface{}]bool{}
	for _, r := range routes {
		endpoints[r.Endpoint] = true
	}
	if !endpoints["/start"] || !endpoints["/menu"] || len(routes) != 2 {
		t.Fatalf("endpoints = %v", endpoints)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	tests := map[string]string{
		"/Start":   "start",
		"":         "unknown",
		" my key ": "my_key",
	}
	for in, want := range tests {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "delivery ack" }

func TestDeriveErrorCode(t *testing.T) {
	if got := deriveErrorCode(codedErr{}); got != "DELIVERY_ACK" {
		t.Fatalf("code = %q", got)
	}
	if got := deriveErrorCode(errors.New("x")); got != "ERRORSTRING" {
		t.Fatalf("code = %q", got)
	}
}

func TestTextRoutesWithoutHandlersSkip(t *testing.T) {
	for _, r := range TextRoutes(nil, TextOptions{}) {
		upd := tele.Update{ID: 30, Message: &tele.Message{Text: "hi"}}
		if err := r.Handler(newFakeContext(upd, "hi")); err != nil {
			t.Fatalf("%v: %v", r.Endpoint, err)
		}
	}
}

func TestTextRoutesGateAdminCommands(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/reload", commands.Command{
		Handler:     func(tele.Context) error { ran++; return nil },
		Description: "Reload",
		AdminOnly:   true,
	})
	textRoute := func(adminID int64) tele.HandlerFunc {
		for _, r := range TextRoutes(reg, TextOptions{Commands: CommandRouteOptions{AdminID: adminID}}) {
			if r.Endpoint == tele.OnText {
				return r.Handler
			}
		}
		t.Fatal("no text route")
		return nil
	}

	// The fake sender is user 7.
	for i, msg := range []string{"/RELOAD", "/Reload@bot", " /reload"} {
		upd := tele.Update{ID: 30 + i, Message: &tele.Message{Text: msg}}
		if err := textRoute(1)(newFakeContext(upd, msg)); err != nil {
			t.Fatalf("text %q: %v", msg, err)
		}
	}
	if ran != 0 {
		t.Fatalf("admin-only command ran %d times for a non-admin", ran)
	}

	upd := tele.Update{ID: 40, Message: &tele.Message{Text: "/RELOAD"}}
	if err := textRoute(7)(newFakeContext(upd, "/RELOAD")); err != nil || ran != 1 {
		t.Fatalf("admin run: err = %v, ran = %d", err, ran)
	}
}

func TestCommandRoutesGateAdminCommands(t *testing.T) {
	reg := tg.NewRegistry()
	ran := false
	reg.RegisterCommand("/version", commands.Command{
		Handler:     func(tele.Context) error { ran = true; return nil },
		Description: "Version",
		AdminOnly:   true,
	})
	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 1})
	upd := tele.Update{ID: 50, Message: &tele.Message{Text: "/version"}}
	if err := routes[0].Handler(newFakeContext(upd, "/version")); err != nil || ran {
		t.Fatalf("err = %v, ran = %v", err, ran)
	}
}
