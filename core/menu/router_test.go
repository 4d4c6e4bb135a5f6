package menu

import (
	"reflect"
	"sync"
	"testing"

	"github.com/m3rciful/menubot/core/catalog"
)

const (
	landingURL = "https://example.com/landing"
	storeURL   = "https://example.com/store"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	cat, err := catalog.New(catalog.Content{
		Root: catalog.RootContent{Title: "Главное меню"},
		Texts: catalog.TextsContent{
			Support:      "Напишите @support",
			Unknown:      "Неизвестная команда",
			BackLabel:    "Back",
			SupportLabel: "Support",
		},
		Categories: []catalog.CategoryContent{
			{
				ID:    "web_dev",
				Label: "1️⃣ Веб-разработка",
				Title: "Веб-разработка",
				Leaves: []catalog.LeafContent{
					{Label: "Landing", URL: landingURL},
					{Label: "Store", URL: storeURL},
				},
			},
			{ID: "apps", Label: "2️⃣ Приложения", Title: "Приложения"},
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	r, err := NewRouter(cat)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return r
}

func backButtons() [][]Button {
	return [][]Button{{{Label: "Back", Target: ActionTarget(catalog.BackID)}}}
}

func TestResolveStart(t *testing.T) {
	r := newTestRouter(t)
	state, out := r.ResolveState(Start())
	if state != StateRoot {
		t.Fatalf("state = %s", state)
	}
	want := ViewOutput{
		Text: "Главное меню",
		Buttons: [][]Button{
			{{Label: "1️⃣ Веб-разработка", Target: ActionTarget("web_dev")}},
			{{Label: "2️⃣ Приложения", Target: ActionTarget("apps")}},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("start output = %+v, want %+v", out, want)
	}
	for _, target := range out.Targets() {
		if target.Action == catalog.BackID {
			t.Fatal("root view must not contain a back row")
		}
	}
}

func TestResolveBackEqualsStart(t *testing.T) {
	r := newTestRouter(t)
	start := r.Resolve(Start())
	ref := MessageRef{ChatID: 1, MessageID: 10}
	for _, prior := range []Action{Back(), Back().WithMessage(ref)} {
		if got := r.Resolve(prior); !reflect.DeepEqual(got, start) {
			t.Fatalf("Resolve(%s) = %+v, want root %+v", prior, got, start)
		}
	}
}

func TestResolveCategory(t *testing.T) {
	r := newTestRouter(t)
	state, out := r.ResolveState(Navigate("web_dev"))
	if state != StateCategory {
		t.Fatalf("state = %s", state)
	}
	want := ViewOutput{
		Text: "Веб-разработка",
		Buttons: [][]Button{
			{{Label: "Landing", Target: LinkTarget(landingURL)}},
			{{Label: "Store", Target: LinkTarget(storeURL)}},
			{{Label: "Support", Target: ActionTarget("support_web_dev")}},
			{{Label: "Back", Target: ActionTarget(catalog.BackID)}},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("category output = %+v, want %+v", out, want)
	}
}

func TestResolveCategoryTargetsForEveryCategory(t *testing.T) {
	r := newTestRouter(t)
	cat := r.Catalog()
	for _, c := range cat.Categories() {
		var want []Target
		for _, ch := range c.Children {
			want = append(want, LinkTarget(ch.Leaf.URL))
		}
		want = append(want, ActionTarget(catalog.SupportID(c.ID)), ActionTarget(catalog.BackID))

		got := r.Resolve(Navigate(c.ID)).Targets()
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("targets for %s = %+v, want %+v", c.ID, got, want)
		}
		for _, target := range got {
			if target.Action != "" && target.URL != "" {
				t.Fatalf("target has both action and url: %+v", target)
			}
		}
	}
}

func TestResolveSupport(t *testing.T) {
	r := newTestRouter(t)
	state, out := r.ResolveState(Navigate("support_web_dev"))
	if state != StateSupport {
		t.Fatalf("state = %s", state)
	}
	want := ViewOutput{Text: "Напишите @support", Buttons: backButtons()}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("support output = %+v, want %+v", out, want)
	}
}

func TestResolveUnrecognized(t *testing.T) {
	r := newTestRouter(t)
	want := ViewOutput{Text: "Неизвестная команда", Buttons: backButtons()}
	actions := []Action{
		Navigate("does_not_exist"),
		Navigate("support_does_not_exist"),
		Navigate("support_"),
		Navigate(""),
		Navigate(catalog.BackID),
		Unrecognized("garbage"),
		{},
	}
	for _, a := range actions {
		state, out := r.ResolveState(a)
		if state != StateUnrecognized {
			t.Fatalf("Resolve(%s) state = %s", a, state)
		}
		if !reflect.DeepEqual(out, want) {
			t.Fatalf("Resolve(%s) = %+v, want %+v", a, out, want)
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	for _, a := range []Action{Start(), Back(), Navigate("web_dev"), Navigate("support_apps"), Navigate("nope")} {
		first := r.Resolve(a)
		second := r.Resolve(a)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("Resolve(%s) not idempotent: %+v vs %+v", a, first, second)
		}
	}
}

func TestResolveConcurrent(t *testing.T) {
	r := newTestRouter(t)
	want := r.Resolve(Navigate("web_dev"))
	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := r.Resolve(Navigate("web_dev")); !reflect.DeepEqual(got, want) {
				errs <- "mismatch"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

func TestSwapCatalog(t *testing.T) {
	r := newTestRouter(t)
	next, err := catalog.New(catalog.Content{
		Root:       catalog.RootContent{Title: "Новое меню"},
		Categories: []catalog.CategoryContent{{ID: "apps", Label: "Apps"}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	prev, err := r.Swap(next)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if prev == nil || prev == next {
		t.Fatal("swap must return the previous catalog")
	}
	if got := r.Resolve(Start()).Text; got != "Новое меню" {
		t.Fatalf("root text after swap = %q", got)
	}
	if state, _ := r.ResolveState(Navigate("web_dev")); state != StateUnrecognized {
		t.Fatalf("removed category resolved to %s", state)
	}
	if _, err := r.Swap(nil); err == nil {
		t.Fatal("expected error on nil catalog")
	}
}

func TestNewRouterNilCatalog(t *testing.T) {
	if _, err := NewRouter(nil); err == nil {
		t.Fatal("expected error")
	}
}
