package sequence_test

import (
	"testing"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/sequence"
)

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	h := newHarness(t, hostMarkup, routes(nil))
	ctrl, _ := h.mount("#signup-flow")

	h.registry.Register(ctrl)
	h.registry.Register(ctrl)
	if got := len(h.registry.Controllers(ctrl.Group())); got != 1 {
		t.Fatalf("expected one registration, got %d", got)
	}
	if found, ok := h.registry.Lookup(ctrl.ID()); !ok || found != ctrl {
		t.Fatalf("expected lookup to find controller")
	}

	h.registry.Unregister(ctrl)
	if got := h.registry.Controllers(ctrl.Group()); len(got) != 0 {
		t.Fatalf("expected empty group, got %d", len(got))
	}
}

func TestControllersShareThePageRegistryByDefault(t *testing.T) {
	markup := `<html><body>
<form-sequence id="a"><a href="/wizard/step1">A</a></form-sequence>
<form-sequence id="b"><a href="/wizard/step1">B</a></form-sequence>
</body></html>`
	h := newHarness(t, markup, routes(wizardRoutes()))

	var ctrls []*sequence.Controller
	for _, css := range []string{"#a", "#b"} {
		ctrl, err := sequence.New(h.page, h.find(css), sequence.WithFetcher(h))
		if err != nil {
			t.Fatalf("new controller: %v", err)
		}
		ctrls = append(ctrls, ctrl)
	}
	var mountErr error
	if err := h.page.Loop().Do(func() {
		for _, ctrl := range ctrls {
			if err := ctrl.Mount(); err != nil {
				mountErr = err
			}
		}
	}); err != nil || mountErr != nil {
		t.Fatalf("mount: %v %v", err, mountErr)
	}
	a, b := ctrls[0], ctrls[1]

	reg := sequence.PageRegistry(h.page)
	if got := len(reg.Controllers("form-sequence")); got != 2 {
		t.Fatalf("expected both controllers in the page registry, got %d", got)
	}

	h.activate("#a a")
	if !a.Active() {
		t.Fatalf("expected first controller active")
	}
	h.activate("#b a")
	if a.Active() || a.Step() != 0 {
		t.Fatalf("expected first controller closed, active=%v step=%d", a.Active(), a.Step())
	}
	if !b.Active() || b.Step() != 1 {
		t.Fatalf("expected second controller active at step 1")
	}
}

func TestPageRegistryIsScopedToPage(t *testing.T) {
	first, err := dom.NewPage("https://example.com/home", hostMarkup)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(first.Close)
	second, err := dom.NewPage("https://example.com/home", hostMarkup)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(second.Close)

	if sequence.PageRegistry(first) != sequence.PageRegistry(first) {
		t.Fatalf("expected the same registry for one page")
	}
	if sequence.PageRegistry(first) == sequence.PageRegistry(second) {
		t.Fatalf("expected distinct registries per page")
	}
}

func TestRegistryGroupsByTag(t *testing.T) {
	markup := `<html><body>
<form-sequence id="a"><a href="/wizard/step1">A</a></form-sequence>
<signup-flow id="b"><a href="/wizard/step1">B</a></signup-flow>
</body></html>`
	h := newHarness(t, markup, routes(wizardRoutes()))
	a, _ := h.mount("#a", sequence.WithGroup("Checkout"))
	b, _ := h.mount("#b")

	if a.Group() != "checkout" || b.Group() != "signup-flow" {
		t.Fatalf("unexpected groups %q %q", a.Group(), b.Group())
	}
	if closed := h.registry.CloseOthers(a); closed != 0 {
		t.Fatalf("controllers in other groups must not be closed, got %d", closed)
	}
}

func TestCloseOthersAcrossPages(t *testing.T) {
	table := wizardRoutes()
	first := newHarness(t, hostMarkup, routes(table))
	a, _ := first.mount("#signup-flow")

	second, err := dom.NewPage("https://example.com/home", hostMarkup)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(second.Close)
	b, err := sequence.New(second, second.Document().Find("#signup-flow"),
		sequence.WithFetcher(first),
		sequence.WithRegistry(first.registry),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := second.Loop().Do(func() {
		if err := b.Mount(); err != nil {
			t.Errorf("mount: %v", err)
		}
	}); err != nil {
		t.Fatalf("loop: %v", err)
	}

	if err := second.Activate(second.Document().Find("#start")); err != nil {
		t.Fatalf("activate: %v", err)
	}
	second.Settle()
	if !b.Active() {
		t.Fatalf("expected b active")
	}

	first.activate("#start")
	second.Settle()

	if !a.Active() {
		t.Fatalf("expected a active")
	}
	if b.Active() || b.Step() != 0 {
		t.Fatalf("expected b closed through its own loop")
	}
	if got := first.Requests(); len(got) != 2 {
		t.Fatalf("expected two requests, got %d", len(got))
	}
}
