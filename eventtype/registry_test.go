package eventtype_test

import (
	"testing"

	"github.com/hooklinehq/hookline/eventtype"
)

func TestRegistryKnown(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(
		eventtype.Definition{Name: "order.created", Group: "order"},
		eventtype.Definition{Name: "order.shipped", Group: "order"},
	)

	if !r.Known("order.created") {
		t.Error("order.created should be known")
	}
	if r.Known("order.cancelled") {
		t.Error("order.cancelled should not be known")
	}
	if r.Known("") {
		t.Error("empty name should not be known")
	}
}

func TestRegistryGet(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(eventtype.Definition{Name: "user.deleted", Description: "account removed"})

	def, ok := r.Get("user.deleted")
	if !ok {
		t.Fatal("Get should find a registered type")
	}
	if def.Description != "account removed" {
		t.Errorf("Description = %q, want %q", def.Description, "account removed")
	}

	if _, ok := r.Get("user.created"); ok {
		t.Error("Get should miss an unregistered type")
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(eventtype.Definition{Name: "order.created", Description: "v1"})
	r.Register(eventtype.Definition{Name: "order.created", Description: "v2"})

	def, _ := r.Get("order.created")
	if def.Description != "v2" {
		t.Errorf("re-registering should replace, got %q", def.Description)
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("expected 1 definition, got %d", got)
	}
}

func TestRegistryIgnoresEmptyName(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(eventtype.Definition{Name: ""})

	if got := len(r.List()); got != 0 {
		t.Errorf("empty names should be ignored, got %d definitions", got)
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(
		eventtype.Definition{Name: "b.two"},
		eventtype.Definition{Name: "a.one"},
		eventtype.Definition{Name: "c.three"},
	)

	defs := r.List()
	want := []string{"a.one", "b.two", "c.three"}
	if len(defs) != len(want) {
		t.Fatalf("expected %d definitions, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := eventtype.NewRegistry()
	r.Register(eventtype.Definition{Name: "order.created"})

	missing := r.Unknown([]string{"order.created", "order.refunded", "user.banned"})
	if len(missing) != 2 {
		t.Fatalf("expected 2 unknown names, got %v", missing)
	}
	if missing[0] != "order.refunded" || missing[1] != "user.banned" {
		t.Errorf("Unknown() = %v", missing)
	}

	if missing := r.Unknown([]string{"order.created"}); missing != nil {
		t.Errorf("all-known input should return nil, got %v", missing)
	}
}
