package commands

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/ciaohost/concierge/pkg/catalog"
)

func TestAddProperty_VillaSole(t *testing.T) {
	it, cat, _ := newTestInterpreter(t)
	sess := activeSession(t, it)

	res := run(t, it, sess, `/add_property "Villa Sole" B&B 120 Roma +390123456 "WiFi,Piscina"`)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Reply != "✅ Proprietà 'Villa Sole' aggiunta con ID 1." {
		t.Fatalf("reply = %q", res.Reply)
	}

	p, ok := cat.Get("1")
	if !ok {
		t.Fatal("property 1 not stored")
	}
	if p.Price != 120.0 || p.Status != catalog.StatusAvailable || p.Type != "B&B" {
		t.Fatalf("stored %+v", p)
	}
	if len(p.Services) != 2 || p.Services[0] != "WiFi" || p.Services[1] != "Piscina" {
		t.Fatalf("services = %v", p.Services)
	}
}

func TestAddProperty_BadFormat(t *testing.T) {
	it, cat, store := newTestInterpreter(t)
	sess := activeSession(t, it)
	before, _ := os.ReadFile(store.Path())

	res := run(t, it, sess, "/add_property BadFormat")
	if res.Reply != msgAddFormat || !errors.Is(res.Err, ErrFormat) {
		t.Fatalf("reply=%q err=%v", res.Reply, res.Err)
	}
	if cat.Len() != 0 {
		t.Fatal("catalog must not change")
	}
	after, _ := os.ReadFile(store.Path())
	if !bytes.Equal(before, after) {
		t.Fatal("database file must not change")
	}
}

func TestAddProperty_InvalidPrice(t *testing.T) {
	it, cat, _ := newTestInterpreter(t)
	sess := activeSession(t, it)

	res := run(t, it, sess, `/add_property "Villa" B&B gratis Roma 0123 "WiFi"`)
	if res.Reply != msgInvalidPrice {
		t.Fatalf("reply = %q", res.Reply)
	}
	if cat.Len() != 0 {
		t.Fatal("catalog must not change")
	}
}

func TestAddThenList(t *testing.T) {
	it, _, _ := newTestInterpreter(t)
	sess := activeSession(t, it)

	if res := run(t, it, sess, "/list_properties"); res.Reply != msgNoProperties {
		t.Fatalf("empty list reply = %q", res.Reply)
	}

	run(t, it, sess, `/add_property "Villa Sole" B&B 1234,5 Roma +390123456 "WiFi,Piscina"`)
	res := run(t, it, sess, "/list_properties")

	want := "Elenco Proprietà:\n  • ID 1: Villa Sole (B&B) a Roma - €1,234.50 - Status: disponibile\n"
	if res.Reply != want {
		t.Fatalf("list = %q, want %q", res.Reply, want)
	}
}

func TestListUsers(t *testing.T) {
	it, cat, _ := newTestInterpreter(t)
	sess := activeSession(t, it)

	if res := run(t, it, sess, "/list_users"); res.Reply != msgNoUsers {
		t.Fatalf("empty reply = %q", res.Reply)
	}

	if err := cat.Register("mario@example.it", "segreto1", "admin"); err != nil {
		t.Fatal(err)
	}
	res := run(t, it, sess, "/list_users")
	want := "Elenco Utenti Registrati:\n  • Email: mario@example.it - Password: segreto1\n"
	if res.Reply != want {
		t.Fatalf("reply = %q", res.Reply)
	}
}

func TestDeleteProperty(t *testing.T) {
	it, cat, store := newTestInterpreter(t)
	sess := activeSession(t, it)
	run(t, it, sess, `/add_property "Villa Sole" B&B 120 Roma +390123456 "WiFi"`)

	if res := run(t, it, sess, "/delete_property"); res.Reply != msgDeleteFormat || !errors.Is(res.Err, ErrFormat) {
		t.Fatalf("missing id: reply=%q err=%v", res.Reply, res.Err)
	}

	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	res := run(t, it, sess, "/delete_property 42")
	if res.Reply != "❌ Immobile con ID 42 non trovato." || !errors.Is(res.Err, catalog.ErrNotFound) {
		t.Fatalf("not found: reply=%q err=%v", res.Reply, res.Err)
	}
	after, _ := os.ReadFile(store.Path())
	if !bytes.Equal(before, after) {
		t.Fatal("deleting a missing id must leave the file untouched")
	}

	res = run(t, it, sess, "/delete_property 1")
	if res.Reply != "✅ Immobile 'Villa Sole' (ID: 1) eliminato!" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if _, ok := cat.Get("1"); ok {
		t.Fatal("property still in memory")
	}
	if res := run(t, it, sess, "/list_properties"); res.Reply != msgNoProperties {
		t.Fatalf("list after delete = %q", res.Reply)
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Get("1"); ok {
		t.Fatal("property still on disk")
	}
}

func TestModifyProperty(t *testing.T) {
	it, cat, _ := newTestInterpreter(t)
	sess := activeSession(t, it)
	run(t, it, sess, `/add_property "Villa Sole" B&B 120 Roma +390123456 "WiFi"`)

	res := run(t, it, sess, "/modify_property 1 price €150,50")
	if res.Err != nil || !strings.HasPrefix(res.Reply, "✅ Immobile 'Villa Sole' (ID: 1) modificato") {
		t.Fatalf("reply=%q err=%v", res.Reply, res.Err)
	}
	if p, _ := cat.Get("1"); p.Price != 150.5 {
		t.Fatalf("price = %v", p.Price)
	}

	run(t, it, sess, "/modify_property 1 status occupato")
	if p, _ := cat.Get("1"); p.Available() {
		t.Fatal("status not updated")
	}

	tests := []struct {
		line  string
		reply string
		err   error
	}{
		{"/modify_property 9 name X", "❌ Immobile con ID 9 non trovato.", catalog.ErrNotFound},
		{"/modify_property 1 colore blu", "❌ Campo 'colore' non valido. Campi validi: name, type, price, location, phone, services, status.", ErrFormat},
		{"/modify_property 1 price tanto", msgInvalidPrice, ErrFormat},
		{"/modify_property 1", msgModifyFormat, ErrFormat},
	}
	for _, tt := range tests {
		res := run(t, it, sess, tt.line)
		if res.Reply != tt.reply || !errors.Is(res.Err, tt.err) {
			t.Errorf("%s: reply=%q err=%v", tt.line, res.Reply, res.Err)
		}
	}
}

func TestAddProperty_IDsSkipCollisions(t *testing.T) {
	cat := catalog.FromDocument(catalog.Document{Properties: map[string]catalog.Property{
		"2": {Name: "Esistente"},
	}})
	it := NewInterpreter(cat, nil, testAdmin)
	sess := activeSession(t, it)

	// count+1 == "2" is taken, so the first add walks to "3"
	res := run(t, it, sess, `/add_property "Nuova" B&B 50 Roma 0123 "WiFi"`)
	if res.Reply != "✅ Proprietà 'Nuova' aggiunta con ID 3." {
		t.Fatalf("reply = %q", res.Reply)
	}
	res = run(t, it, sess, `/add_property "Altra" B&B 50 Roma 0123 "WiFi"`)
	if res.Reply != "✅ Proprietà 'Altra' aggiunta con ID 4." {
		t.Fatalf("reply = %q", res.Reply)
	}
}
