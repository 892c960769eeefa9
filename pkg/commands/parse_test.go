package commands

import (
	"errors"
	"testing"

	"github.com/ciaohost/concierge/pkg/catalog"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		name string
	}{
		{"ciao, cerco casa a Roma", KindNone, ""},
		{"", KindNone, ""},
		{"/admin", KindAdmin, "admin"},
		{"  /LIST_PROPERTIES  ", KindListProperties, "list_properties"},
		{"/list_users@ciaohost_bot", KindListUsers, "list_users"},
		{"/exit_admin", KindExitAdmin, "exit_admin"},
		{"/delete_property 3", KindDeleteProperty, "delete_property"},
		{"/refund 3", KindUnknown, "refund"},
		{"/", KindUnknown, ""},
		{"/@bot", KindUnknown, ""},
	}
	for _, tt := range tests {
		cmd := Parse(tt.in)
		if cmd.Kind != tt.kind || cmd.Name != tt.name {
			t.Errorf("Parse(%q) = kind %v name %q, want kind %v name %q", tt.in, cmd.Kind, cmd.Name, tt.kind, tt.name)
		}
	}
}

func TestParse_AddProperty(t *testing.T) {
	cmd := Parse(`/add_property "Villa Sole" B&B 120 Roma +390123456 "WiFi,Piscina"`)
	if cmd.Err != nil {
		t.Fatalf("unexpected error: %v", cmd.Err)
	}
	a := cmd.Add
	if a.Name != "Villa Sole" || a.Type != "B&B" || a.Price != 120 || a.Location != "Roma" || a.Phone != "+390123456" {
		t.Fatalf("unexpected args: %+v", a)
	}
	if len(a.Services) != 2 || a.Services[0] != "WiFi" || a.Services[1] != "Piscina" {
		t.Fatalf("services = %v", a.Services)
	}
}

func TestParse_AddPropertyCaseRules(t *testing.T) {
	cmd := Parse(`/ADD_Property "Casa MARE" Appartamento €99,50 Bari 080123 "Aria Condizionata"`)
	if cmd.Kind != KindAddProperty || cmd.Err != nil {
		t.Fatalf("kind=%v err=%v", cmd.Kind, cmd.Err)
	}
	if cmd.Add.Name != "Casa MARE" || cmd.Add.Price != 99.5 {
		t.Fatalf("captured groups must keep their case: %+v", cmd.Add)
	}
}

func TestParse_AddPropertyErrors(t *testing.T) {
	cmd := Parse("/add_property BadFormat")
	if !errors.Is(cmd.Err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", cmd.Err)
	}

	cmd = Parse(`/add_property "Villa" B&B tanti Roma 0123 "WiFi"`)
	if !errors.Is(cmd.Err, ErrFormat) || !errors.Is(cmd.Err, catalog.ErrInvalidPrice) {
		t.Fatalf("err = %v, want ErrFormat wrapping ErrInvalidPrice", cmd.Err)
	}
}

func TestParse_DeleteAndModify(t *testing.T) {
	if cmd := Parse("/delete_property"); !errors.Is(cmd.Err, ErrFormat) {
		t.Fatalf("missing id: err = %v", cmd.Err)
	}
	if cmd := Parse("/delete_property   Abc7 "); cmd.ID != "Abc7" {
		t.Fatalf("id = %q, want Abc7", cmd.ID)
	}

	cmd := Parse(`/modify_property 2 Name "Villa   Luna"`)
	if cmd.Err != nil || cmd.ID != "2" || cmd.Field != "name" || cmd.Value != "Villa Luna" {
		t.Fatalf("modify parsed as %+v", cmd)
	}
	if cmd := Parse("/modify_property 2 price"); !errors.Is(cmd.Err, ErrFormat) {
		t.Fatalf("missing value: err = %v", cmd.Err)
	}
}
