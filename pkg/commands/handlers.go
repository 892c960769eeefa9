package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/session"
)

func (it *Interpreter) adminDefinitions() []Definition {
	return []Definition{
		{
			Name:        "add_property",
			Kind:        KindAddProperty,
			Description: "Add a property to the catalog",
			Usage:       "/add_property <nome> <tipo> <prezzo> <località> <telefono> <servizi_comma_separated>",
			Example:     `/add_property "Villa Sole" B&B 120 Roma +390123456 "WiFi,Piscina"`,
			Handler:     it.handleAddProperty,
		},
		{
			Name:        "list_properties",
			Kind:        KindListProperties,
			Description: "List every property",
			Usage:       "/list_properties",
			Handler:     it.handleListProperties,
		},
		{
			Name:        "list_users",
			Kind:        KindListUsers,
			Description: "List registered users and their passwords",
			Usage:       "/list_users",
			Handler:     it.handleListUsers,
		},
		{
			Name:        "delete_property",
			Kind:        KindDeleteProperty,
			Description: "Remove a property by id",
			Usage:       "/delete_property <id>",
			Handler:     it.handleDeleteProperty,
		},
		{
			Name:        "modify_property",
			Kind:        KindModifyProperty,
			Description: "Change one field of a property",
			Usage:       "/modify_property <id> <campo> <valore>",
			Example:     "/modify_property 1 price 135",
			Handler:     it.handleModifyProperty,
		},
		{
			Name:        "exit_admin",
			Kind:        KindExitAdmin,
			Description: "Leave admin mode",
			Usage:       "/exit_admin (per uscire dalla modalità admin)",
			Handler:     it.handleExitAdmin,
		},
	}
}

func (it *Interpreter) handleAddProperty(_ context.Context, req Request) (string, error) {
	cmd := req.Command
	if cmd.Err != nil {
		if errors.Is(cmd.Err, catalog.ErrInvalidPrice) {
			return msgInvalidPrice, cmd.Err
		}
		return msgAddFormat, cmd.Err
	}

	p := it.catalog.Add(catalog.Property{
		Name:     cmd.Add.Name,
		Type:     cmd.Add.Type,
		Price:    cmd.Add.Price,
		Location: cmd.Add.Location,
		Phone:    cmd.Add.Phone,
		Services: cmd.Add.Services,
		Status:   catalog.StatusAvailable,
	})
	it.record(req.Session, audit.Event{
		EventType: audit.EventPropertyAdded,
		Resource:  p.ID,
		Details:   map[string]any{"name": p.Name, "price": p.Price},
		Success:   true,
	})
	return it.persist(fmt.Sprintf(msgAdded, p.Name, p.ID))
}

func (it *Interpreter) handleListProperties(context.Context, Request) (string, error) {
	props := it.catalog.Properties()
	if len(props) == 0 {
		return msgNoProperties, nil
	}

	var sb strings.Builder
	sb.WriteString(msgPropertyHeader)
	for _, p := range props {
		fmt.Fprintf(&sb, msgPropertyLine,
			p.ID, orNA(p.Name), orNA(p.Type), orNA(p.Location), catalog.FormatPrice(p.Price), orNA(p.Status))
	}
	return sb.String(), nil
}

func (it *Interpreter) handleListUsers(context.Context, Request) (string, error) {
	users := it.catalog.Users()
	if len(users) == 0 {
		return msgNoUsers, nil
	}

	var sb strings.Builder
	sb.WriteString(msgUserHeader)
	for _, u := range users {
		fmt.Fprintf(&sb, msgUserLine, u.Email, u.Password)
	}
	return sb.String(), nil
}

func (it *Interpreter) handleDeleteProperty(_ context.Context, req Request) (string, error) {
	cmd := req.Command
	if cmd.Err != nil {
		return msgDeleteFormat, cmd.Err
	}

	p, err := it.catalog.Delete(cmd.ID)
	if err != nil {
		return fmt.Sprintf(msgNotFound, cmd.ID), err
	}
	name := p.Name
	if name == "" {
		name = "Sconosciuta"
	}
	it.record(req.Session, audit.Event{
		EventType: audit.EventPropertyDeleted,
		Resource:  cmd.ID,
		Details:   map[string]any{"name": p.Name},
		Success:   true,
	})
	return it.persist(fmt.Sprintf(msgDeleted, name, cmd.ID))
}

func (it *Interpreter) handleModifyProperty(_ context.Context, req Request) (string, error) {
	cmd := req.Command
	if cmd.Err != nil {
		return msgModifyFormat, cmd.Err
	}

	p, err := it.catalog.Modify(cmd.ID, cmd.Field, cmd.Value)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fmt.Sprintf(msgNotFound, cmd.ID), err
	case errors.Is(err, catalog.ErrUnknownField):
		return fmt.Sprintf(msgUnknownField, cmd.Field), fmt.Errorf("%w: %w", ErrFormat, err)
	case errors.Is(err, catalog.ErrInvalidPrice):
		return msgInvalidPrice, fmt.Errorf("%w: %w", ErrFormat, err)
	case err != nil:
		return fmt.Sprintf("❌ Errore: %v", err), err
	}

	it.record(req.Session, audit.Event{
		EventType: audit.EventPropertyModified,
		Resource:  p.ID,
		Details:   map[string]any{"field": cmd.Field, "value": cmd.Value},
		Success:   true,
	})
	return it.persist(fmt.Sprintf(msgModified, p.Name, p.ID, cmd.Field, cmd.Value))
}

func (it *Interpreter) handleExitAdmin(_ context.Context, req Request) (string, error) {
	req.Session.SetAdminState(session.Idle)
	it.record(req.Session, audit.Event{EventType: audit.EventAdminExit, Success: true})
	return msgAdminExit, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
