package commands

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ciaohost/concierge/pkg/catalog"
)

var kindsByName = map[string]Kind{
	"admin":           KindAdmin,
	"add_property":    KindAddProperty,
	"list_properties": KindListProperties,
	"list_users":      KindListUsers,
	"delete_property": KindDeleteProperty,
	"modify_property": KindModifyProperty,
	"exit_admin":      KindExitAdmin,
}

// The name and the trailing services group must be quoted; only the command
// token is matched case-insensitively.
var addPropertyPattern = regexp.MustCompile(`^/(?i:add_property)(?:@\S+)?\s+"([^"]+)"\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(.+)$`)

// Parse turns one line into a Command. Text whose first token does not start
// with '/' is KindNone.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)
	name, ok := parseCommandName(trimmed)
	if !ok {
		return Command{Kind: KindNone, Text: trimmed}
	}

	cmd := Command{Kind: KindUnknown, Name: name, Text: trimmed}
	if kind, known := kindsByName[name]; known {
		cmd.Kind = kind
	}

	switch cmd.Kind {
	case KindAddProperty:
		cmd.Add, cmd.Err = parseAddArgs(trimmed)
	case KindDeleteProperty:
		cmd.ID = strings.TrimSpace(commandArgs(trimmed))
		if cmd.ID == "" {
			cmd.Err = fmt.Errorf("%w: missing property id", ErrFormat)
		}
	case KindModifyProperty:
		parts := strings.SplitN(commandArgs(trimmed), " ", 3)
		if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
			cmd.Err = fmt.Errorf("%w: expected <id> <field> <value>", ErrFormat)
			break
		}
		cmd.ID = parts[0]
		cmd.Field = strings.ToLower(parts[1])
		cmd.Value = strings.Trim(strings.TrimSpace(parts[2]), `"`)
	}
	return cmd
}

func parseAddArgs(text string) (*AddArgs, error) {
	m := addPropertyPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: add_property arguments", ErrFormat)
	}

	price, err := catalog.ParsePrice(m[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return &AddArgs{
		Name:     m[1],
		Type:     m[2],
		Price:    price,
		Location: m[4],
		Phone:    m[5],
		Services: catalog.ParseServices(m[6]),
	}, nil
}

func firstToken(input string) string {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// parseCommandName returns the lowercased command token without its leading
// slash or a Telegram "@botname" suffix. A bare "/" is still a command, with
// an empty name.
func parseCommandName(input string) (string, bool) {
	token := firstToken(input)
	if token == "" || !strings.HasPrefix(token, "/") {
		return "", false
	}

	name := strings.TrimPrefix(token, "/")
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name)), true
}

// commandArgs returns everything after the first token, with inner runs of
// whitespace collapsed to single spaces.
func commandArgs(input string) string {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
