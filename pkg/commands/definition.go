package commands

import (
	"context"

	"github.com/ciaohost/concierge/pkg/session"
)

// Kind tags a parsed command.
type Kind int

const (
	// KindNone is plain text, not a command.
	KindNone Kind = iota
	KindAdmin
	KindAddProperty
	KindListProperties
	KindListUsers
	KindDeleteProperty
	KindModifyProperty
	KindExitAdmin
	// KindUnknown is a slash-prefixed token that names no command.
	KindUnknown
)

// Command is the result of parsing one line. Only the fields of its Kind
// are set; Err carries a format problem found while parsing arguments.
type Command struct {
	Kind Kind
	Name string
	Text string

	Add *AddArgs

	ID    string
	Field string
	Value string

	Err error
}

type AddArgs struct {
	Name     string
	Type     string
	Price    float64
	Location string
	Phone    string
	Services []string
}

// Request is what a handler receives: the parsed command and the session it
// was typed in.
type Request struct {
	Session *session.Session
	Command Command
}

// Handler runs a command and returns the reply. A non-nil error classifies
// the failure; the reply is always user-presentable.
type Handler func(ctx context.Context, req Request) (string, error)

type Definition struct {
	Name        string
	Kind        Kind
	Description string
	Usage       string
	Example     string
	Handler     Handler
}
