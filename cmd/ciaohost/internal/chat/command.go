package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/concierge"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

func NewChatCommand() *cobra.Command {
	var (
		message    string
		sessionKey string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the concierge from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return chatCmd(cmd, message, sessionKey, debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send a single message (non-interactive mode)")
	cmd.Flags().StringVarP(&sessionKey, "session", "s", "cli:default", "Session key")

	return cmd
}

func chatCmd(cmd *cobra.Command, message, sessionKey string, debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	app, err := internal.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if message != "" {
		reply, err := app.Loop.Process(cmd.Context(), sessionKey, message)
		printReply(out, reply)
		if errors.Is(err, concierge.ErrCollaborator) {
			return nil
		}
		return err
	}

	fmt.Fprintf(out, "%s CiaoHost concierge (Ctrl+C o 'exit' per uscire, /admin per l'area admin)\n\n", internal.Logo)
	return interactive(cmd.Context(), app.Loop, sessionKey, out)
}

func printReply(out io.Writer, reply string) {
	if reply == "" {
		return
	}
	fmt.Fprintf(out, "\n%s %s\n\n", internal.Logo, reply)
}

func interactive(ctx context.Context, loop *concierge.Loop, sessionKey string, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "👤 Tu: ",
		HistoryFile:     config.ResolveRuntimePaths().HistoryFile,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		DisableAutoSaveHistory: true,
	})
	if err != nil {
		logger.WarnCF("chat", "Readline unavailable, using plain input", map[string]any{"error": err.Error()})
		return simpleInteractive(ctx, loop, sessionKey, os.Stdin, out)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nArrivederci!")
				return nil
			}
			return err
		}
		keep := keepInHistory(loop, sessionKey, line)
		done := handleLine(ctx, loop, sessionKey, line, out)
		if keep {
			if err := rl.SaveHistory(line); err != nil {
				logger.DebugCF("chat", "Failed to save input history", map[string]any{"error": err.Error()})
			}
		}
		if done {
			return nil
		}
	}
}

// keepInHistory reports whether line may be written to the history file.
// The answer to the password prompt never is.
func keepInHistory(loop *concierge.Loop, sessionKey, line string) bool {
	return strings.TrimSpace(line) != "" && !loop.ExpectsSecret(sessionKey)
}

func simpleInteractive(ctx context.Context, loop *concierge.Loop, sessionKey string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "👤 Tu: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nArrivederci!")
			return scanner.Err()
		}
		if done := handleLine(ctx, loop, sessionKey, scanner.Text(), out); done {
			return nil
		}
	}
}

// handleLine processes one input line and reports whether the user asked to
// quit.
func handleLine(ctx context.Context, loop *concierge.Loop, sessionKey, line string, out io.Writer) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return false
	case "exit", "quit":
		fmt.Fprintln(out, "Arrivederci!")
		return true
	case "/logout":
		loop.Reset(sessionKey)
		fmt.Fprintln(out, "Sessione azzerata.")
		return false
	}

	reply, err := loop.Process(ctx, sessionKey, input)
	if err != nil {
		logger.DebugCF("chat", "Message processed with error", map[string]any{"error": err.Error()})
	}
	printReply(out, reply)
	return false
}
