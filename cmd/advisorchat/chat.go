package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Desarso/advisorchat"
	"github.com/Desarso/advisorchat/sessions"
)

const chatHelp = "Commands: /clear, /history, /quit"

func newChatCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat with the assistant.

Each line you type is sent as a message. Replies, live updates and
notifications are printed as they arrive.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AuthToken == "" {
				return fmt.Errorf("no token: pass --token or set ADVISOR_AUTH_TOKEN")
			}
			out := &printer{w: cmd.OutOrStdout()}
			client, err := advisorchat.NewClient(a.cfg, a.logger, sessions.WithNotifier(out))
			if err != nil {
				return err
			}
			r := newRepl(client, out)
			client.Session.OnChange(r.render)
			client.Start()
			defer client.Close()

			ctx := cmd.Context()
			if sessionID != "" {
				client.Session.LoadHistory(ctx, sessionID)
			}
			out.println(metaStyle.Render(chatHelp))
			return r.loop(ctx, bufio.NewScanner(cmd.InOrStdin()))
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Resume a conversation by session id")
	return cmd
}

// repl prints transcript entries once each, in order, whichever goroutine
// produced them.
type repl struct {
	client *advisorchat.Client
	out    *printer

	mu      sync.Mutex
	printed int
	version uint64
}

func newRepl(client *advisorchat.Client, out *printer) *repl {
	return &repl{client: client, out: out}
}

func (r *repl) render(st sessions.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st.Version <= r.version {
		return
	}
	r.version = st.Version
	if len(st.Messages) < r.printed {
		// transcript was cleared or replaced
		r.printed = 0
	}
	for _, m := range st.Messages[r.printed:] {
		r.out.println(renderMessage(m))
	}
	r.printed = len(st.Messages)
}

func (r *repl) reset() {
	r.mu.Lock()
	r.printed = 0
	r.mu.Unlock()
}

func (r *repl) loop(ctx context.Context, in *bufio.Scanner) error {
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			r.client.Session.ClearMessages()
			r.out.println(metaStyle.Render("transcript cleared"))
		case "/history":
			sessionID := r.client.Session.Snapshot().SessionID
			r.reset()
			r.client.Session.LoadHistory(ctx, sessionID)
		case "/help":
			r.out.println(metaStyle.Render(chatHelp))
		default:
			if strings.HasPrefix(line, "/") {
				r.out.println(errorStyle.Render("unknown command ") + line)
				continue
			}
			r.client.Session.SendMessage(ctx, line)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return in.Err()
}
