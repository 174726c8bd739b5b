package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Desarso/advisorchat/api"
	"github.com/Desarso/advisorchat/models"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		sessionID string
		list      bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a stored conversation",
		Long: `Print a stored conversation. Without --session the backend picks the
most recent one. --list prints the conversations instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.New(api.Options{
				BaseURL: a.cfg.APIURL,
				Token:   a.cfg.AuthToken,
				Timeout: a.cfg.RequestTimeout,
				Logger:  a.logger,
			})
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if list {
				convs, err := client.GetConversations(ctx)
				if err != nil {
					return err
				}
				if len(convs) == 0 {
					fmt.Fprintln(out, metaStyle.Render("no conversations"))
					return nil
				}
				for _, c := range convs {
					fmt.Fprintf(out, "%s  %s %s\n",
						metaStyle.Render(c.SessionID),
						assistantLabelStyle.Render(c.Title),
						timestampStyle.Render(fmt.Sprintf("(%d messages)", c.MessageCount)))
				}
				return nil
			}

			entries, err := client.GetHistory(ctx, sessionID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, metaStyle.Render("no messages"))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, renderMessage(historyMessage(e)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List conversations")
	return cmd
}

func historyMessage(e models.HistoryEntry) models.Message {
	md := e.Metadata
	if md == nil {
		md = models.NewMetadata(e.ToolCalls, e.ActionRequired, e.Context)
	}
	return models.Message{
		ID:        string(e.ID),
		Role:      e.Role,
		Content:   e.Content,
		Timestamp: e.Timestamp.Time,
		Metadata:  md,
	}
}
