package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Desarso/advisorchat/devserver"
)

func newTokenCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the development backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer := devserver.NewTokenIssuer(a.cfg.Server.JWTSecret, a.cfg.Server.TokenTTL)
			token, err := issuer.Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "User id to embed in the token")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
