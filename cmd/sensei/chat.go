package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Inspect and edit stored conversations",
	}

	cmd.AddCommand(newChatListCmd())
	cmd.AddCommand(newChatHistoryCmd())
	cmd.AddCommand(newChatDeleteCmd())
	return cmd
}

func newChatListCmd() *cobra.Command {
	var (
		configPath string
		owner      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, gormDB, true)
			if err != nil {
				return err
			}
			convs, err := p.resolver.Conversations(cmd.Context(), owner, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(convs) == 0 {
				fmt.Fprintf(out, "No conversations for %s.\n", owner)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHAT ID\tTITLE\tUPDATED")
			for _, c := range convs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ExternalID, c.Title, c.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().StringVarP(&owner, "user", "u", currentUser(), "conversation owner")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum conversations to list")
	return cmd
}

func newChatHistoryCmd() *cobra.Command {
	var (
		configPath string
		owner      string
	)

	cmd := &cobra.Command{
		Use:   "history [chat-id]",
		Short: "Print the messages of a conversation",
		Long:  "Prints a conversation in order. Without a chat id the most recent conversation is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID := ""
			if len(args) == 1 {
				chatID = args[0]
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, gormDB, true)
			if err != nil {
				return err
			}
			conv, msgs, err := p.resolver.History(cmd.Context(), owner, chatID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if conv == nil {
				fmt.Fprintf(out, "No conversations for %s.\n", owner)
				return nil
			}
			fmt.Fprintf(out, "%s  %s\n", conv.ExternalID, conv.Title)
			for _, m := range msgs {
				fmt.Fprintf(out, "\n[%d] %s %s", m.ID, m.Role, m.CreatedAt.Format("2006-01-02 15:04:05"))
				if m.TransactionID != "" {
					fmt.Fprintf(out, " (%s)", m.TransactionID)
				}
				fmt.Fprintf(out, "\n%s\n", m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().StringVarP(&owner, "user", "u", currentUser(), "conversation owner")
	return cmd
}

func newChatDeleteCmd() *cobra.Command {
	var (
		configPath string
		owner      string
	)

	cmd := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete a user message and the answer that follows it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, gormDB, true)
			if err != nil {
				return err
			}
			if err := p.resolver.DeleteUserMessageCascade(cmd.Context(), owner, uint(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Sensei config file")
	cmd.Flags().StringVarP(&owner, "user", "u", currentUser(), "conversation owner")
	return cmd
}
