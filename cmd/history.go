package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablechat-cli/internal/history"
	"github.com/KaramelBytes/tablechat-cli/internal/utils"
)

var historyExportPath string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved chat sessions",
}

func openHistory() (*history.Store, error) {
	if cfg == nil || cfg.HistoryPath == "" {
		return nil, fmt.Errorf("history is not configured (set history_path in ~/.tablechat/config.yaml)")
	}
	return history.Open(cfg.HistoryPath)
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Dataset)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := store.Session(ctx, args[0])
		if err != nil {
			return err
		}
		msgs, err := store.Messages(ctx, sess.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s (%s) — dataset: %s\n\n", sess.ID, sess.CreatedAt.Format(time.RFC3339), sess.Dataset)
		for _, m := range msgs {
			fmt.Printf("[%s] %s\n\n", m.Role, m.Content)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := store.Session(ctx, args[0])
		if err != nil {
			return err
		}
		msgs, err := store.Messages(ctx, sess.ID)
		if err != nil {
			return err
		}
		out, err := utils.PrettyJSON(struct {
			Session  history.Session   `json:"session"`
			Messages []history.Message `json:"messages"`
		}{Session: *sess, Messages: msgs})
		if err != nil {
			return err
		}
		if historyExportPath != "" {
			if err := utils.SafeWriteFile(historyExportPath, append(out, '\n')); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Printf("✓ Exported session to %s\n", historyExportPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("✓ History cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyExportCmd.Flags().StringVarP(&historyExportPath, "output", "o", "", "optional path to write the export")
}
