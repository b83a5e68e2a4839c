package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/teller/internal/config"
	"github.com/zulandar/teller/internal/db"
	"github.com/zulandar/teller/internal/turn"
	"golang.org/x/term"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Teller from the terminal",
		Long:  "Runs the full orchestration loop against an in-memory database seeded with demo data. Useful for trying prompts without a server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, userID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teller.yaml", "path to Teller config file")
	cmd.Flags().StringVar(&userID, "user", "user_demo", "user to chat as")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, userID string) error {
	out := cmd.OutOrStdout()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("chat requires an interactive terminal")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gdb, err := db.OpenMemory()
	if err != nil {
		return err
	}
	if err := db.SeedCatalog(gdb); err != nil {
		return err
	}
	if err := db.SeedDemo(gdb, userID); err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	st, err := buildStack(cfg, gdb, engine, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	session, err := st.recorder.BeginSession(cmd.Context(), userID, "Terminal chat")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Chatting as %s (session %s). Empty line or Ctrl-D exits.\n\n", userID, session.SessionID)

	var history []turn.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}

		history = append(history, turn.Message{Role: "human", Content: text})
		resp, err := st.pipeline.Process(cmd.Context(), turn.Request{
			UserID:    userID,
			SessionID: session.SessionID,
			Messages:  history,
		})
		if err != nil {
			fmt.Fprintf(out, "teller> something went wrong: %v\n\n", err)
			continue
		}
		history = append(history, turn.Message{Role: "ai", Content: resp.Response})

		fmt.Fprintf(out, "teller[%s]> %s\n", resp.Specialist, resp.Response)
		if resp.WidgetCreated {
			fmt.Fprintf(out, "        (created a %s widget)\n", resp.WidgetType)
		}
		fmt.Fprintln(out)
	}
	return scanner.Err()
}
