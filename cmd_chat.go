package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ax5-sect/server/internal/agent/model"
	errx "github.com/ax5-sect/server/internal/core/error"
	"github.com/ax5-sect/server/internal/server"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		threadID, _ := cmd.Flags().GetString("thread")
		if threadID == "" {
			threadID = "interactive-" + uuid.NewString()[:8]
		}
		debug, _ := cmd.Flags().GetBool("debug")
		return runChat(cmd.Context(), a.runner, cmd.InOrStdin(), cmd.OutOrStdout(), threadID, debug)
	},
}

// runChat reads one message per line until EOF or quit. "debug on" and
// "debug off" toggle task result output.
func runChat(ctx context.Context, runner server.TurnRunner, in io.Reader, out io.Writer, threadID string, debug bool) error {
	fmt.Fprintln(out, "AX5-SECT - Chat interactif (thread "+threadID+")")
	fmt.Fprintln(out, "Tapez 'quit' pour quitter, 'debug on/off' pour le mode debug.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nVous: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Au revoir!")
			return nil
		case "debug on":
			debug = true
			fmt.Fprintln(out, "Mode debug activé")
			continue
		case "debug off":
			debug = false
			fmt.Fprintln(out, "Mode debug désactivé")
			continue
		}

		res, err := runner.Run(ctx, model.RunInput{Message: line, ConversationID: threadID, Debug: debug})
		if err != nil {
			fmt.Fprintf(out, "\nErreur: %s\n", errx.MessageOf(err))
			continue
		}

		fmt.Fprintf(out, "\nAX5-SECT (%s):\n%s\n", strings.Join(res.InvokedResponders, ", "), res.Response)
		if debug {
			for _, tr := range res.TaskResults {
				mark := "✗"
				if tr.Success {
					mark = "✓"
				}
				fmt.Fprintf(out, "  - %s: %s (%s)\n", tr.Responder, tr.Kind, mark)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("thread", "", "Conversation thread id to resume")
	chatCmd.Flags().Bool("debug", false, "Print task results after each answer")
}
