package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ax5-sect/server/internal/agent/model"
	"github.com/ax5-sect/server/internal/server"
)

const demoResponseRunes = 2000

var demoQueries = []string{
	"Quelles sont les principales exigences du PCF dans IMDS 15.0 ?",
	"Conçois une campagne PCF pour engager nos 50 fournisseurs Tier-1 les plus émissifs en Mauricie",
	"Génère un email de lancement pour cette campagne PCF",
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the demonstration questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return runDemo(cmd.Context(), a.runner, cmd.OutOrStdout())
	},
}

// runDemo sends each demo query on its own thread in debug mode.
func runDemo(ctx context.Context, runner server.TurnRunner, out io.Writer) error {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(out, "%s\nAX5-SECT - Démonstration\n%s\n", rule, rule)

	for i, query := range demoQueries {
		fmt.Fprintf(out, "\n%s\nRequête %d: %s\n%s\n", rule, i+1, query, rule)

		res, err := runner.Run(ctx, model.RunInput{
			Message:        query,
			ConversationID: fmt.Sprintf("demo-%d", i+1),
			Debug:          true,
		})
		if err != nil {
			return fmt.Errorf("demo query %d: %w", i+1, err)
		}

		fmt.Fprintf(out, "\nAgents appelés: %s\n", strings.Join(res.InvokedResponders, ", "))
		fmt.Fprintf(out, "Itérations: %d\n", res.IterationCount)
		fmt.Fprintf(out, "\nRéponse:\n%s\n", truncate(res.Response, demoResponseRunes))
		if len(res.Errors) > 0 {
			fmt.Fprintf(out, "\nErreurs: %s\n", strings.Join(res.Errors, "; "))
		}
	}

	fmt.Fprintf(out, "\n%s\nDémonstration terminée\n%s\n", rule, rule)
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
