package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katakuxiko/luminarag/internal/model"
	"github.com/katakuxiko/luminarag/internal/service"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Ask one question about the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question loop; type exit to quit",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	askCmd.Flags().BoolVarP(&showSources, "sources", "s", false, "print the retrieved passages")
	chatCmd.Flags().BoolVarP(&showSources, "sources", "s", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	sess := application.Sessions.Create()
	printAnswer(cmd, application.RAG.Ask(cmd.Context(), sess, strings.Join(args, " ")))
	return nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	sess := application.Sessions.Create()
	return chatLoop(cmd, application.RAG, sess)
}

func chatLoop(cmd *cobra.Command, rag *service.RAGService, sess *service.Session) error {
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !in.Scan() {
			cmd.Println()
			return in.Err()
		}
		q := strings.TrimSpace(in.Text())
		switch q {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		printAnswer(cmd, rag.Ask(cmd.Context(), sess, q))
	}
}

func printAnswer(cmd *cobra.Command, ans model.Answer) {
	cmd.Println(ans.Text)
	if !showSources {
		return
	}
	for i, h := range ans.Sources {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, h.ID, h.Score)
	}
}
