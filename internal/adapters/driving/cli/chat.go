package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions and read conversations",
	Long: `Ask questions about an indexed file or workspace and read past answers.

A file id selects that file's own conversation; --workspace selects the
shared conversation of a workspace.`,
}

var chatAskCmd = &cobra.Command{
	Use:   "ask [file-id]",
	Short: "Ask a question",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatAsk,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [file-id]",
	Short: "Show recent messages",
	Long: fmt.Sprintf(`Show the most recent %d messages of a conversation.
Each --more adds one more page of older messages.`, services.WindowPageSize),
	Args: cobra.MaximumNArgs(1),
	RunE: runChatHistory,
}

var chatSessionCmd = &cobra.Command{
	Use:   "session [file-id]",
	Short: "Chat interactively",
	Long: `Open a conversation, show its recent messages and answer questions
read from stdin, one per line.

Type /more to show an older page of messages and /quit to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChatSession,
}

var chatSummaryCmd = &cobra.Command{
	Use:   "summary [file-id]",
	Short: "Show a file's summary",
	Long:  `Show the summary the indexing service produced for a file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runChatSummary,
}

var (
	chatQuestion  string
	chatWorkspace string
	chatMore      int
)

func init() {
	chatAskCmd.Flags().StringVarP(&chatQuestion, "question", "q", "", "question to ask")
	for _, c := range []*cobra.Command{chatAskCmd, chatHistoryCmd, chatSessionCmd, chatSummaryCmd} {
		c.Flags().StringVarP(&chatWorkspace, "workspace", "w", "", "workspace conversation")
	}
	chatHistoryCmd.Flags().IntVar(&chatMore, "more", 0, "pages of older messages to add")

	chatCmd.AddCommand(chatAskCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatSessionCmd)
	chatCmd.AddCommand(chatSummaryCmd)
	rootCmd.AddCommand(chatCmd)
}

// conversationRef builds the reference from a file argument and the
// workspace flag. Exactly one must be given.
func conversationRef(args []string, workspaceID string) (domain.ConversationRef, error) {
	ref := domain.ConversationRef{WorkspaceID: workspaceID}
	if len(args) > 0 {
		ref.FileID = args[0]
	}
	if err := ref.Validate(); err != nil {
		return ref, errors.New("pass either a file id or --workspace")
	}
	return ref, nil
}

func runChatAsk(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errNotConfigured("conversation")
	}

	ref, err := conversationRef(args, chatWorkspace)
	if err != nil {
		return err
	}
	question := strings.TrimSpace(chatQuestion)
	if question == "" {
		return errors.New("a question is required (-q)")
	}

	msg, err := conversationService.Ask(cmd.Context(), ref, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	cmd.Println(msg.AI)
	printCitations(cmd, msg.Sources)
	return nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errNotConfigured("conversation")
	}

	ref, err := conversationRef(args, chatWorkspace)
	if err != nil {
		return err
	}

	chats, err := conversationService.History(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	window := services.NewSessionWindow(chats)
	for i := 0; i < chatMore && window.HasMore(); i++ {
		window.LoadMore()
	}

	printWindow(cmd, window, "--more")
	return nil
}

func runChatSession(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errNotConfigured("conversation")
	}

	ref, err := conversationRef(args, chatWorkspace)
	if err != nil {
		return err
	}

	chats, err := conversationService.History(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	window := services.NewSessionWindow(chats)
	printWindow(cmd, window, "/more")

	reader := bufio.NewReader(cmd.InOrStdin())
	for cmd.Context().Err() == nil {
		cmd.Print("> ")
		line, readErr := reader.ReadString('\n')
		input := strings.TrimSpace(line)

		switch {
		case input == "/quit":
			return nil
		case input == "/more":
			if !window.HasMore() {
				cmd.Println("No older messages.")
				break
			}
			window.LoadMore()
			printWindow(cmd, window, "/more")
		case input != "":
			msg, err := conversationService.Ask(cmd.Context(), ref, input)
			if err != nil {
				cmd.PrintErrf("ask failed: %v\n", err)
				break
			}
			window.AppendLive(*msg)
			cmd.Println(msg.AI)
			printCitations(cmd, msg.Sources)
		}

		if readErr != nil {
			cmd.Println()
			return nil
		}
	}
	return nil
}

// printWindow prints the visible messages; moreHint names how to page back.
func printWindow(cmd *cobra.Command, window *services.SessionWindow, moreHint string) {
	if window.Len() == 0 {
		cmd.Println("No messages yet.")
		return
	}
	if window.HasMore() {
		cmd.Printf("(%d older messages hidden, use %s)\n\n", window.Len()-window.Size(), moreHint)
	}
	for _, m := range window.Visible() {
		cmd.Printf("[%s]\n", m.Timestamp.Local().Format("2006-01-02 15:04"))
		cmd.Printf("You: %s\n", m.User)
		cmd.Printf("AI:  %s\n", m.AI)
		printCitations(cmd, m.Sources)
		cmd.Println()
	}
}

func runChatSummary(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errNotConfigured("conversation")
	}

	fileID := args[0]
	ref := domain.ConversationRef{FileID: fileID}
	if chatWorkspace != "" {
		ref = domain.ConversationRef{WorkspaceID: chatWorkspace}
	}

	summary, err := conversationService.Summary(cmd.Context(), ref, fileID)
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}
	if summary == "" {
		cmd.Println("No summary yet.")
		return nil
	}
	cmd.Println(summary)
	return nil
}

func printCitations(cmd *cobra.Command, sources []domain.Citation) {
	if len(sources) == 0 {
		return
	}
	cmd.Println("Sources:")
	for _, c := range sources {
		label := c.Title
		if label == "" {
			label = c.FileID
		}
		if c.Page > 0 {
			cmd.Printf("  - %s (p. %d)\n", label, c.Page)
		} else {
			cmd.Printf("  - %s\n", label)
		}
	}
}
