package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
	Long:  `List workspaces or remove a workspace with all of its files and chats.`,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE:  runWorkspaceList,
}

var workspaceRemoveCmd = &cobra.Command{
	Use:     "rm [workspace-id]",
	Aliases: []string{"remove"},
	Short:   "Remove a workspace",
	Long: `Remove a workspace from the indexing service, together with its files,
its shared conversation and the chats of its files.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkspaceRemove,
}

var workspaceYes bool

// stdinIsTerminal reports whether confirmations can be prompted for.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func init() {
	workspaceRemoveCmd.Flags().BoolVarP(&workspaceYes, "yes", "y", false, "skip confirmation")

	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceRemoveCmd)
	rootCmd.AddCommand(workspaceCmd)
}

func runWorkspaceList(cmd *cobra.Command, _ []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	files, err := attachmentService.Files(cmd.Context(), "")
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	counts := make(map[string]int)
	for i := range files {
		if ws := files[i].WorkspaceID; ws != "" {
			counts[ws]++
		}
	}
	if len(counts) == 0 {
		cmd.Println("No workspaces.")
		return nil
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cmd.Printf("  %s  (%d files)\n", id, counts[id])
	}
	return nil
}

func runWorkspaceRemove(cmd *cobra.Command, args []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}
	workspaceID := args[0]

	if !workspaceYes {
		if !stdinIsTerminal() {
			return errors.New("refusing to remove a workspace without --yes")
		}
		cmd.Printf("Remove workspace %s with all its files and chats? [y/N]: ", workspaceID)
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := attachmentService.DeleteWorkspace(cmd.Context(), workspaceID); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	cmd.Printf("Removed workspace: %s\n", workspaceID)
	return nil
}
