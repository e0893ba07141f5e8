package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage attached files",
	Long:  `List, inspect, rename or remove attached files.`,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached files",
	Args:  cobra.NoArgs,
	RunE:  runFilesList,
}

var filesShowCmd = &cobra.Command{
	Use:   "show [file-id]",
	Short: "Show file details",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesShow,
}

var filesRemoveCmd = &cobra.Command{
	Use:     "rm [file-id]",
	Aliases: []string{"remove"},
	Short:   "Remove a file and its chat",
	Args:    cobra.ExactArgs(1),
	RunE:    runFilesRemove,
}

var filesRenameCmd = &cobra.Command{
	Use:   "rename [file-id] [name]",
	Short: "Change a file's display name",
	Long:  `Change the display name shown for a file. The indexing service is not told.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runFilesRename,
}

var (
	filesWorkspace string
	filesJSON      bool
)

func init() {
	filesListCmd.Flags().StringVarP(&filesWorkspace, "workspace", "w", "", "only list files of this workspace")
	filesListCmd.Flags().BoolVar(&filesJSON, "json", false, "print JSON")
	filesShowCmd.Flags().BoolVar(&filesJSON, "json", false, "print JSON")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesShowCmd)
	filesCmd.AddCommand(filesRemoveCmd)
	filesCmd.AddCommand(filesRenameCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	files, err := attachmentService.Files(cmd.Context(), filesWorkspace)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if filesJSON {
		return printJSON(cmd, files)
	}

	if len(files) == 0 {
		cmd.Println("No files attached.")
		return nil
	}

	for i := range files {
		f := &files[i]
		status := "indexed"
		if !f.IsIndexed {
			status = "pending"
		}
		cmd.Printf("  %s  %-8s  %-7s  %s\n", f.ID, f.Source, status, f.OriginalName)
	}
	cmd.Printf("\nTotal: %d files\n", len(files))
	return nil
}

func runFilesShow(cmd *cobra.Command, args []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	f, err := attachmentService.File(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	if filesJSON {
		return printJSON(cmd, f)
	}

	printFile(cmd, f)
	return nil
}

func runFilesRemove(cmd *cobra.Command, args []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	if err := attachmentService.DeleteFile(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	cmd.Printf("Removed file: %s\n", args[0])
	return nil
}

func runFilesRename(cmd *cobra.Command, args []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	if err := attachmentService.Rename(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	cmd.Printf("Renamed %s to %q\n", args[0], args[1])
	return nil
}

func printFile(cmd *cobra.Command, f *domain.FileRecord) {
	cmd.Printf("File: %s\n\n", f.ID)
	cmd.Printf("  Name:      %s\n", f.OriginalName)
	cmd.Printf("  Source:    %s\n", f.Source)
	if f.LocalURI != "" {
		cmd.Printf("  Location:  %s\n", f.LocalURI)
	}
	if f.OriginalURL != "" {
		cmd.Printf("  URL:       %s\n", f.OriginalURL)
	}
	cmd.Printf("  MIME type: %s\n", f.MimeType)
	cmd.Printf("  Size:      %d bytes\n", f.Size)
	cmd.Printf("  Indexed:   %t\n", f.IsIndexed)
	if f.WorkspaceID != "" {
		cmd.Printf("  Workspace: %s\n", f.WorkspaceID)
	}
	cmd.Printf("  Uploaded:  %s\n", f.UploadDate.Format("2006-01-02 15:04:05"))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
