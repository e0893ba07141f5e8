package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [paths...]",
	Short: "Attach files, URLs or web pages",
	Long: `Attach local files, remote documents and web pages in one batch.

Either every item is indexed or none is kept. With --workspace the items join
a shared workspace conversation; otherwise each file gets its own chat.

Examples:
  docchat upload report.pdf notes.md
  docchat upload --url https://example.com/paper.pdf --workspace research
  docchat upload --webpage https://go.dev/doc/effective_go`,
	RunE: runUpload,
}

var (
	uploadURLs      []string
	uploadWebpages  []string
	uploadWorkspace string
)

func init() {
	uploadCmd.Flags().StringArrayVar(&uploadURLs, "url", nil, "remote document URL (repeatable)")
	uploadCmd.Flags().StringArrayVar(&uploadWebpages, "webpage", nil, "web page URL to scrape (repeatable)")
	uploadCmd.Flags().StringVarP(&uploadWorkspace, "workspace", "w", "", "workspace to attach to")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if attachmentService == nil {
		return errNotConfigured("attachment")
	}

	intents, err := uploadIntents(args, uploadURLs, uploadWebpages)
	if err != nil {
		return err
	}
	if len(intents) == 0 {
		return fmt.Errorf("nothing to upload: pass file paths, --url or --webpage")
	}

	batch, err := attachmentService.Upload(cmd.Context(), uploadWorkspace, intents)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %d item(s)", len(batch.Files))
	if batch.WorkspaceID != "" {
		cmd.Printf(" to workspace %s", batch.WorkspaceID)
	}
	cmd.Println()
	for _, f := range batch.Files {
		cmd.Printf("  %s  %s\n", f.ID, f.OriginalName)
	}
	return nil
}

func uploadIntents(paths, urls, webpages []string) ([]domain.AttachmentIntent, error) {
	intents := make([]domain.AttachmentIntent, 0, len(paths)+len(urls)+len(webpages))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		intents = append(intents, domain.AttachmentIntent{
			Source:   domain.FileSourceDevice,
			Location: abs,
		})
	}
	for _, u := range urls {
		intents = append(intents, domain.AttachmentIntent{Source: domain.FileSourceURL, Location: u})
	}
	for _, u := range webpages {
		intents = append(intents, domain.AttachmentIntent{Source: domain.FileSourceWebpage, Location: u})
	}
	return intents, nil
}
