package command

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the message corpus on the session server",
}

var corpusReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the corpus file and push it to every peer",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		status, err := c.ReloadCorpus()
		if err != nil {
			return fmt.Errorf("reload failed: %w", err)
		}
		color.Green("✓ Corpus version %d published", status.Version)
		fmt.Printf("   %d categories, %d templates\n", len(status.Categories), status.Templates)
		return nil
	},
}

var corpusRevisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "List recorded corpus versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		revisions, err := c.Revisions(limit)
		if err != nil {
			return err
		}
		if len(revisions) == 0 {
			fmt.Println("No revisions recorded (is DATABASE_URL set on the server?)")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tCREATED\tCATEGORIES\tTEMPLATES\tBYTES\tCHECKSUM")
		for _, r := range revisions {
			checksum := r.Checksum
			if len(checksum) > 12 {
				checksum = checksum[:12]
			}
			if r.Malformed {
				checksum += " (malformed)"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\n",
				r.Version, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.Categories, r.Templates, r.SizeBytes, checksum)
		}
		return w.Flush()
	},
}

func init() {
	corpusCmd.AddCommand(corpusReloadCmd, corpusRevisionsCmd)
	corpusRevisionsCmd.Flags().IntP("limit", "n", 20, "number of revisions to show (1-100)")
}
