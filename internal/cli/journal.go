package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omramin/omramin/internal/database"
	"github.com/omramin/omramin/internal/globals"
	"github.com/omramin/omramin/internal/models"
)

var (
	journalDevice string
	journalRun    string
	journalLimit  int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recorded sync decisions",
	Long: `List the reconciliation decisions recorded by past sync runs, newest
first. Dry runs are journaled too, with APPLIED set to false.`,
	Run: runJournal,
}

func runJournal(cmd *cobra.Command, args []string) {
	query := database.DB.Model(&models.SyncJournalEntry{}).Order("id DESC")

	if journalDevice != "" {
		query = query.Where("device_name = ?", journalDevice)
	}
	if journalRun != "" {
		query = query.Where("run_id = ?", journalRun)
	}
	if journalLimit > 0 {
		query = query.Limit(journalLimit)
	}

	var entries []models.SyncJournalEntry
	if err := query.Find(&entries).Error; err != nil {
		globals.Logger.Error("Failed to load sync journal", "error", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No journal entries.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEASURED AT\tDEVICE\tCATEGORY\tACTION\tAPPLIED\tRUN\tERROR")

	for _, entry := range entries {
		errText := entry.Error
		if errText == "" {
			errText = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			entry.MeasuredAt.Format("2006-01-02 15:04:05"),
			entry.DeviceName,
			entry.Category,
			entry.Action,
			entry.Applied,
			shortRunID(entry.RunID),
			errText)
	}

	w.Flush()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVarP(&journalDevice, "device", "d", "", "Only entries for this device name")
	journalCmd.Flags().StringVar(&journalRun, "run", "", "Only entries for this run ID")
	journalCmd.Flags().IntVar(&journalLimit, "limit", 50, "Maximum number of entries to show")
}
