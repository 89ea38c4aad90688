package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omramin/omramin/garmin"
	"github.com/omramin/omramin/internal/config"
	"github.com/omramin/omramin/internal/database"
	"github.com/omramin/omramin/internal/globals"
	"github.com/omramin/omramin/internal/models"
	"github.com/omramin/omramin/internal/syncer"
	"github.com/omramin/omramin/omron"
)

var (
	syncDevices   []string
	syncDays      int
	syncCategory  string
	syncOverwrite bool
	syncDryRun    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync measurements to Garmin Connect",
	Long: `Download measurements for the registered devices from OMRON connect and
write the ones Garmin Connect does not already have. With --overwrite,
existing Garmin records at the same instant are replaced; with --dry-run,
every decision is reported but nothing is written.`,
	Run: runSync,
}

func runSync(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := globals.Settings
	logger := globals.Logger

	if settings.Omron.RefreshToken == "" {
		fmt.Fprintln(os.Stderr, "Error: not logged in to OMRON connect, run `omramin login omron` first")
		os.Exit(1)
	}
	if settings.Garmin.Token == "" {
		fmt.Fprintln(os.Stderr, "Error: no Garmin Connect token, run `omramin login garmin` first")
		os.Exit(1)
	}

	devices, err := loadRegisteredDevices()
	if err != nil {
		logger.Error("Failed to load device registry", "error", err)
		os.Exit(1)
	}

	var category omron.DeviceCategory
	if syncCategory != "" {
		category, err = omron.ParseDeviceCategory(syncCategory)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	var names []string
	for _, name := range syncDevices {
		if name != "ALL" {
			names = append(names, name)
		}
	}

	devices = syncer.FilterDevices(devices, names, category)
	if len(devices) == 0 {
		logger.Info("No enabled devices match the selection")
		return
	}

	window, err := syncer.CalculateWindow(time.Now(), syncDays)
	if err != nil {
		logger.Error("Failed to compute sync window", "error", err)
		os.Exit(1)
	}

	source, err := connectOmron(ctx, settings)
	if err != nil {
		logger.Error("Failed to authenticate with OMRON connect", "error", err)
		os.Exit(1)
	}

	store := garmin.NewClient(settings.Garmin.BaseURL, settings.Garmin.Token)
	store.SetLogger(logger)

	engine := syncer.NewEngine(source, store, syncer.Options{
		Overwrite: syncOverwrite,
		DryRun:    syncDryRun,
	})
	engine.SetLogger(logger)
	engine.SetJournal(&models.JournalWriter{DB: database.DB, Logger: logger})

	failures := 0
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			logger.Warn("Sync interrupted", "error", err)
			os.Exit(1)
		}

		summary, err := engine.SyncDevice(ctx, device, window)
		if err != nil {
			if errors.Is(err, omron.ErrUnauthorized) {
				logger.Error("Source rejected the session, aborting", "error", err)
				os.Exit(1)
			}

			logger.Error("Device sync failed", "device", device.Name, "error", err)
			failures++
			continue
		}

		logger.Info("Device sync finished",
			"device", summary.Device,
			"fetched", summary.Fetched,
			"added", summary.Added,
			"skipped", summary.Skipped,
			"deleted", summary.Deleted,
			"failed", summary.Failed)

		if summary.Failed > 0 {
			failures++
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// connectOmron refreshes the stored session and persists the rotated
// refresh token before any measurement is fetched. An authentication
// failure here aborts the run for every device.
func connectOmron(ctx context.Context, settings *config.Settings) (omron.Client, error) {
	client := omron.NewClient(settings.Omron.Server)

	if cloud, ok := client.(*omron.CloudClient); ok {
		cloud.SetEmail(settings.Omron.EmailAddress)
	}

	refreshToken, err := client.Refresh(ctx, settings.Omron.RefreshToken)
	if err != nil {
		return nil, err
	}

	if refreshToken != "" && refreshToken != settings.Omron.RefreshToken {
		settings.Omron.RefreshToken = refreshToken
		if err := settings.Save(); err != nil {
			globals.Logger.Warn("Failed to persist rotated refresh token", "error", err)
		}
	}

	return client, nil
}

func loadRegisteredDevices() ([]*omron.Device, error) {
	var rows []models.Device
	if err := database.DB.Find(&rows).Error; err != nil {
		return nil, err
	}

	var devices []*omron.Device
	for _, row := range rows {
		device, err := row.OmronDevice()
		if err != nil {
			globals.Logger.Warn("Skipping invalid registry entry",
				"name", row.Name, "error", err)
			continue
		}

		devices = append(devices, device)
	}

	return devices, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringArrayVarP(&syncDevices, "device", "d", []string{"ALL"}, "Device name, MAC address or serial (repeatable)")
	syncCmd.Flags().IntVar(&syncDays, "days", 1, "Number of days before today to sync")
	syncCmd.Flags().StringVar(&syncCategory, "category", "", "Restrict to one device category (SCALE or BPM)")
	syncCmd.Flags().BoolVar(&syncOverwrite, "overwrite", false, "Replace measurements that already exist in Garmin Connect")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report decisions without writing anything")
}
