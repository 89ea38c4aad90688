package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/omramin/omramin/internal/database"
	"github.com/omramin/omramin/internal/globals"
	"github.com/omramin/omramin/internal/models"
	"github.com/omramin/omramin/omron"
)

var (
	deviceMACAddr  string
	deviceName     string
	deviceCategory string
	deviceUser     int
	deviceDisabled bool
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"d", "devices"},
	Short:   "Manage the paired-device registry",
	Long:    `Commands for listing and editing the devices measurements are synced for.`,
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all registered devices",
	Run:     runDeviceList,
}

var deviceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a device by MAC address",
	Long: `Register a paired device. The serial number used against the OMRON
API is derived from the MAC address.

Examples:
  omramin device add --mac 00:5F:BF:12:34:56 --category SCALE --user 1
  omramin device add --mac 00:5F:BF:AB:CD:EF --category BPM --name bedroom-bpm`,
	Run: runDeviceAdd,
}

var deviceSetCmd = &cobra.Command{
	Use:   "set <name_or_mac>",
	Short: "Update a registered device",
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceSet,
}

var deviceRemoveCmd = &cobra.Command{
	Use:     "remove <name_or_mac>",
	Aliases: []string{"rm"},
	Short:   "Remove a device from the registry",
	Args:    cobra.ExactArgs(1),
	Run:     runDeviceRemove,
}

func runDeviceList(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Fetching devices from database")

	var devices []models.Device
	err := database.DB.Find(&devices).Error
	if err != nil {
		globals.Logger.Error("Failed to fetch devices", "error", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to fetch devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No devices registered.")
		return
	}

	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tMAC ADDRESS\tSERIAL\tCATEGORY\tUSER\tENABLED")
	fmt.Fprintln(w, "----\t-----------\t------\t--------\t----\t-------")

	for _, device := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n",
			device.Name,
			device.MACAddress,
			omron.MACToSerial(device.MACAddress),
			device.Category,
			device.User,
			device.Enabled,
		)
	}

	globals.Logger.Debug("Device list completed", "count", len(devices))
}

func runDeviceAdd(cmd *cobra.Command, args []string) {
	// Validate through the registry entry constructor before persisting
	// anything, so a malformed device never reaches the registry.
	entry, err := omron.NewDevice(deviceName, deviceMACAddr, deviceCategory, deviceUser, !deviceDisabled)
	if err != nil {
		globals.Logger.Error("Invalid device", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	device := models.Device{
		Name:       entry.Name,
		MACAddress: entry.MACAddr,
		Category:   entry.Category.String(),
		User:       entry.User,
		Enabled:    entry.Enabled,
	}

	if err := database.DB.Create(&device).Error; err != nil {
		globals.Logger.Error("Failed to register device", "error", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to register device: %v\n", err)
		os.Exit(1)
	}

	globals.Logger.Info("Device registered",
		"name", device.Name, "mac", device.MACAddress, "serial", entry.Serial())
}

func runDeviceSet(cmd *cobra.Command, args []string) {
	device, err := findDevice(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cmd.Flags().Changed("name") {
		device.Name = deviceName
	}
	if cmd.Flags().Changed("category") {
		device.Category = deviceCategory
	}
	if cmd.Flags().Changed("user") {
		device.User = deviceUser
	}
	if cmd.Flags().Changed("disabled") {
		device.Enabled = !deviceDisabled
	}

	if _, err := device.OmronDevice(); err != nil {
		globals.Logger.Error("Invalid device", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := database.DB.Save(device).Error; err != nil {
		globals.Logger.Error("Failed to update device", "error", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to update device: %v\n", err)
		os.Exit(1)
	}

	globals.Logger.Info("Device updated", "name", device.Name)
}

func runDeviceRemove(cmd *cobra.Command, args []string) {
	device, err := findDevice(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := database.DB.Delete(device).Error; err != nil {
		globals.Logger.Error("Failed to remove device", "error", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to remove device: %v\n", err)
		os.Exit(1)
	}

	globals.Logger.Info("Device removed", "name", device.Name)
}

func findDevice(identifier string) (*models.Device, error) {
	var device models.Device
	err := database.DB.
		Where("name = ? OR mac_address = ?", identifier, identifier).
		First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no device found matching %q", identifier)
	}
	if err != nil {
		return nil, err
	}

	return &device, nil
}

func init() {
	rootCmd.AddCommand(deviceCmd)

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceSetCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)

	for _, cmd := range []*cobra.Command{deviceAddCmd, deviceSetCmd} {
		cmd.Flags().StringVar(&deviceMACAddr, "mac", "", "MAC address of the device")
		cmd.Flags().StringVar(&deviceName, "name", "", "Display name (defaults to the derived serial)")
		cmd.Flags().StringVar(&deviceCategory, "category", "SCALE", "Device category: SCALE or BPM")
		cmd.Flags().IntVar(&deviceUser, "user", 1, "User slot on the device (1-4)")
		cmd.Flags().BoolVar(&deviceDisabled, "disabled", false, "Register the device without enabling sync")
	}

	deviceAddCmd.MarkFlagRequired("mac")
}
