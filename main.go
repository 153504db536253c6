package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"barcodescanner/camera"
	"barcodescanner/config"
	"barcodescanner/database"
	"barcodescanner/decoder"
	"barcodescanner/history"
	"barcodescanner/logging"
	"barcodescanner/notify"
	"barcodescanner/scanner"
	"barcodescanner/types"
	"barcodescanner/utils"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	cooldownFlag int
	archiveFlag  string
	debugMode    bool
	logPath      string
	noBeep       bool
	noClipboard  bool
	cameraFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "barcodescanner",
	Short: "Scan barcodes and QR codes from a webcam",
	Long: `barcodescanner reads frames from a local camera, decodes every barcode it
sees and copies accepted scans to the clipboard. Without a subcommand it opens
the desktop window.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runGUI,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logging.CloseLogger()
		os.Exit(1)
	}
	logging.CloseLogger()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Path to config file (default: %s when present)", utils.GetDefaultConfigPath()))
	rootCmd.PersistentFlags().IntVar(&cooldownFlag, "cooldown", 2, "Seconds between accepted scans (0-10)")
	rootCmd.PersistentFlags().StringVar(&archiveFlag, "archive", "", "Store accepted scans in this sqlite database")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode (logs detailed information)")
	rootCmd.PersistentFlags().StringVar(&logPath, "logfile", "", fmt.Sprintf("Log file path (default: %s)", utils.DefaultLogName))
	rootCmd.PersistentFlags().BoolVar(&noBeep, "no-beep", false, "Do not play a sound on accepted scans")
	rootCmd.PersistentFlags().BoolVar(&noClipboard, "no-clipboard", false, "Do not copy accepted scans to the clipboard")

	for _, cmd := range []*cobra.Command{guiCmd, tuiCmd, scanCmd} {
		cmd.Flags().IntVar(&cameraFlag, "camera", -1, "Camera index to use (default: first detected)")
	}
	rootCmd.Flags().IntVar(&cameraFlag, "camera", -1, "Camera index to use (default: first detected)")

	rootCmd.AddCommand(guiCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(camerasCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig merges defaults, the config file and command-line flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := configPath
	if path == "" && utils.FileExists(utils.GetDefaultConfigPath()) {
		path = utils.GetDefaultConfigPath()
	}
	if path != "" {
		var err error
		cfg, err = config.ReadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyFlags(cmd, cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	// Setup debug logging if enabled
	if debugMode || cfg.LogFile != "" {
		path := cfg.LogFile
		if path == "" {
			path = utils.DefaultLogName
		}
		if err := logging.SetupLogger(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
		}
	}

	return cfg, nil
}

// applyFlags overrides cfg with the flags given on the command line
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("cooldown") {
		cfg.CooldownSeconds = cooldownFlag
	}
	if flags.Changed("archive") {
		cfg.ArchivePath = archiveFlag
	}
	if flags.Changed("logfile") {
		cfg.LogFile = logPath
	}
	if noBeep {
		cfg.Beep = false
	}
	if noClipboard {
		cfg.Clipboard = false
	}
}

// openArchive initializes the archive database with retry logic
func openArchive(path string) (*database.Archive, error) {
	const maxRetries = 3

	var err error
	for i := 0; i < maxRetries; i++ {
		var archive *database.Archive
		archive, err = database.OpenArchive(path)
		if err == nil {
			logging.LogInfo("Archiving scans to %s", path)
			return archive, nil
		}

		if i < maxRetries-1 {
			logging.LogWarning("Error opening archive (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		}
	}
	return nil, fmt.Errorf("opening archive %s after %d attempts: %w", path, maxRetries, err)
}

// scanRuntime bundles what every interactive command needs
type scanRuntime struct {
	cfg     *config.Config
	source  *camera.DeviceSource
	session *scanner.Session
	archive *database.Archive
	beeper  *notify.SystemBeeper
}

// newRuntime builds a session wired to the configured sinks
func newRuntime(cfg *config.Config, sinks ...notify.Sink) (*scanRuntime, error) {
	rt := &scanRuntime{
		cfg:    cfg,
		source: camera.NewDeviceSource(),
	}

	opts := scanner.Options{
		DisplayWidth:  cfg.Display.Width,
		DisplayHeight: cfg.Display.Height,
		Sinks:         sinks,
	}
	if cfg.Clipboard {
		opts.Clipboard = notify.SystemClipboard{}
	}
	if cfg.Beep {
		rt.beeper = notify.NewSystemBeeper()
		opts.Beeper = rt.beeper
	}

	rt.session = scanner.NewSession(rt.source, decoder.New(), history.New(), opts)

	if cfg.ArchivePath != "" {
		archive, err := openArchive(cfg.ArchivePath)
		if err != nil {
			rt.session.Close()
			return nil, err
		}
		rt.archive = archive
		rt.session.AddSink(archive)
	}
	return rt, nil
}

// enumerate lists the cameras that deliver frames
func (rt *scanRuntime) enumerate() []types.CameraOption {
	options := camera.Enumerate(rt.source, rt.cfg.ProbeCount)
	logging.DebugLog("Detected %d camera(s)", len(options))
	return options
}

// Close releases the session and the archive once the last beep has played
func (rt *scanRuntime) Close() {
	rt.session.Close()
	if rt.beeper != nil {
		rt.beeper.Wait()
	}
	if rt.archive != nil {
		rt.archive.Close()
	}
}
