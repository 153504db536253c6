package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"barcodescanner/camera"
	"barcodescanner/config"
	"barcodescanner/database"
	"barcodescanner/imageprocessor"
	"barcodescanner/notify"
	"barcodescanner/scanner"
	"barcodescanner/signalhandler"
	"barcodescanner/types"
	"barcodescanner/ui/gui"
	"barcodescanner/ui/tui"
	"barcodescanner/utils"

	"github.com/spf13/cobra"
)

var (
	scanDuration time.Duration
	runFilter    string
	historyLimit int
	workerCount  int
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop scanner window",
	Args:  cobra.NoArgs,
	RunE:  runGUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the scanner in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan headless, printing accepted scans to stdout",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List cameras that deliver frames",
	Args:  cobra.NoArgs,
	RunE:  runCameras,
}

var decodeCmd = &cobra.Command{
	Use:   "decode PATH...",
	Short: "Decode barcodes in image files or folders",
	Long: fmt.Sprintf(`Decode barcodes in image files. Folders are searched recursively for
files with a supported extension (%s).`, strings.Join(imageprocessor.GetSupportedExtensions(), " ")),
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List scans stored in the archive",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration, with any flags applied",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var forceWrite bool

func init() {
	configInitCmd.Flags().BoolVar(&forceWrite, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	scanCmd.Flags().DurationVar(&scanDuration, "duration", 0, "Stop after this long (default: until interrupted)")
	decodeCmd.Flags().IntVar(&workerCount, "workers", 0, "Concurrent decoders (default: based on CPU count)")
	historyCmd.Flags().StringVar(&runFilter, "run", "", "Only show scans from this run id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum number of scans to show")
}

// runGUI opens the desktop window; closing it ends the process
func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg, notify.NewTraceSink(os.Stdout))
	if err != nil {
		return err
	}
	defer rt.Close()

	app := gui.NewApp(rt.session, gui.Options{
		TickInterval:    cfg.TickInterval,
		CooldownSeconds: cfg.CooldownSeconds,
		AutoStart:       cfg.AutoStart,
		DisplayWidth:    cfg.Display.Width,
		DisplayHeight:   cfg.Display.Height,
		Camera:          cameraFlag,
		Enumerate:       rt.enumerate,
	})
	app.Run()
	return nil
}

// runTUI runs the terminal interface; trace lines are printed by the program itself
func runTUI(cmd *cobra.Command, args []string) error {
	if !tui.IsTTY() {
		return fmt.Errorf("stdout is not a terminal; use 'barcodescanner scan' instead")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	return tui.Run(tui.NewModel(rt.session, tui.Options{
		TickInterval:    cfg.TickInterval,
		CooldownSeconds: cfg.CooldownSeconds,
		AutoStart:       cfg.AutoStart,
		Camera:          cameraFlag,
		Enumerate:       rt.enumerate,
	}))
}

// runScan scans the first (or requested) camera until interrupted
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalhandler.SetupHandler(cmd.Context())
	defer cancel()
	if scanDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, scanDuration)
		defer cancel()
	}

	rt, err := newRuntime(cfg, notify.NewTraceSink(os.Stdout))
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.session.ReportInitializing()
	fmt.Fprintln(os.Stderr, rt.session.Status())

	cameras := rt.enumerate()
	if len(cameras) == 0 {
		return rt.session.ReportNoCameras()
	}
	selected := cameras[camera.DefaultSelection(cameras, cameraFlag)]
	if err := rt.session.Start(&selected, cfg.CooldownSeconds); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s (cooldown %ds, run %s)\n",
		rt.session.Status(), selected.Label, cfg.CooldownSeconds, rt.session.State().RunID)

	// Set up progress tracking
	results := make(chan scanner.TickSummary, 100)
	tracker := scanner.NewProgressTracker(os.Stderr, 500*time.Millisecond, results)
	startTime := time.Now()

	err = scanner.Run(ctx, rt.session, cfg.TickInterval, nil, func(r scanner.TickResult) {
		results <- scanner.Summarize(r)
	})

	rt.session.Stop()
	close(results)
	stats := tracker.Stop()
	scanner.PrintCompletionStats(os.Stderr, stats, time.Since(startTime))
	if last, ok := rt.session.History().Last(); ok {
		fmt.Fprintf(os.Stderr, "Last scan: %s\n", last.TraceLine())
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// runCameras prints the enumeration result
func runCameras(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	cameras := rt.enumerate()
	if len(cameras) == 0 {
		return fmt.Errorf("%s: %w", scanner.StatusNoCameras, scanner.ErrNoCameraFound)
	}
	for _, opt := range cameras {
		fmt.Printf("%d\t%s\n", opt.Index, opt.Label)
	}
	return nil
}

// runDecode decodes still images and prints one trace line per barcode
func runDecode(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	ctx, cancel := signalhandler.SetupHandler(cmd.Context())
	defer cancel()

	workers := workerCount
	if workers < 1 {
		workers = signalhandler.GetOptimalProcs()
	}

	results, err := scanner.DecodeImages(ctx, scanner.BatchOptions{
		Paths:      args,
		MaxWorkers: workers,
		DebugMode:  debugMode,
	})
	if err != nil {
		return err
	}

	trace := notify.NewTraceSink(os.Stdout)
	failures, found := 0, 0
	for _, result := range results {
		if !result.Success {
			failures++
			fmt.Fprintf(os.Stderr, "%s: %v\n", result.Path, result.Error)
			continue
		}
		if len(result.Barcodes) == 0 {
			fmt.Fprintf(os.Stderr, "%s: no barcode found\n", result.Path)
			continue
		}

		for _, barcode := range result.Barcodes {
			found++
			trace.Notify(types.ScanRecord{
				Timestamp: time.Now(),
				Symbology: barcode.Symbology,
				Payload:   barcode.Payload,
			})
		}
	}

	fmt.Fprintf(os.Stderr, "Decoded %d barcode(s) from %d image(s).\n", found, len(results)-failures)
	if failures > 0 {
		return fmt.Errorf("%d image(s) could not be decoded", failures)
	}
	return nil
}

// runHistory lists archived scans with summary statistics
func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.ArchivePath
	if path == "" {
		path = utils.GetDefaultArchivePath()
	}
	if !utils.FileExists(path) {
		return fmt.Errorf("no archive at %s (enable it with --archive or archive_path)", path)
	}

	archive, err := database.OpenArchive(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer archive.Close()
	db := archive.DB()

	records, err := database.QueryScans(db, runFilter, historyLimit)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Printf("%s\t%s\n", record.RunID, record.TraceLine())
	}

	stats, err := database.GetScanStats(db, runFilter)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d scan(s), %d unique payload(s), %d run(s)\n", stats.TotalScans, stats.UniquePayloads, stats.Runs)
	return nil
}

// runConfigInit writes a config file that later runs pick up
func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = utils.GetDefaultConfigPath()
	}
	if utils.FileExists(path) && !forceWrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	applyFlags(cmd, cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := config.WriteConfig(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
