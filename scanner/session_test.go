package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"barcodescanner/camera"
	"barcodescanner/history"
	"barcodescanner/notify"
	"barcodescanner/types"

	"gocv.io/x/gocv"
)

// fakeSource hands out fakeCaptures and records every open and close
type fakeSource struct {
	openErr error
	handles []*fakeCapture
	events  []string
}

func (s *fakeSource) Open(index int) (camera.Capture, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	c := &fakeCapture{src: s, id: len(s.handles)}
	s.handles = append(s.handles, c)
	s.events = append(s.events, "open")
	return c, nil
}

type fakeCapture struct {
	src     *fakeSource
	id      int
	reads   int
	stale   int
	closed  int
	readErr error
}

func (c *fakeCapture) Read(dst *gocv.Mat) error {
	if c.closed > 0 {
		c.stale++
		return camera.ErrReadFailed
	}
	c.reads++
	return c.readErr
}

func (c *fakeCapture) Close() error {
	c.closed++
	c.src.events = append(c.src.events, "close")
	return nil
}

// fakeDecoder returns the same barcodes for every frame
type fakeDecoder struct {
	barcodes []types.Barcode
	calls    int
}

func (d *fakeDecoder) Decode(frame gocv.Mat) ([]types.Barcode, error) {
	d.calls++
	return d.barcodes, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(offset time.Duration) {
	c.now = testEpoch.Add(offset)
}

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingClipboard struct {
	writes []string
}

func (c *recordingClipboard) WriteAll(text string) error {
	c.writes = append(c.writes, text)
	return nil
}

func (c *recordingClipboard) last() string {
	if len(c.writes) == 0 {
		return ""
	}
	return c.writes[len(c.writes)-1]
}

type countingBeeper struct {
	beeps int
}

func (b *countingBeeper) Beep() { b.beeps++ }

type recordingDisplay struct {
	status, kind string
}

func (d *recordingDisplay) SetStatus(text string) { d.status = text }
func (d *recordingDisplay) SetType(text string)   { d.kind = text }

type harness struct {
	session   *Session
	source    *fakeSource
	decoder   *fakeDecoder
	clock     *fakeClock
	clipboard *recordingClipboard
	beeper    *countingBeeper
	display   *recordingDisplay
	sunk      []types.ScanRecord
}

func newHarness(t *testing.T, barcodes ...types.Barcode) *harness {
	t.Helper()
	h := &harness{
		source:    &fakeSource{},
		decoder:   &fakeDecoder{barcodes: barcodes},
		clock:     &fakeClock{now: testEpoch},
		clipboard: &recordingClipboard{},
		beeper:    &countingBeeper{},
		display:   &recordingDisplay{},
	}
	h.session = NewSession(h.source, h.decoder, history.New(), Options{
		Clipboard: h.clipboard,
		Beeper:    h.beeper,
		Display:   h.display,
		Now:       h.clock.Now,
	})
	h.session.AddSink(notify.SinkFunc(func(r types.ScanRecord) { h.sunk = append(h.sunk, r) }))
	t.Cleanup(h.session.Close)
	return h
}

func qr(payload string) types.Barcode {
	return types.Barcode{Payload: payload, Symbology: "QRCODE", Bounds: types.Rect{X: 1, Y: 1, W: 10, H: 10}}
}

var cam0 = types.NewCameraOption(0)

func TestCooldownScenario(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	steps := []struct {
		at         time.Duration
		wantAccept bool
		wantLog    int
	}{
		{at: 0, wantAccept: true, wantLog: 1},
		{at: 1 * time.Second, wantAccept: false, wantLog: 1},
		{at: 2500 * time.Millisecond, wantAccept: true, wantLog: 2},
	}

	for _, step := range steps {
		h.clock.Set(step.at)
		result := h.session.Tick()

		if got := len(result.Accepted) == 1; got != step.wantAccept {
			t.Errorf("t=%v accepted: got %v, want %v", step.at, got, step.wantAccept)
		}
		if got := h.session.History().Len(); got != step.wantLog {
			t.Errorf("t=%v history: got %d, want %d", step.at, got, step.wantLog)
		}
		if len(result.Barcodes) != 1 {
			t.Errorf("t=%v barcodes: got %d, want 1", step.at, len(result.Barcodes))
		}
	}

	if len(h.clipboard.writes) != 2 || h.clipboard.last() != "A" {
		t.Errorf("clipboard writes: got %v, want [A A]", h.clipboard.writes)
	}
	second, _ := h.session.History().Get(1)
	if !second.Timestamp.Equal(testEpoch.Add(2500 * time.Millisecond)) {
		t.Errorf("second entry timestamp: got %v", second.Timestamp)
	}
	if h.beeper.beeps != 2 {
		t.Errorf("beeps: got %d, want 2", h.beeper.beeps)
	}
}

func TestTwoBarcodesInOneFrame(t *testing.T) {
	tests := []struct {
		name          string
		cooldown      int
		wantPayloads  []string
		wantClipboard string
	}{
		{name: "cooldown 0 accepts both", cooldown: 0, wantPayloads: []string{"X", "Y"}, wantClipboard: "Y"},
		{name: "cooldown 2 accepts first only", cooldown: 2, wantPayloads: []string{"X"}, wantClipboard: "X"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, qr("X"), qr("Y"))
			if err := h.session.Start(&cam0, tc.cooldown); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			result := h.session.Tick()

			entries := h.session.History().Entries()
			if len(entries) != len(tc.wantPayloads) {
				t.Fatalf("history: got %d entries, want %d", len(entries), len(tc.wantPayloads))
			}
			for i, want := range tc.wantPayloads {
				if entries[i].Payload != want {
					t.Errorf("entry %d: got %q, want %q", i, entries[i].Payload, want)
				}
			}
			if len(result.Accepted) != len(tc.wantPayloads) {
				t.Errorf("accepted: got %d, want %d", len(result.Accepted), len(tc.wantPayloads))
			}
			if got := h.clipboard.last(); got != tc.wantClipboard {
				t.Errorf("clipboard: got %q, want %q", got, tc.wantClipboard)
			}
			if len(result.Barcodes) != 2 {
				t.Errorf("all barcodes are still reported for drawing: got %d", len(result.Barcodes))
			}
		})
	}
}

func TestCooldownAcceptance(t *testing.T) {
	tests := []struct {
		name     string
		cooldown int
		times    []time.Duration
		want     []bool
	}{
		{
			name:     "zero cooldown accepts everything",
			cooldown: 0,
			times:    []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond},
			want:     []bool{true, true, true},
		},
		{
			name:     "boundary is inclusive",
			cooldown: 1,
			times:    []time.Duration{0, 999 * time.Millisecond, time.Second, 2 * time.Second},
			want:     []bool{true, false, true, true},
		},
		{
			name:     "window measured from last accepted",
			cooldown: 3,
			times:    []time.Duration{0, 2 * time.Second, 4 * time.Second, 5 * time.Second, 7 * time.Second},
			want:     []bool{true, false, true, false, true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, qr("A"))
			if err := h.session.Start(&cam0, tc.cooldown); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			for i, at := range tc.times {
				h.clock.Set(at)
				got := len(h.session.Tick().Accepted) > 0
				if got != tc.want[i] {
					t.Errorf("detection at %v: got accepted=%v, want %v", at, got, tc.want[i])
				}
			}
		})
	}
}

func TestSetCooldownAppliesToNextTick(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 10); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	h.session.Tick()
	h.clock.Set(time.Second)
	if len(h.session.Tick().Accepted) != 0 {
		t.Fatal("accepted inside a 10s cooldown")
	}

	h.session.SetCooldown(-4)
	if got := h.session.State().CooldownSeconds; got != 0 {
		t.Errorf("negative cooldown: got %d, want 0", got)
	}
	if len(h.session.Tick().Accepted) != 1 {
		t.Error("cooldown change not applied on the next tick")
	}
}

func TestAcceptedScanNotifiesEverySink(t *testing.T) {
	h := newHarness(t, types.Barcode{Payload: "4006381333931", Symbology: "EAN13"})
	cam := types.NewCameraOption(3)
	if err := h.session.Start(&cam, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	h.session.Tick()

	if got := h.session.Status(); got != "Copied: 4006381333931" {
		t.Errorf("status: got %q", got)
	}
	if got := h.session.Type(); got != "Type: EAN13" {
		t.Errorf("type: got %q", got)
	}
	if h.display.status != h.session.Status() || h.display.kind != h.session.Type() {
		t.Errorf("display: got %q / %q", h.display.status, h.display.kind)
	}
	if len(h.sunk) != 1 {
		t.Fatalf("sink records: got %d, want 1", len(h.sunk))
	}
	record := h.sunk[0]
	if record.CameraIndex != 3 || record.RunID == "" || record.RunID != h.session.State().RunID {
		t.Errorf("sink record: got %+v", record)
	}
}

func TestInitialType(t *testing.T) {
	h := newHarness(t)
	if got := h.session.Type(); got != "Type: --" {
		t.Errorf("initial type: got %q", got)
	}
}

func TestReadFailureKeepsRunning(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.source.handles[0].readErr = camera.ErrReadFailed

	result := h.session.Tick()
	if !errors.Is(result.Err, camera.ErrReadFailed) {
		t.Errorf("tick error: got %v, want ErrReadFailed", result.Err)
	}
	if !h.session.Running() {
		t.Error("session stopped after a read failure")
	}
	if got := h.session.Status(); got != StatusReadFailed {
		t.Errorf("status: got %q, want %q", got, StatusReadFailed)
	}
	if h.decoder.calls != 0 {
		t.Errorf("decoder called on failed read")
	}

	// Next tick retries on the same handle
	h.source.handles[0].readErr = nil
	result = h.session.Tick()
	if result.Err != nil || len(result.Accepted) != 1 {
		t.Errorf("retry tick: got err=%v accepted=%d", result.Err, len(result.Accepted))
	}
	if len(h.source.handles) != 1 {
		t.Errorf("handles opened: got %d, want 1", len(h.source.handles))
	}
}

func TestStartFailures(t *testing.T) {
	tests := []struct {
		name       string
		camera     *types.CameraOption
		openErr    error
		wantErr    error
		wantStatus string
	}{
		{
			name:       "no camera selected",
			camera:     nil,
			wantErr:    ErrNoCameraFound,
			wantStatus: StatusNoCameraSelected,
		},
		{
			name:       "device unavailable",
			camera:     &cam0,
			openErr:    camera.ErrCameraUnavailable,
			wantErr:    camera.ErrCameraUnavailable,
			wantStatus: StatusCameraUnavailable,
		},
		{
			name:       "unexpected open error",
			camera:     &cam0,
			openErr:    errors.New("driver crashed"),
			wantErr:    camera.ErrCameraUnavailable,
			wantStatus: StatusCameraUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, qr("A"))
			h.source.openErr = tc.openErr

			err := h.session.Start(tc.camera, 2)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Start error: got %v, want %v", err, tc.wantErr)
			}
			if h.session.Running() {
				t.Error("session running after failed start")
			}
			if got := h.session.Status(); got != tc.wantStatus {
				t.Errorf("status: got %q, want %q", got, tc.wantStatus)
			}
			if result := h.session.Tick(); result.Ran {
				t.Error("idle session ticked")
			}
		})
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, qr("A"))

	// Stopping an idle session changes nothing
	h.session.Stop()
	if got := h.session.Status(); got != "" {
		t.Errorf("status after idle stop: got %q, want empty", got)
	}

	if err := h.session.Start(&cam0, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.session.Stop()
	h.session.Stop()

	if h.session.Running() {
		t.Error("session still running")
	}
	if got := h.source.handles[0].closed; got != 1 {
		t.Errorf("handle closed %d times, want 1", got)
	}
	if got := h.session.Status(); got != StatusStopped {
		t.Errorf("status: got %q, want %q", got, StatusStopped)
	}
	if result := h.session.Tick(); result.Ran {
		t.Error("tick ran after stop")
	}
}

func TestRestartUsesFreshHandle(t *testing.T) {
	h := newHarness(t, qr("A"))

	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.session.Tick()
	h.session.Stop()
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	h.session.Tick()

	// Start while running performs a full stop first
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("start while running failed: %v", err)
	}
	h.session.Tick()

	if len(h.source.handles) != 3 {
		t.Fatalf("handles opened: got %d, want 3", len(h.source.handles))
	}
	for i, c := range h.source.handles {
		if c.stale != 0 {
			t.Errorf("handle %d read after close %d times", i, c.stale)
		}
		if c.reads != 1 {
			t.Errorf("handle %d reads: got %d, want 1", i, c.reads)
		}
	}

	want := []string{"open", "close", "open", "close", "open"}
	if len(h.source.events) != len(want) {
		t.Fatalf("events: got %v, want %v", h.source.events, want)
	}
	for i := range want {
		if h.source.events[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, h.source.events[i], want[i])
		}
	}
}

func TestTickEpochDropsStaleTicks(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	scheduled := h.session.Epoch()

	h.session.Stop()
	if result := h.session.TickEpoch(scheduled); result.Ran {
		t.Error("tick scheduled before stop ran")
	}

	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if result := h.session.TickEpoch(scheduled); result.Ran {
		t.Error("tick from the previous run ran on the new run")
	}
	if got := h.source.handles[1].reads; got != 0 {
		t.Errorf("new handle reads: got %d, want 0", got)
	}

	if result := h.session.TickEpoch(h.session.Epoch()); !result.Ran {
		t.Error("current tick did not run")
	}
}

func TestCopySelected(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.session.Tick()
	h.decoder.barcodes = []types.Barcode{qr("B")}
	h.session.Tick()

	writes := len(h.clipboard.writes)
	beeps := h.beeper.beeps

	err := h.session.CopySelected(-1)
	if !errors.Is(err, ErrNoSelection) {
		t.Errorf("no selection: got %v, want ErrNoSelection", err)
	}
	if got := h.session.Status(); got != StatusNoSelection {
		t.Errorf("status: got %q, want %q", got, StatusNoSelection)
	}
	if len(h.clipboard.writes) != writes {
		t.Error("clipboard changed without a selection")
	}

	if err := h.session.CopySelected(0); err != nil {
		t.Fatalf("CopySelected(0): %v", err)
	}
	if got := h.clipboard.last(); got != "A" {
		t.Errorf("clipboard: got %q, want A", got)
	}
	if got := h.session.Status(); got != "Copied selection: A" {
		t.Errorf("status: got %q", got)
	}
	if h.beeper.beeps != beeps+1 {
		t.Errorf("beeps: got %d, want %d", h.beeper.beeps, beeps+1)
	}

	if err := h.session.CopySelected(5); !errors.Is(err, ErrNoSelection) {
		t.Errorf("out of range: got %v, want ErrNoSelection", err)
	}
}

func TestRun(t *testing.T) {
	h := newHarness(t, qr("A"))
	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticks := 0
	execCalls := 0
	exec := func(f func()) {
		execCalls++
		f()
	}
	err := Run(ctx, h.session, time.Millisecond, exec, func(r TickResult) {
		ticks++
		if ticks == 3 {
			cancel()
		}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error: got %v, want context.Canceled", err)
	}
	if ticks != 3 {
		t.Errorf("ticks: got %d, want 3", ticks)
	}
	if execCalls != ticks {
		t.Errorf("exec calls: got %d, want %d", execCalls, ticks)
	}
}

func TestRun_IdleSessionSkipsCallback(t *testing.T) {
	h := newHarness(t, qr("A"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	called := false
	err := Run(ctx, h.session, time.Millisecond, nil, func(TickResult) { called = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error: got %v, want DeadlineExceeded", err)
	}
	if called {
		t.Error("onTick called for an idle session")
	}
}

func TestReportInitializing(t *testing.T) {
	h := newHarness(t)

	h.session.ReportInitializing()
	if got := h.display.status; got != StatusInitializing {
		t.Errorf("idle status: got %q, want %q", got, StatusInitializing)
	}

	if err := h.session.Start(&cam0, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	h.session.ReportInitializing()
	if got := h.session.Status(); got != StatusScanning {
		t.Errorf("running status: got %q, want %q", got, StatusScanning)
	}

	// Scanning keeps going and the status stays put on empty ticks
	h.session.Tick()
	if got := h.display.status; got != StatusScanning {
		t.Errorf("status after tick: got %q, want %q", got, StatusScanning)
	}
}
