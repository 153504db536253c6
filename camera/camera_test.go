package camera

import (
	"errors"
	"testing"

	"barcodescanner/types"

	"gocv.io/x/gocv"
)

// fakeSource opens devices according to a per-index behaviour table
type fakeSource struct {
	openFails map[int]bool
	readFails map[int]bool
	opened    []int
	closed    []int
}

func (s *fakeSource) Open(index int) (Capture, error) {
	if s.openFails[index] {
		return nil, ErrCameraUnavailable
	}
	s.opened = append(s.opened, index)
	return &fakeCapture{src: s, index: index}, nil
}

type fakeCapture struct {
	src   *fakeSource
	index int
}

func (c *fakeCapture) Read(dst *gocv.Mat) error {
	if c.src.readFails[c.index] {
		return ErrReadFailed
	}
	return nil
}

func (c *fakeCapture) Close() error {
	c.src.closed = append(c.src.closed, c.index)
	return nil
}

func TestEnumerate(t *testing.T) {
	tests := []struct {
		name      string
		probe     int
		openFails map[int]bool
		readFails map[int]bool
		want      []int
	}{
		{
			name:  "all devices present",
			probe: 3,
			want:  []int{0, 1, 2},
		},
		{
			name:      "open failures are skipped",
			probe:     5,
			openFails: map[int]bool{0: true, 3: true},
			want:      []int{1, 2, 4},
		},
		{
			name:      "read failures are skipped",
			probe:     4,
			readFails: map[int]bool{1: true},
			want:      []int{0, 2, 3},
		},
		{
			name:      "nothing available",
			probe:     DefaultProbeCount,
			openFails: map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true},
			want:      []int{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{openFails: tc.openFails, readFails: tc.readFails}
			got := Enumerate(src, tc.probe)

			if len(got) != len(tc.want) {
				t.Fatalf("Enumerate: got %d options, want %d (%v)", len(got), len(tc.want), got)
			}
			for i, opt := range got {
				if opt.Index != tc.want[i] {
					t.Errorf("option %d: got index %d, want %d", i, opt.Index, tc.want[i])
				}
				if i > 0 && got[i-1].Index >= opt.Index {
					t.Errorf("options not ascending at %d: %d then %d", i, got[i-1].Index, opt.Index)
				}
			}

			// Every opened probe handle must be released
			if len(src.closed) != len(src.opened) {
				t.Errorf("closed %d handles, opened %d", len(src.closed), len(src.opened))
			}
		})
	}
}

func TestEnumerate_Labels(t *testing.T) {
	src := &fakeSource{openFails: map[int]bool{0: true}}
	got := Enumerate(src, 3)

	want := []string{"Camera 1", "Camera 2"}
	for i, opt := range got {
		if opt.Label != want[i] {
			t.Errorf("label %d: got %q, want %q", i, opt.Label, want[i])
		}
	}
}

func TestDeviceCapture_CloseIsIdempotent(t *testing.T) {
	c := &deviceCapture{index: 7}
	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if err := c.Read(&mat); !errors.Is(err, ErrReadFailed) {
		t.Errorf("Read after Close: got %v, want ErrReadFailed", err)
	}
}

func TestDefaultSelection(t *testing.T) {
	options := []types.CameraOption{
		types.NewCameraOption(0),
		types.NewCameraOption(2),
		types.NewCameraOption(3),
	}

	tests := []struct {
		name    string
		options []types.CameraOption
		device  int
		want    int
	}{
		{name: "no preference", options: options, device: -1, want: 0},
		{name: "first device", options: options, device: 0, want: 0},
		{name: "later device", options: options, device: 3, want: 2},
		{name: "not detected", options: options, device: 1, want: 0},
		{name: "empty", device: 0, want: -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultSelection(tc.options, tc.device); got != tc.want {
				t.Errorf("DefaultSelection: got %d, want %d", got, tc.want)
			}
		})
	}
}
