//go:build windows

package notify

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var procMessageBeep = windows.NewLazySystemDLL("user32.dll").NewProc("MessageBeep")

// mbOK is the default system sound
const mbOK = 0x00000000

// playNative plays the default system sound through user32 MessageBeep
func playNative() error {
	if err := procMessageBeep.Find(); err != nil {
		return err
	}
	ret, _, callErr := procMessageBeep.Call(mbOK)
	if ret == 0 {
		return fmt.Errorf("MessageBeep: %v", callErr)
	}
	return nil
}
