//go:build !windows

package notify

import "errors"

// playNative has no native sound outside Windows; callers fall back to the bell
func playNative() error {
	return errors.New("no native alert sound on this platform")
}
