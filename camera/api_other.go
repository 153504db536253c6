//go:build !windows

package camera

import "gocv.io/x/gocv"

const defaultAPI = gocv.VideoCaptureAny
