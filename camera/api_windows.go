package camera

import "gocv.io/x/gocv"

// DirectShow opens quickly and reports failures without long timeouts
const defaultAPI = gocv.VideoCaptureDshow
