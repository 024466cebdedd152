// Package camera wraps a V4L2/OpenCV video device for EchoGuide.
//
// It provides start/stop lifecycle management and single-frame capture. The
// handle is lazily opened on Start and guarded by a mutex so repeated Start
// and Stop calls are safe.
package camera

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Handler manages one camera device for single-frame captures.
type Handler struct {
	mu       sync.Mutex
	deviceID int
	capture  *gocv.VideoCapture
}

// NewHandler creates a Handler for the given video device index.
func NewHandler(deviceID int) *Handler {
	return &Handler{deviceID: deviceID}
}

// Start opens the camera device if it is not already open. A failure here is
// fatal to the interaction flow and propagates to the HTTP boundary.
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capture != nil && h.capture.IsOpened() {
		return nil
	}
	cap, err := gocv.OpenVideoCapture(h.deviceID)
	if err != nil {
		slog.Error("Camera.Start: failed to open device", "error", err, "device", h.deviceID)
		return fmt.Errorf("camera not available: %w", err)
	}
	if !cap.IsOpened() {
		cap.Close()
		slog.Error("Camera.Start: device did not open", "device", h.deviceID)
		return fmt.Errorf("camera not available: ensure it is connected and not in use")
	}
	h.capture = cap
	slog.Info("Camera.Start: camera ready", "device", h.deviceID)
	return nil
}

// Capture reads one frame from the running camera and returns it as an
// image.Image. Returns an error if the camera is not started or the frame
// cannot be read.
func (h *Handler) Capture() (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capture == nil || !h.capture.IsOpened() {
		return nil, fmt.Errorf("camera is not running")
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := h.capture.Read(&mat); !ok || mat.Empty() {
		slog.Warn("Camera.Capture: failed to read frame", "device", h.deviceID)
		return nil, fmt.Errorf("failed to capture frame from camera")
	}
	img, err := mat.ToImage()
	if err != nil {
		slog.Error("Camera.Capture: failed to convert frame", "error", err)
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	slog.Debug("Camera.Capture: frame captured", "device", h.deviceID)
	return img, nil
}

// Stop releases the camera device. Safe to call when already stopped.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capture != nil {
		if err := h.capture.Close(); err != nil {
			slog.Warn("Camera.Stop: error closing device", "error", err)
		} else {
			slog.Info("Camera.Stop: camera closed", "device", h.deviceID)
		}
		h.capture = nil
	}
}
