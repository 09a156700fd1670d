package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes a capture device
type DeviceInfo struct {
	ID        string // "capture-N", usable as audio.device
	Name      string
	IsDefault bool
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices enumerates capture devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &DeviceError{Op: "enumerate", Err: fmt.Errorf("failed to initialize malgo context: %w", err)}
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, &DeviceError{Op: "enumerate", Err: fmt.Errorf("failed to enumerate devices: %w", err)}
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        deviceID(i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// DefaultDevice picks the default device, or the first one if none is marked
func DefaultDevice(devices []DeviceInfo) (DeviceInfo, bool) {
	for _, d := range devices {
		if d.IsDefault {
			return d, true
		}
	}
	if len(devices) > 0 {
		return devices[0], true
	}
	return DeviceInfo{}, false
}

// MatchDevice returns the index of selector in devices: an exact id or
// name first, then a case-insensitive name substring.
func MatchDevice(devices []DeviceInfo, selector string) (int, bool) {
	for i, d := range devices {
		if d.ID == selector || d.Name == selector {
			return i, true
		}
	}
	search := strings.ToLower(selector)
	for i, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), search) {
			return i, true
		}
	}
	return -1, false
}
