package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emmett/murmur/internal/audio"
)

// ErrDeviceNotFound is returned when audio.device matches no capture device.
var ErrDeviceNotFound = errors.New("audio device not found")

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	list func() ([]audio.DeviceInfo, error)
	out  io.Writer
}

// NewDeviceManager lists devices through malgo and prints to out, or
// stdout when out is nil.
func NewDeviceManager(out io.Writer) *DeviceManager {
	if out == nil {
		out = os.Stdout
	}
	return &DeviceManager{list: audio.ListDevices, out: out}
}

// ListDevices prints all capture devices
func (dm *DeviceManager) ListDevices() error {
	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return nil
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))
	for _, device := range devices {
		fmt.Fprintf(dm.out, "  %s\n", device)
	}
	fmt.Fprintln(dm.out)
	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  murmur --device %q\n", devices[0].Name)
	return nil
}

// SelectDevice resolves name against device ids, exact names and then
// case-insensitive name substrings. An empty name picks the default.
func (dm *DeviceManager) SelectDevice(name string) (audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return audio.DeviceInfo{}, fmt.Errorf("failed to list devices: %w", err)
	}

	if name == "" {
		if d, ok := audio.DefaultDevice(devices); ok {
			return d, nil
		}
		return audio.DeviceInfo{}, fmt.Errorf("%w: no capture devices", ErrDeviceNotFound)
	}

	if i, ok := audio.MatchDevice(devices, name); ok {
		return devices[i], nil
	}

	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.String())
	}
	return audio.DeviceInfo{}, fmt.Errorf("%w: %q (available: %s)", ErrDeviceNotFound, name, strings.Join(names, ", "))
}
