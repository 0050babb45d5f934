package audio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

// stubDevices swaps the PortAudio device queries for one test so the
// selection logic runs without hardware.
func stubDevices(t *testing.T, infos []*portaudio.DeviceInfo) {
	t.Helper()
	origDevices := paDevicesFunc
	origIn := paDefaultInputDeviceFunc
	origOut := paDefaultOutputDeviceFunc
	t.Cleanup(func() {
		paDevicesFunc = origDevices
		paDefaultInputDeviceFunc = origIn
		paDefaultOutputDeviceFunc = origOut
	})
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return infos, nil
	}
}

func fakeDeviceSet() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Fake Speakers", MaxInputChannels: 0, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "Fake Microphone", MaxInputChannels: 2, MaxOutputChannels: 0, DefaultSampleRate: 48000},
		{Name: "Fake Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}
}

func TestHostDevices(t *testing.T) {
	stubDevices(t, fakeDeviceSet())

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	wantNames := []string{"Fake Speakers", "Fake Microphone", "Fake Interface"}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != wantNames[i] {
			t.Errorf("Device %d name = %q, want %q", i, d.Name, wantNames[i])
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	stubDevices(t, fakeDeviceSet())

	t.Run("Valid input device", func(t *testing.T) {
		dev, err := InputDevice(1)
		if err != nil {
			t.Fatalf("InputDevice(1) error: %v", err)
		}
		if dev.Name != "Fake Microphone" {
			t.Errorf("Name = %q, want %q", dev.Name, "Fake Microphone")
		}
	})

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 7, "invalid device ID"},
		{"Non-input device", 0, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDeviceDefault(t *testing.T) {
	stubDevices(t, fakeDeviceSet())
	want := &portaudio.DeviceInfo{Name: "System Default Mic", MaxInputChannels: 1}
	paDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return want, nil
	}

	dev, err := InputDevice(-1)
	if err != nil {
		t.Fatalf("InputDevice(-1) error: %v", err)
	}
	if dev != want {
		t.Errorf("InputDevice(-1) = %v, want the default device", dev)
	}
}

func TestOutputDevice(t *testing.T) {
	stubDevices(t, fakeDeviceSet())

	dev, err := OutputDevice(0)
	if err != nil {
		t.Fatalf("OutputDevice(0) error: %v", err)
	}
	if dev.Name != "Fake Speakers" {
		t.Errorf("Name = %q, want %q", dev.Name, "Fake Speakers")
	}

	if _, err := OutputDevice(1); err == nil {
		t.Error("expected error for input-only device")
	} else if !strings.Contains(err.Error(), "does not support output") {
		t.Errorf("Error = %q, want output support complaint", err.Error())
	}

	want := &portaudio.DeviceInfo{Name: "System Default Out", MaxOutputChannels: 2}
	paDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return want, nil
	}
	if dev, err := OutputDevice(-1); err != nil || dev != want {
		t.Errorf("OutputDevice(-1) = %v, %v, want the default device", dev, err)
	}
}
