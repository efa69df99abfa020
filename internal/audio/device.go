package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"binterp/internal/config"
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the audio input device for the given device ID.
// A DefaultDeviceID (-1) returns the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.DefaultDeviceID {
		return portaudio.DefaultInputDevice()
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid input device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// OutputDevice retrieves the audio output device for the given device ID.
// A DefaultDeviceID (-1) returns the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.DefaultDeviceID {
		return portaudio.DefaultOutputDevice()
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid output device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}

// ListDevices prints information about all available audio devices.
func ListDevices() error {
	devices, err := paDevices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		inputChannels := device.MaxInputChannels
		outputChannels := device.MaxOutputChannels

		deviceType := ""
		if inputChannels > 0 && outputChannels > 0 {
			deviceType = "Input/Output"
		} else if inputChannels > 0 {
			deviceType = "Input"
		} else if outputChannels > 0 {
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n", inputChannels, outputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Printf("    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Println()
	}

	return nil
}

func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	return devices, nil
}
