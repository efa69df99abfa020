package audio

// Device describes an audio device for listing and selection.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// GetDevices returns all available audio devices. It initializes and
// terminates PortAudio itself, so it is safe to call before the engine runs.
func GetDevices() ([]Device, error) {
	err := Initialize()
	if err != nil {
		return nil, err
	}
	defer Terminate()

	paDeviceInfos, err := paDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(paDeviceInfos))
	for i, info := range paDeviceInfos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}

	return devices, nil
}
