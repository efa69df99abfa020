package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"binterp/internal/audio"
	"binterp/internal/interp"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	TimingScreen
)

// timingField selects which interpolation parameter the arrow keys adjust.
type timingField int

const (
	lengthField timingField = iota
	varianceField
)

// timingStep is the adjustment granularity in seconds.
const timingStep = 0.5

// TimingSink receives interpolation timing changes from the UI. The audio
// engine satisfies this with its atomic handoff.
type TimingSink interface {
	SetInterpolationTime(lengthSeconds, varianceSeconds float64)
}

// DeviceListModel is the Bubble Tea model: a device browser with a second
// screen for tuning the interpolation timing live.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	// Interpolation timing controls.
	sink            TimingSink
	lengthSeconds   float64
	varianceSeconds float64
	activeField     timingField
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// fetchDevices gets the available audio devices
func fetchDevices() tea.Msg {
	devices, err := audio.GetDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// Update handles input and updates the model
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true

			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		// Keys that work everywhere.
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter", "t"))):
				m.activeScreen = TimingScreen
				m.activeField = lengthField
				m.viewport.SetContent(m.renderTiming())
			}
		} else if m.activeScreen == TimingScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, key.NewBinding(key.WithKeys("tab"))):
				if m.activeField == lengthField {
					m.activeField = varianceField
				} else {
					m.activeField = lengthField
				}
				m.viewport.SetContent(m.renderTiming())

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				m.adjustTiming(timingStep)
				m.viewport.SetContent(m.renderTiming())

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				m.adjustTiming(-timingStep)
				m.viewport.SetContent(m.renderTiming())
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// adjustTiming nudges the active field, clamps to the engine's legal ranges,
// and pushes the new values to the sink.
func (m *DeviceListModel) adjustTiming(delta float64) {
	switch m.activeField {
	case lengthField:
		m.lengthSeconds += delta
		if m.lengthSeconds < interp.MinLengthSeconds {
			m.lengthSeconds = interp.MinLengthSeconds
		}
		if m.lengthSeconds > interp.MaxLengthSeconds {
			m.lengthSeconds = interp.MaxLengthSeconds
		}
	case varianceField:
		m.varianceSeconds += delta
		if m.varianceSeconds < interp.MinVarianceSeconds {
			m.varianceSeconds = interp.MinVarianceSeconds
		}
		if m.varianceSeconds > interp.MaxVarianceSeconds {
			m.varianceSeconds = interp.MaxVarianceSeconds
		}
	}

	if m.sink != nil {
		m.sink.SetInterpolationTime(m.lengthSeconds, m.varianceSeconds)
	}
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Timing • q: Quit")
	} else {
		title = titleStyle.Render("Interpolation Timing")
		help = infoStyle.Render("↑/↓: Change Value • Tab: Switch Field • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceType := ""
		if device.MaxInputChannels > 0 && device.MaxOutputChannels > 0 {
			deviceType = "Input/Output"
		} else if device.MaxInputChannels > 0 {
			deviceType = "Input"
		} else if device.MaxOutputChannels > 0 {
			deviceType = "Output"
		}

		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n",
			device.ID, device.Name, deviceType)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n",
			device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderTiming formats the interpolation timing screen
func (m DeviceListModel) renderTiming() string {
	var sb strings.Builder

	sb.WriteString("Interpolation timing (seconds)\n\n")

	rows := []struct {
		field timingField
		label string
		value float64
	}{
		{lengthField, "Length", m.lengthSeconds},
		{varianceField, "Variance", m.varianceSeconds},
	}

	for _, row := range rows {
		marker := " "
		if row.field == m.activeField {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %-9s %5.1f s\n", marker, row.label, row.value)
		if row.field == m.activeField {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	sb.WriteString("\nNew bin durations are drawn uniformly from length ± variance.\n")

	return sb.String()
}

// NewDeviceListModel creates a new model. The sink may be nil when no engine
// is running, in which case the timing screen is display-only.
func NewDeviceListModel(sink TimingSink, lengthSeconds, varianceSeconds float64) DeviceListModel {
	return DeviceListModel{
		selectedIndex:   0,
		activeScreen:    ListScreen,
		sink:            sink,
		lengthSeconds:   lengthSeconds,
		varianceSeconds: varianceSeconds,
	}
}

// StartDeviceListUI launches the Bubble Tea TUI.
func StartDeviceListUI(sink TimingSink, lengthSeconds, varianceSeconds float64) error {
	p := tea.NewProgram(
		NewDeviceListModel(sink, lengthSeconds, varianceSeconds),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
