// Package tui is an interactive picker for the measurement device
// pair: the output that plays the sweep and the input that records the
// room. It is a setup aid; the measurement itself stays on the CLI.
package tui

import (
	"fmt"
	"strings"

	"roomsweep/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
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

	markStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E8A33D")).
			Bold(true)
)

// ScreenType selects which screen is active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// Selection carries the device pair the operator picked. An ID of -1
// means the system default.
type Selection struct {
	InputID  int
	OutputID int
}

// PickerModel is the Bubble Tea model for choosing the measurement
// device pair.
type PickerModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	selection Selection
}

// NewPickerModel returns a model with no devices marked; both IDs stay
// at the system default until the operator picks.
func NewPickerModel() PickerModel {
	return PickerModel{
		activeScreen: ListScreen,
		selection:    Selection{InputID: -1, OutputID: -1},
	}
}

// Init starts the device fetch.
func (m PickerModel) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	devices, err := audio.HostDevices()
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

// Update handles input and refreshes the model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

			case key.Matches(msg, key.NewBinding(key.WithKeys("i"))):
				if m.canRecord() {
					m.selection.InputID = m.devices[m.selectedIndex].ID
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("o"))):
				if m.canPlay() {
					m.selection.OutputID = m.devices[m.selectedIndex].ID
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = DetailScreen
					m.viewport.SetContent(m.renderDetail())
				}
			}
		} else if m.activeScreen == DetailScreen {
			if key.Matches(msg, key.NewBinding(key.WithKeys("esc"))) {
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m PickerModel) canRecord() bool {
	return len(m.devices) > 0 && m.devices[m.selectedIndex].MaxInputChannels > 0
}

func (m PickerModel) canPlay() bool {
	return len(m.devices) > 0 && m.devices[m.selectedIndex].MaxOutputChannels > 0
}

// View renders the active screen.
func (m PickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Measurement Devices")
		help = infoStyle.Render("↑/↓: Navigate • o: Play sweep here • i: Record here • Enter: Details • q: Done")
	} else {
		title = titleStyle.Render("Device Details")
		help = infoStyle.Render("Esc: Back • q: Done")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m PickerModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceType := ""
		switch {
		case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case device.MaxInputChannels > 0:
			deviceType = "Input"
		case device.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, deviceType)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		var marks []string
		if device.ID == m.selection.OutputID {
			marks = append(marks, "plays the sweep")
		}
		if device.ID == m.selection.InputID {
			marks = append(marks, "records the room")
		}
		if len(marks) > 0 {
			deviceInfo += markStyle.Render("    ◆ "+strings.Join(marks, ", ")) + "\n"
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m PickerModel) renderDetail() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("%s\n\n", device.Name))
	sb.WriteString(fmt.Sprintf("  Device ID:           %d\n", device.ID))
	sb.WriteString(fmt.Sprintf("  Input channels:      %d\n", device.MaxInputChannels))
	sb.WriteString(fmt.Sprintf("  Output channels:     %d\n", device.MaxOutputChannels))
	sb.WriteString(fmt.Sprintf("  Default sample rate: %.0f Hz\n\n", device.DefaultSampleRate))

	if device.MaxInputChannels > 0 {
		sb.WriteString("  Can record the measurement microphone.\n")
	}
	if device.MaxInputChannels >= 2 {
		sb.WriteString("  A second input channel can carry a loopback wire for\n")
		sb.WriteString("  latency calibration (--loopback-channel 1).\n")
	}
	if device.MaxOutputChannels > 0 {
		sb.WriteString("  Can play the excitation sweep.\n")
	}

	return sb.String()
}

// Pick runs the picker and returns the chosen device pair. PortAudio
// must be initialized before calling. IDs left unmarked come back as
// -1, the system default.
func Pick() (Selection, error) {
	p := tea.NewProgram(
		NewPickerModel(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{InputID: -1, OutputID: -1}, err
	}

	model, ok := final.(PickerModel)
	if !ok {
		return Selection{InputID: -1, OutputID: -1}, fmt.Errorf("tui: unexpected final model %T", final)
	}
	if model.err != nil {
		return Selection{InputID: -1, OutputID: -1}, model.err
	}
	return model.selection, nil
}
