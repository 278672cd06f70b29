package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/vtrender/vtrender/player"
)

// videoExtensions lists the file extensions the menu offers to play. The
// actual decode is delegated to ffmpeg, which supports far more than this;
// the menu only needs a reasonable filter for what to list.
var videoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}

var fitModeChoices = []string{"letterbox", "fill"}

// runMenu is the interactive file-picker collaborator named in spec.md §1
// "Out of scope: CLI parsing and the interactive menu (supplies a
// populated playback configuration)". It never touches the render loop —
// it only produces a video path and fit mode, then gets out of the way.
func runMenu(ctx context.Context) (videoPath, fitMode string, err error) {
	files, err := discoverVideoFiles(".")
	if err != nil {
		return "", "", fmt.Errorf("%w: listing video files: %w", player.ErrConfigInvalid, err)
	}

	if len(files) == 0 {
		return "", "", fmt.Errorf("%w: no video files found in current directory", player.ErrConfigInvalid)
	}

	m := &menuModel{files: files, fitModes: fitModeChoices}

	program := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := program.Run()
	if err != nil {
		return "", "", fmt.Errorf("%w: running menu: %w", player.ErrRenderFailed, err)
	}

	result, ok := final.(*menuModel)
	if !ok || !result.confirmed {
		return "", "", player.ErrCancelled
	}

	return result.files[result.cursor], result.fitModes[result.fitIdx], nil
}

// discoverVideoFiles lists files in dir whose extension matches
// videoExtensions, sorted for a stable menu order.
func discoverVideoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range videoExtensions {
			if ext == want {
				files = append(files, e.Name())

				break
			}
		}
	}

	sort.Strings(files)

	return files, nil
}

// menuModel is a minimal bubbletea list model: pick a file with up/down,
// toggle fit mode with f, confirm with enter.
type menuModel struct {
	files    []string
	fitModes []string
	cursor   int
	fitIdx   int

	confirmed bool
	buf       strings.Builder
}

func (m *menuModel) Init() tea.Cmd {
	return nil
}

func (m *menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.files)-1 {
			m.cursor++
		}
	case "f":
		m.fitIdx = (m.fitIdx + 1) % len(m.fitModes)
	case "enter":
		m.confirmed = true

		return m, tea.Quit
	case "q", "ctrl+c", "esc":
		m.confirmed = false

		return m, tea.Quit
	}

	return m, nil
}

func (m *menuModel) View() tea.View {
	m.buf.Reset()
	m.buf.WriteString("Select a video (↑/↓, f to toggle fit mode, enter to play, q to quit)\n\n")

	for i, f := range m.files {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		fmt.Fprintf(&m.buf, "%s%s\n", cursor, f)
	}

	fmt.Fprintf(&m.buf, "\nfit mode: %s\n", m.fitModes[m.fitIdx])

	v := tea.NewView(m.buf.String())
	v.AltScreen = true

	return v
}
