// envsetup provides a lightweight .env configuration wizard.
// It runs via the --setup flag when no .env file exists, collecting the
// model provider credentials and storage location.
package envsetup

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type step int

const (
	stepWelcome step = iota
	stepProvider
	stepAPIKey
	stepModel
	stepDatabase
	stepConfirm
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "anthropic":
		return "claude-sonnet-4-5"
	default:
		return "gemini-2.0-flash"
	}
}

func apiKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}

type model struct {
	step        step
	provider    string
	apiKey      string
	modelName   string
	databaseURL string
	input       string
	err         error
	width       int
	height      int
}

func New() model {
	return model{
		step: stepWelcome,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEnter:
			return m.handleEnter()

		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil

		case tea.KeyRunes:
			m.input += string(msg.Runes)
			return m, nil

		case tea.KeySpace:
			m.input += " "
			return m, nil
		}
	}

	return m, nil
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	m.err = nil

	switch m.step {
	case stepWelcome:
		m.step = stepProvider
		m.input = ""

	case stepProvider:
		choice := strings.TrimSpace(strings.ToLower(m.input))
		switch choice {
		case "1", "openai":
			m.provider = "openai"
		case "2", "anthropic":
			m.provider = "anthropic"
		case "3", "google":
			m.provider = "google"
		default:
			m.err = fmt.Errorf("Please enter 1 for OpenAI, 2 for Anthropic, or 3 for Google")
			return m, nil
		}
		m.step = stepAPIKey
		m.input = ""

	case stepAPIKey:
		key := strings.TrimSpace(m.input)
		if key == "" {
			m.err = fmt.Errorf("API key is required")
			return m, nil
		}
		m.apiKey = key
		m.step = stepModel
		m.input = ""

	case stepModel:
		name := strings.TrimSpace(m.input)
		if name == "" {
			name = defaultModel(m.provider)
		}
		m.modelName = name
		m.step = stepDatabase
		m.input = ""

	case stepDatabase:
		url := strings.TrimSpace(m.input)
		if url == "" {
			url = "./webforge.db"
		}
		m.databaseURL = url
		m.step = stepConfirm
		m.input = ""

	case stepConfirm:
		choice := strings.TrimSpace(strings.ToLower(m.input))
		if choice == "y" || choice == "yes" || choice == "" {
			if err := m.writeEnvFile(); err != nil {
				m.err = err
				return m, nil
			}
			return m, tea.Quit
		} else if choice == "n" || choice == "no" {
			m.step = stepWelcome
			m.input = ""
			m.provider = ""
			m.apiKey = ""
			m.modelName = ""
			m.databaseURL = ""
		}
	}

	return m, nil
}

func (m model) writeEnvFile() error {
	content := fmt.Sprintf(`DATABASE_URL=%s
LLM_PROVIDER=%s
LLM_MODEL=%s
%s=%s
`, m.databaseURL, m.provider, m.modelName, apiKeyEnv(m.provider), m.apiKey)

	return os.WriteFile(".env", []byte(content), 0600)
}

func (m model) View() string {
	var s strings.Builder

	switch m.step {
	case stepWelcome:
		s.WriteString(titleStyle.Render("webforge - Env Setup"))
		s.WriteString("\n\n")
		s.WriteString("This wizard will help you configure the server.\n")
		s.WriteString("You'll need:\n\n")
		s.WriteString("  - An API key for OpenAI, Anthropic, or Google\n")
		s.WriteString("  - Optionally, a PostgreSQL URL (SQLite is the default)\n")
		s.WriteString("\n")
		s.WriteString(dimStyle.Render("Press Enter to continue, Ctrl+C to exit"))

	case stepProvider:
		s.WriteString(titleStyle.Render("Step 1: Choose Model Provider"))
		s.WriteString("\n\n")
		s.WriteString("Which provider would you like to use?\n\n")
		s.WriteString("  1. OpenAI (or any OpenAI-compatible endpoint)\n")
		s.WriteString("  2. Anthropic (Claude)\n")
		s.WriteString("  3. Google (Gemini)\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Enter 1, 2, or 3:"))
		s.WriteString("\n")
		s.WriteString("> " + inputStyle.Render(m.input))
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepAPIKey:
		s.WriteString(titleStyle.Render("Step 2: API Key"))
		s.WriteString("\n\n")
		switch m.provider {
		case "openai":
			s.WriteString("To get your OpenAI API key:\n\n")
			s.WriteString("  1. Go to " + linkStyle.Render("https://platform.openai.com/api-keys") + "\n")
			s.WriteString("  2. Sign up or log in\n")
			s.WriteString("  3. Create a new secret key\n")
		case "anthropic":
			s.WriteString("To get your Anthropic API key:\n\n")
			s.WriteString("  1. Go to " + linkStyle.Render("https://console.anthropic.com") + "\n")
			s.WriteString("  2. Sign up or log in\n")
			s.WriteString("  3. Go to API Keys and create a new key\n")
		default:
			s.WriteString("To get your Google AI API key:\n\n")
			s.WriteString("  1. Go to " + linkStyle.Render("https://aistudio.google.com/apikey") + "\n")
			s.WriteString("  2. Sign in with your Google account\n")
			s.WriteString("  3. Create an API key\n")
		}
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Paste your API key here:"))
		s.WriteString("\n")
		s.WriteString("> " + inputStyle.Render(maskToken(m.input)))
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepModel:
		s.WriteString(titleStyle.Render("Step 3: Model"))
		s.WriteString("\n\n")
		s.WriteString("Which model should generations use?\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render(fmt.Sprintf("Model name [%s]:", defaultModel(m.provider))))
		s.WriteString("\n")
		s.WriteString("> " + inputStyle.Render(m.input))
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepDatabase:
		s.WriteString(titleStyle.Render("Step 4: Database"))
		s.WriteString("\n\n")
		s.WriteString("Where should webforge store sessions and generations?\n\n")
		s.WriteString("  - Press Enter for a local SQLite file\n")
		s.WriteString("  - Or paste a postgres:// connection URL\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Database URL [./webforge.db]:"))
		s.WriteString("\n")
		s.WriteString("> " + inputStyle.Render(m.input))
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}

	case stepConfirm:
		s.WriteString(titleStyle.Render("Configuration Complete"))
		s.WriteString("\n\n")
		s.WriteString("Your configuration:\n\n")
		s.WriteString("  Database: " + successStyle.Render(m.databaseURL) + "\n")
		s.WriteString("  Provider: " + successStyle.Render(m.provider) + "\n")
		s.WriteString("  Model:    " + successStyle.Render(m.modelName) + "\n")
		s.WriteString("  API Key:  " + successStyle.Render(maskToken(m.apiKey)) + "\n")
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("Save this configuration? [Y/n]:"))
		s.WriteString("\n")
		s.WriteString("> " + inputStyle.Render(m.input))
		if m.err != nil {
			s.WriteString("\n" + errorStyle.Render(m.err.Error()))
		}
	}

	s.WriteString("\n")
	return s.String()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// Run starts the setup wizard and returns true if setup was completed successfully
func Run() (bool, error) {
	p := tea.NewProgram(New())
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	m := finalModel.(model)
	return m.step == stepConfirm && m.err == nil, nil
}

// NeedsSetup checks if .env file exists
func NeedsSetup() bool {
	_, err := os.Stat(".env")
	return os.IsNotExist(err)
}
