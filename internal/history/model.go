// Package history is a terminal viewer for the signals and trades a store
// has recorded.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/turtle-trading/internal/storage"
)

// Application states.
const (
	StateInstrumentSelect = iota
	StateHistoryDisplay
)

// Tab is the table shown in the history display.
type Tab int

const (
	TabSignals Tab = iota
	TabTrades
)

// Model is the Bubble Tea model of the history viewer.
type Model struct {
	state          int
	store          storage.Store
	limit          int
	instrumentList list.Model
	signalTable    table.Model
	tradeTable     table.Model
	tab            Tab
	instrument     string
	signalCount    int
	tradeCount     int
	err            error
	width          int
	height         int
}

// NewModel creates a viewer over store. limit caps how many signals and
// trades are loaded, 0 loads everything.
func NewModel(store storage.Store, instruments []string, limit int) Model {
	return Model{
		state:          StateInstrumentSelect,
		store:          store,
		limit:          limit,
		instrumentList: NewInstrumentList(instruments),
		signalTable:    NewSignalTable(),
		tradeTable:     NewTradeTable(),
		tab:            TabSignals,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.state == StateHistoryDisplay {
				m.state = StateInstrumentSelect
				m.err = nil
			}

			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.instrumentList.SetSize(msg.Width, msg.Height-4)
		m.signalTable.SetWidth(msg.Width)
		m.signalTable.SetHeight(msg.Height - 8)
		m.tradeTable.SetWidth(msg.Width)
		m.tradeTable.SetHeight(msg.Height - 8)

		return m, nil

	case HistoryLoadedMsg:
		m.instrument = msg.Instrument
		m.signalCount = len(msg.Signals)
		m.tradeCount = len(msg.Trades)
		m.signalTable.SetRows(SignalRows(msg.Signals))
		m.tradeTable.SetRows(TradeRows(msg.Trades))
		m.err = nil
		m.state = StateHistoryDisplay

		return m, nil

	case HistoryErrorMsg:
		m.err = msg.Err
		m.state = StateHistoryDisplay

		return m, nil
	}

	switch m.state {
	case StateInstrumentSelect:
		return m.updateInstrumentSelect(msg)
	case StateHistoryDisplay:
		return m.updateHistoryDisplay(msg)
	}

	return m, nil
}

func (m Model) updateInstrumentSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if item, ok := m.instrumentList.SelectedItem().(listItem); ok {
			instrument := item.name
			if instrument == allInstruments {
				instrument = ""
			}

			return m, m.loadHistory(instrument)
		}
	}

	var cmd tea.Cmd
	m.instrumentList, cmd = m.instrumentList.Update(msg)

	return m, cmd
}

func (m Model) updateHistoryDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab":
			if m.tab == TabSignals {
				m.tab = TabTrades
			} else {
				m.tab = TabSignals
			}

			return m, nil
		case "r":
			return m, m.loadHistory(m.instrument)
		}
	}

	var cmd tea.Cmd
	if m.tab == TabSignals {
		m.signalTable, cmd = m.signalTable.Update(msg)
	} else {
		m.tradeTable, cmd = m.tradeTable.Update(msg)
	}

	return m, cmd
}

// loadHistory returns a command that reads the instrument's history in time order.
func (m Model) loadHistory(instrument string) tea.Cmd {
	store, limit := m.store, m.limit

	return func() tea.Msg {
		ctx := context.Background()

		signals, err := store.ListSignals(ctx, instrument, limit)
		if err != nil {
			return HistoryErrorMsg{Err: err}
		}

		trades, err := store.ListTrades(ctx, instrument, limit)
		if err != nil {
			return HistoryErrorMsg{Err: err}
		}

		return HistoryLoadedMsg{Instrument: instrument, Signals: signals, Trades: trades}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateInstrumentSelect:
		s.WriteString(TitleStyle.Render("Turtle Trading - History"))
		s.WriteString("\n\n")
		s.WriteString(m.instrumentList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateHistoryDisplay:
		name := m.instrument
		if name == "" {
			name = allInstruments
		}

		s.WriteString(TitleStyle.Render(fmt.Sprintf("History - %s", name)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		s.WriteString(m.tabs())
		s.WriteString("\n\n")

		if m.tab == TabSignals {
			s.WriteString(m.signalTable.View())
		} else {
			s.WriteString(m.tradeTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("tab: switch | r: reload | Esc: back | q: quit"))
	}

	return s.String()
}

func (m Model) tabs() string {
	signals := fmt.Sprintf("Signals (%d)", m.signalCount)
	trades := fmt.Sprintf("Trades (%d)", m.tradeCount)

	if m.tab == TabSignals {
		return ActiveTabStyle.Render(signals) + InactiveTabStyle.Render(trades)
	}

	return InactiveTabStyle.Render(signals) + ActiveTabStyle.Render(trades)
}
