package history

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/turtle-trading/internal/types"
)

const timeLayout = "2006-01-02 15:04"

// allInstruments is the list entry that shows every instrument at once.
const allInstruments = "All"

// listItem implements list.Item interface for the instrument list.
type listItem struct {
	name        string
	description string
}

func (i listItem) Title() string       { return i.name }
func (i listItem) Description() string { return i.description }
func (i listItem) FilterValue() string { return i.name }

// NewInstrumentList creates a new list for instrument selection.
func NewInstrumentList(instruments []string) list.Model {
	items := make([]list.Item, 0, len(instruments)+1)
	items = append(items, listItem{name: allInstruments, description: "Signals and trades of every instrument"})

	for _, instrument := range instruments {
		items = append(items, listItem{name: instrument, description: fmt.Sprintf("Signals and trades of %s", instrument)})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true

	l := list.New(items, delegate, 0, 0)
	l.Title = "Select Instrument"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

// NewSignalTable creates a new table for displaying signals.
func NewSignalTable() table.Model {
	return newTable([]table.Column{
		{Title: "Time", Width: 17},
		{Title: "Instrument", Width: 12},
		{Title: "Kind", Width: 12},
		{Title: "Price", Width: 14},
		{Title: "Size", Width: 12},
		{Title: "Conf", Width: 5},
		{Title: "Reason", Width: 36},
	})
}

// NewTradeTable creates a new table for displaying closed trades.
func NewTradeTable() table.Model {
	return newTable([]table.Column{
		{Title: "Closed", Width: 17},
		{Title: "Instrument", Width: 12},
		{Title: "Side", Width: 6},
		{Title: "Units", Width: 5},
		{Title: "Size", Width: 12},
		{Title: "Entry", Width: 14},
		{Title: "Exit", Width: 14},
		{Title: "PnL", Width: 16},
		{Title: "Why", Width: 10},
	})
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// SignalRows renders signals as table rows in the order given.
func SignalRows(signals []types.Signal) []table.Row {
	rows := make([]table.Row, 0, len(signals))

	for _, signal := range signals {
		reason := signal.Reason
		if signal.ExitReason != "" {
			reason = fmt.Sprintf("[%s] %s", signal.ExitReason, reason)
		}

		rows = append(rows, table.Row{
			signal.Time.Format(timeLayout),
			signal.Instrument,
			string(signal.Kind),
			fmt.Sprintf("%.4f", signal.ReferencePrice),
			fmt.Sprintf("%.4f", signal.Size),
			fmt.Sprintf("%.1f", signal.Confidence),
			reason,
		})
	}

	return rows
}

// TradeRows renders trades as table rows in the order given.
func TradeRows(trades []types.Trade) []table.Row {
	rows := make([]table.Row, 0, len(trades))

	for _, trade := range trades {
		rows = append(rows, table.Row{
			trade.CloseTime.Format(timeLayout),
			trade.Instrument,
			string(trade.Direction),
			fmt.Sprintf("%d", trade.Units),
			fmt.Sprintf("%.4f", trade.Size),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			FormatPnL(trade.PnL),
			string(trade.ExitReason),
		})
	}

	return rows
}
