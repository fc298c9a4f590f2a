package views

import (
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/pkg/core"
)

// NoWinner marks a stats row where both drivers are level.
const NoWinner = -1

// StatsRow is one line of the career comparison table.
type StatsRow struct {
	Label   string `json:"label"`
	Driver1 int    `json:"driver1"`
	Driver2 int    `json:"driver2"`
	Winner  int    `json:"winner"`
}

// BarGroup is one category of the career bar chart.
type BarGroup struct {
	Label   string `json:"label"`
	Driver1 int    `json:"driver1"`
	Driver2 int    `json:"driver2"`
}

func statRows(a, b core.DriverStats) []StatsRow {
	rows := []StatsRow{
		{Label: "Wins", Driver1: a.Wins, Driver2: b.Wins},
		{Label: "Podiums", Driver1: a.Podiums, Driver2: b.Podiums},
		{Label: "Poles", Driver1: a.Poles, Driver2: b.Poles},
		{Label: "Championships", Driver1: a.Championships, Driver2: b.Championships},
		{Label: "Races", Driver1: a.Races, Driver2: b.Races},
	}
	for i := range rows {
		switch {
		case rows[i].Driver1 > rows[i].Driver2:
			rows[i].Winner = 0
		case rows[i].Driver2 > rows[i].Driver1:
			rows[i].Winner = 1
		default:
			rows[i].Winner = NoWinner
		}
	}
	return rows
}

// StatsTable builds the five-row career table.
func StatsTable(st session.State) Result[[]StatsRow] {
	if r, wait := pending[[]StatsRow](st); wait {
		return r
	}
	return Ready(statRows(st.Data.Driver1.Stats, st.Data.Driver2.Stats))
}

// Bars builds the chart series: every table row except races.
func Bars(st session.State) Result[[]BarGroup] {
	if r, wait := pending[[]BarGroup](st); wait {
		return r
	}
	rows := statRows(st.Data.Driver1.Stats, st.Data.Driver2.Stats)
	groups := make([]BarGroup, 0, 4)
	for _, row := range rows[:4] {
		groups = append(groups, BarGroup{Label: row.Label, Driver1: row.Driver1, Driver2: row.Driver2})
	}
	return Ready(groups)
}
