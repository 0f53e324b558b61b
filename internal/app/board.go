package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"wifiwatch-tui/internal/chart"
	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/reconcile"
	"wifiwatch-tui/internal/storage"
)

const (
	defaultChartCols = 30
	defaultChartRows = 4
)

// Card is the terminal rendering of one client. Charts are drawn into a
// braille surface sized in terminal cells.
type Card struct {
	id       string
	label    string
	signal   string
	band     client.Band
	surface  *chart.BrailleSurface
	board    *Board
	detached bool
}

func (c *Card) ID() string         { return c.id }
func (c *Card) Label() string      { return c.label }
func (c *Card) SignalText() string { return c.signal }
func (c *Card) Band() client.Band  { return c.band }
func (c *Card) Detached() bool     { return c.detached }

func (c *Card) SetLabel(label string) {
	c.label = label
}

func (c *Card) SetSignalText(text string) {
	c.signal = text
}

func (c *Card) SetBand(band client.Band) {
	c.band = band
}

func (c *Card) Surface() chart.Surface {
	if c.surface == nil {
		return nil
	}
	return c.surface
}

// ChartRows returns the braille rows last drawn for this card.
func (c *Card) ChartRows() []string {
	if c.surface == nil {
		return nil
	}
	return c.surface.Rows()
}

func (c *Card) Detach() {
	if c.detached {
		return
	}
	c.detached = true
	if c.board != nil {
		c.board.remove(c.id)
	}
}

// View renders the card at a fixed inner width.
func (c *Card) View(innerWidth int) string {
	innerWidth = maxInt(innerWidth, 8)
	style := bandStyle(c.band)

	title := cardTitleStyle.Render(ansi.Truncate(c.label, innerWidth, "…"))
	signal := style.Render(ansi.Truncate(c.signal, innerWidth, "…"))
	bandLabel := cardMutedStyle.Render(c.band.String())

	lines := []string{title, signal + "  " + bandLabel}
	for _, row := range c.ChartRows() {
		lines = append(lines, chartStyle.Render(ansi.Truncate(row, innerWidth, "")))
	}
	return cardStyle.Copy().
		BorderForeground(style.GetForeground()).
		Width(innerWidth + 2).
		Render(strings.Join(lines, "\n"))
}

// Board is the reconcile.Factory for the dashboard. It keeps cards in the
// order they were first created and forgets them on Detach.
type Board struct {
	cards     map[string]*Card
	order     []string
	chartCols int
	chartRows int
}

func NewBoard(chartCols, chartRows int) *Board {
	if chartCols <= 0 {
		chartCols = defaultChartCols
	}
	if chartRows <= 0 {
		chartRows = defaultChartRows
	}
	return &Board{
		cards:     map[string]*Card{},
		chartCols: chartCols,
		chartRows: chartRows,
	}
}

func (b *Board) NewEntity(id, name string) reconcile.Entity {
	card := &Card{
		id:      id,
		label:   name,
		signal:  client.Placeholder,
		surface: chart.NewBrailleSurfaceCells(b.chartCols, b.chartRows),
		board:   b,
	}
	b.cards[id] = card
	b.order = append(b.order, id)
	return card
}

func (b *Board) Len() int {
	return len(b.order)
}

func (b *Board) Card(id string) (*Card, bool) {
	card, ok := b.cards[id]
	return card, ok
}

// Cards returns the attached cards in creation order.
func (b *Board) Cards() []*Card {
	out := make([]*Card, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.cards[id])
	}
	return out
}

// BandCounts tallies attached cards per band.
func (b *Board) BandCounts() map[client.Band]int {
	counts := make(map[client.Band]int, len(client.Bands))
	for _, card := range b.cards {
		counts[card.band]++
	}
	return counts
}

func (b *Board) CardWidth() int {
	// border + padding around the chart columns
	return b.chartCols + 4
}

// Render lays the cards out in rows that fit width.
func (b *Board) Render(width int) string {
	if len(b.order) == 0 {
		return cardMutedStyle.Render("No clients reported yet.")
	}
	perRow := maxInt(1, width/b.CardWidth())
	rows := make([]string, 0, len(b.order)/perRow+1)
	cards := b.Cards()
	for start := 0; start < len(cards); start += perRow {
		end := minInt(start+perRow, len(cards))
		views := make([]string, 0, end-start)
		for _, card := range cards[start:end] {
			views = append(views, card.View(b.chartCols))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, views...))
	}
	return strings.Join(rows, "\n")
}

// Exports snapshots the attached cards with their history for the export
// store. It must run on the goroutine that owns the reconciler.
func (b *Board) Exports(r *reconcile.Reconciler) []storage.ClientExport {
	out := make([]storage.ClientExport, 0, len(b.order))
	for _, card := range b.Cards() {
		samples, _ := r.History(card.id)
		out = append(out, storage.ClientExport{
			ID:      card.id,
			Name:    card.label,
			Signal:  card.signal,
			Band:    card.band.String(),
			Samples: samples,
		})
	}
	return out
}

func (b *Board) remove(id string) {
	if _, ok := b.cards[id]; !ok {
		return
	}
	delete(b.cards, id)
	for idx, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:idx], b.order[idx+1:]...)
			break
		}
	}
}
