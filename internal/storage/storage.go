package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"wifiwatch-tui/internal/chart"
)

// savedAtLayout is fixed width so saved_at values sort lexically.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// bandStrokes colors exported charts by the band shown on the card.
var bandStrokes = map[string]drawing.Color{
	"strong": drawing.ColorFromHex("2f9e6e"),
	"good":   drawing.ColorFromHex("7aa82a"),
	"weak":   drawing.ColorFromHex("d49b1f"),
	"poor":   drawing.ColorFromHex("d64545"),
}

type Store struct {
	rootDir    string
	exportsDir string
}

// ClientExport is one client's state at export time.
type ClientExport struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Signal  string    `json:"signal"`
	Band    string    `json:"band"`
	Samples []float64 `json:"samples"`
}

type ClientSummary struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Signal  string   `json:"signal"`
	Band    string   `json:"band"`
	Latest  *float64 `json:"latest_dbm,omitempty"`
	Samples int      `json:"samples"`
	Chart   string   `json:"chart"`
}

type ExportSummary struct {
	ExportID    string          `json:"export_id"`
	SavedAt     string          `json:"saved_at"`
	Source      string          `json:"source"`
	Sequence    uint64          `json:"sequence"`
	ChartWidth  int             `json:"chart_width"`
	ChartHeight int             `json:"chart_height"`
	Clients     []ClientSummary `json:"clients"`
	Directory   string          `json:"directory"`
}

type ExportBundle struct {
	Summary ExportSummary        `json:"summary"`
	History map[string][]float64 `json:"history"`
}

func NewStore(rootDir string) (*Store, error) {
	exportsDir := filepath.Join(rootDir, "exports")
	if err := os.MkdirAll(exportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports dir: %w", err)
	}
	return &Store{rootDir: rootDir, exportsDir: exportsDir}, nil
}

func (s *Store) ExportsDir() string {
	return s.exportsDir
}

// Save writes summary.json, history.json and one PNG chart per client into a
// fresh timestamped directory.
func (s *Store) Save(source string, seq uint64, clients []ClientExport, width, height int) (ExportSummary, error) {
	if width <= 0 {
		width = chart.DefaultWidth
	}
	if height <= 0 {
		height = chart.DefaultHeight
	}

	now := time.Now().UTC()
	exportID := fmt.Sprintf("%s-%06d", now.Format("20060102-150405"), seq)
	dirPath := filepath.Join(s.exportsDir, exportID)
	for attempt := 1; ; attempt++ {
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			break
		}
		dirPath = filepath.Join(s.exportsDir, fmt.Sprintf("%s-%d", exportID, attempt))
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return ExportSummary{}, fmt.Errorf("create export dir: %w", err)
	}

	summary := ExportSummary{
		ExportID:    filepath.Base(dirPath),
		SavedAt:     now.Format(savedAtLayout),
		Source:      source,
		Sequence:    seq,
		ChartWidth:  width,
		ChartHeight: height,
		Clients:     make([]ClientSummary, 0, len(clients)),
		Directory:   dirPath,
	}
	history := make(map[string][]float64, len(clients))

	surface := chart.NewRasterSurface(width, height)
	for idx, c := range clients {
		chartName := fmt.Sprintf("%02d-%s.png", idx+1, slug(c.ID))
		surface.SetStrokeColor(strokeFor(c.Band))
		chart.Render(surface, c.Samples)
		if err := writePNG(filepath.Join(dirPath, chartName), surface); err != nil {
			return ExportSummary{}, err
		}
		entry := ClientSummary{
			ID:      c.ID,
			Name:    c.Name,
			Signal:  c.Signal,
			Band:    c.Band,
			Samples: len(c.Samples),
			Chart:   chartName,
		}
		if n := len(c.Samples); n > 0 {
			latest := c.Samples[n-1]
			entry.Latest = &latest
		}
		summary.Clients = append(summary.Clients, entry)
		history[c.ID] = append([]float64{}, c.Samples...)
	}

	if err := writeJSON(filepath.Join(dirPath, "summary.json"), summary); err != nil {
		return ExportSummary{}, err
	}
	if err := writeJSON(filepath.Join(dirPath, "history.json"), history); err != nil {
		return ExportSummary{}, err
	}
	return summary, nil
}

func (s *Store) List(limit int) ([]ExportSummary, error) {
	entries, err := os.ReadDir(s.exportsDir)
	if err != nil {
		return nil, fmt.Errorf("read exports dir: %w", err)
	}

	summaries := make([]ExportSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var summary ExportSummary
		if err := readJSON(filepath.Join(s.exportsDir, entry.Name(), "summary.json"), &summary); err != nil {
			continue
		}
		if summary.Directory == "" {
			summary.Directory = filepath.Join(s.exportsDir, entry.Name())
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].SavedAt == summaries[j].SavedAt {
			return summaries[i].ExportID > summaries[j].ExportID
		}
		return summaries[i].SavedAt > summaries[j].SavedAt
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *Store) Load(directory string) (*ExportBundle, error) {
	dir := strings.TrimSpace(directory)
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.exportsDir, dir)
	}

	var summary ExportSummary
	if err := readJSON(filepath.Join(dir, "summary.json"), &summary); err != nil {
		return nil, err
	}
	history := map[string][]float64{}
	if err := readJSON(filepath.Join(dir, "history.json"), &history); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	summary.Directory = dir
	return &ExportBundle{Summary: summary, History: history}, nil
}

func strokeFor(band string) drawing.Color {
	if c, ok := bandStrokes[band]; ok {
		return c
	}
	return chart.DefaultStrokeColor
}

func writePNG(path string, surface *chart.RasterSurface) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := surface.EncodePNG(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, value any) error {
	blob, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json for %s: %w", path, err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, out any) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// slug keeps ids such as MAC addresses readable in file names.
func slug(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "client"
	}
	return out
}
