package services

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sisoputnfrba/tp-weensy-magiOS/memoria/models"
)

func TestOwnerGlyph(t *testing.T) {
	tests := []struct {
		owner models.Owner
		want  byte
	}{
		{models.OwnerKernel, 'K'},
		{models.OwnerReserved, 'R'},
		{models.OwnerFree, '.'},
		{1, '1'},
		{9, '9'},
		{10, 'A'},
		{35, 'Z'},
		{36, '?'},
	}
	for _, tt := range tests {
		t.Run(tt.owner.String(), func(t *testing.T) {
			if got := OwnerGlyph(tt.owner); got != tt.want {
				t.Errorf("Expected %c, got %c", tt.want, got)
			}
		})
	}
}

func testSnapshot(t *testing.T) *models.MemorySnapshot {
	t.Helper()
	mm := newTestManager(t)
	table, _ := mm.DuplicateFor(1)
	frame, _ := mm.Ledger.AcquireFree(1)
	_ = mm.Memory.Map(table, models.ProcStartAddr, models.PageAddress(frame), models.PageSize, models.PermAll)

	pages := make([]models.VirtualMapping, 0, models.MemSizeVirtual/models.PageSize)
	for va := uint32(0); va < models.MemSizeVirtual; va += models.PageSize {
		pages = append(pages, mm.Memory.Lookup(table, va))
	}
	return &models.MemorySnapshot{
		Ticks:     3,
		Current:   1,
		Physical:  mm.Ledger.Snapshot(),
		Processes: []models.AddressSpaceSnapshot{{Pid: 1, State: "RUNNABLE", Pages: pages}},
	}
}

func TestTextRenderer_RenderPhysical(t *testing.T) {
	snapshot := testSnapshot(t)
	var out bytes.Buffer

	if err := (TextRenderer{}).RenderPhysical(&out, snapshot.Physical); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("Expected title plus 8 rows, got %d lines", len(lines))
	}
	want := "0x000000 RKK111.."
	if !strings.HasPrefix(lines[1], want) {
		t.Errorf("Expected row to start with %q, got %q", want, lines[1])
	}
	if !strings.HasPrefix(lines[2], "0x040000 KKKKKKKK.") {
		t.Errorf("Expected kernel image on the second row, got %q", lines[2])
	}
}

func TestTextRenderer_RenderVirtual(t *testing.T) {
	snapshot := testSnapshot(t)
	process, _ := snapshot.Process(1)
	var out bytes.Buffer

	if err := (TextRenderer{}).RenderVirtual(&out, "1", process.Pages, snapshot.Physical); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if lines[0] != "VIRTUAL ADDRESS SPACE FOR 1" {
		t.Errorf("Expected title, got %q", lines[0])
	}
	if len(lines) != 13 {
		t.Fatalf("Expected title plus 12 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[5], "0x100000 1 ") {
		t.Errorf("Expected the process page at 0x100000, got %q", lines[5])
	}
}

func TestTextRenderer_ANSI(t *testing.T) {
	pages := []models.PhysicalPage{{Owner: 1, Refcount: 2}}
	var out bytes.Buffer

	_ = (TextRenderer{ANSI: true}).RenderPhysical(&out, pages)
	if !strings.Contains(out.String(), ansiDim+"1"+ansiReset) {
		t.Errorf("Expected dimmed shared frame, got %q", out.String())
	}
}

func TestConsoleMemshow_Every(t *testing.T) {
	snapshot := testSnapshot(t)
	var out bytes.Buffer
	memshow := &ConsoleMemshow{Writer: &out, Every: 10}

	memshow.Visualize(snapshot)
	first := out.Len()
	if first == 0 {
		t.Fatalf("Expected first snapshot drawn, got nothing")
	}

	snapshot.Ticks = 5
	memshow.Visualize(snapshot)
	if out.Len() != first {
		t.Errorf("Expected no output before 10 ticks, got %d bytes more", out.Len()-first)
	}

	snapshot.Ticks = 13
	memshow.Visualize(snapshot)
	if out.Len() == first {
		t.Errorf("Expected output after 10 ticks, got nothing")
	}
}

func TestPNGRenderer_Render(t *testing.T) {
	snapshot := testSnapshot(t)
	renderer := PNGRenderer{CellSize: 8}

	img := renderer.Render(snapshot, 1).Image()
	bounds := img.Bounds()
	if bounds.Dx() != 600 {
		t.Errorf("Expected width 600, got %d", bounds.Dx())
	}
	// 8 filas físicas, 12 virtuales y dos títulos.
	if want := 16 + 18 + 64 + 18 + 8 + 96; bounds.Dy() != want {
		t.Errorf("Expected height %d, got %d", want, bounds.Dy())
	}

	r, g, b, _ := img.At(pngMargin+pngLabelWidth+3, pngMargin+pngTitleHeight+3).RGBA()
	if r>>8 != uint32(cgaReserved.R) || g>>8 != uint32(cgaReserved.G) || b>>8 != uint32(cgaReserved.B) {
		t.Errorf("Expected reserved color on frame 0, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestPNGRenderer_Encode(t *testing.T) {
	snapshot := testSnapshot(t)
	var out bytes.Buffer

	if err := (PNGRenderer{}).Encode(&out, snapshot, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		t.Fatalf("Expected a valid PNG, got %v", err)
	}
	if img.Bounds().Dy() != 16+18+64 {
		t.Errorf("Expected only the physical map, got height %d", img.Bounds().Dy())
	}
}

func TestPNGMemshow_Visualize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memshow.png")
	memshow := &PNGMemshow{Path: path, Every: 1}

	memshow.Visualize(testSnapshot(t))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected file %s, got %v", path, err)
	}
	if info.Size() == 0 {
		t.Errorf("Expected a non-empty PNG")
	}
}

func TestOwnerColor_Shared(t *testing.T) {
	own := OwnerColor(1, false)
	shared := OwnerColor(1, true)
	if shared.R != own.R/2 || shared.G != own.G/2 || shared.B != own.B/2 {
		t.Errorf("Expected shared color at half intensity, got %v from %v", shared, own)
	}
}
