package photo

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testSlots = []SlotSpec{
	{ID: SlotFrontal, Label: "Foto frontal", Required: true},
	{ID: SlotFocinho, Label: "Close do focinho", Required: true},
	{ID: SlotAngulo, Label: "Outro ângulo", Required: false},
}

// testJPEG returns a JPEG payload of the given size.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 0xFF, G: 0x6B, B: 0x6B, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegPhoto(t *testing.T) *Photo {
	return &Photo{Filename: "pet.jpg", ContentType: "image/jpeg", Data: testJPEG(t, 64, 48)}
}

func TestSelectPhoto_AcceptsImages(t *testing.T) {
	in := NewIntake(testSlots)
	defer in.Wait()

	if !in.SelectPhoto(SlotFrontal, jpegPhoto(t)) {
		t.Fatal("expected image/jpeg payload to be accepted")
	}
	if in.Photo(SlotFrontal) == nil {
		t.Fatal("expected frontal slot to hold the payload")
	}
}

func TestSelectPhoto_SilentlyIgnoresInvalid(t *testing.T) {
	tests := []struct {
		name   string
		slotID string
		photo  *Photo
	}{
		{"non-image type", SlotFrontal, &Photo{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}},
		{"pdf", SlotFrontal, &Photo{Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
		{"empty payload", SlotFrontal, &Photo{Filename: "pet.jpg", ContentType: "image/jpeg"}},
		{"nil photo", SlotFrontal, nil},
		{"unknown slot", "traseira", &Photo{Filename: "pet.jpg", ContentType: "image/jpeg", Data: []byte{0xFF}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIntake(testSlots)
			if in.SelectPhoto(tt.slotID, tt.photo) {
				t.Fatal("expected selection to be ignored")
			}
			if in.Photo(SlotFrontal) != nil {
				t.Error("expected frontal slot to stay empty")
			}
			if in.AllRequiredPhotosPresent() {
				t.Error("expected required photos to be missing")
			}
		})
	}
}

func TestSelectPhoto_NonImageKeepsPreviousPayload(t *testing.T) {
	in := NewIntake(testSlots)
	defer in.Wait()

	first := jpegPhoto(t)
	in.SelectPhoto(SlotFrontal, first)
	in.SelectPhoto(SlotFrontal, &Photo{Filename: "x.txt", ContentType: "text/plain", Data: []byte("x")})

	if in.Photo(SlotFrontal) != first {
		t.Error("expected rejected selection to leave the slot untouched")
	}
}

func TestAllRequiredPhotosPresent(t *testing.T) {
	tests := []struct {
		name string
		fill []string
		want bool
	}{
		{"nothing", nil, false},
		{"only optional", []string{SlotAngulo}, false},
		{"one of two required", []string{SlotFrontal}, false},
		{"one required plus optional", []string{SlotFocinho, SlotAngulo}, false},
		{"all required", []string{SlotFrontal, SlotFocinho}, true},
		{"everything", []string{SlotFrontal, SlotFocinho, SlotAngulo}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIntake(testSlots)
			for _, id := range tt.fill {
				in.SelectPhoto(id, jpegPhoto(t))
			}
			in.Wait()
			if got := in.AllRequiredPhotosPresent(); got != tt.want {
				t.Errorf("AllRequiredPhotosPresent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstMissing(t *testing.T) {
	in := NewIntake(testSlots)
	in.SelectPhoto(SlotFrontal, jpegPhoto(t))
	in.Wait()

	spec, missing := in.FirstMissing()
	if !missing || spec.ID != SlotFocinho {
		t.Errorf("expected focinho to be the first missing slot, got %+v (missing=%v)", spec, missing)
	}
}

func TestPreviewDerivedAsynchronously(t *testing.T) {
	in := NewIntake(testSlots)
	in.SelectPhoto(SlotFrontal, jpegPhoto(t))
	in.Wait()

	views := in.Slots()
	if !strings.HasPrefix(views[0].Preview, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected preview prefix: %.40s", views[0].Preview)
	}
	if views[0].Summary == nil || views[0].Summary.Width != 64 || views[0].Summary.Height != 48 {
		t.Errorf("expected 64x48 summary, got %+v", views[0].Summary)
	}
}

func TestReset_ClearsPayloadsAndPendingPreviews(t *testing.T) {
	in := NewIntake(testSlots)
	in.SelectPhoto(SlotFrontal, jpegPhoto(t))
	in.SelectPhoto(SlotAngulo, jpegPhoto(t))
	in.Reset()
	in.Wait()

	for _, v := range in.Slots() {
		if v.Filled || v.Preview != "" || v.Summary != nil {
			t.Errorf("slot %s not cleared: %+v", v.ID, v)
		}
	}
	if len(in.Selected()) != 0 {
		t.Error("expected no selected photos after reset")
	}
}

func TestSelected_Order(t *testing.T) {
	in := NewIntake(testSlots)
	in.SelectPhoto(SlotAngulo, jpegPhoto(t))
	in.SelectPhoto(SlotFrontal, jpegPhoto(t))
	in.Wait()

	got := in.Selected()
	if len(got) != 2 || got[0].SlotID != SlotFrontal || got[1].SlotID != SlotAngulo {
		t.Errorf("expected frontal then angulo, got %+v", got)
	}
}

func TestDerivePreview_FallbackForUndecodable(t *testing.T) {
	p := &Photo{Filename: "pet.heic", ContentType: "image/heic", Data: []byte("not really heic")}
	got := DerivePreview(p, 128)
	if !strings.HasPrefix(got, "data:image/heic;base64,") {
		t.Errorf("expected fallback data URL, got %.40s", got)
	}
}

func TestDerivePreview_Downsizes(t *testing.T) {
	p := &Photo{Filename: "big.png", ContentType: "image/png", Data: testPNG(t, 400, 200)}
	got := DerivePreview(p, 100)
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Fatalf("expected jpeg preview, got %.40s", got)
	}
}

// oversizedPNG returns a small PNG whose header declares w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := testPNG(t, 1, 1)
	// signature (8) + chunk length (4) + "IHDR" (4), then width and height.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDerivePreview_RejectsOversizedDimensions(t *testing.T) {
	p := &Photo{Filename: "huge.png", ContentType: "image/png", Data: oversizedPNG(t, 12000, 12000)}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	got := DerivePreview(p, 128)
	runtime.ReadMemStats(&after)

	if want := DataURL("image/png", p.Data); got != want {
		t.Errorf("expected original payload as preview, got %.40s", got)
	}
	if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 16<<20 {
		t.Errorf("allocated %d bytes for a %d byte file", allocated, len(p.Data))
	}
}

func TestPreviewDimensions(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 512, 100, 50},
		{1024, 512, 512, 512, 256},
		{512, 1024, 512, 256, 512},
		{2000, 2000, 500, 500, 500},
		{4000, 1, 100, 100, 1},
		{300, 300, 0, 300, 300},
	}
	for _, tt := range tests {
		w, h := previewDimensions(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("previewDimensions(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestDeclaredType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"pet.jpg", "image/jpeg"},
		{"PET.JPEG", "image/jpeg"},
		{"pet.png", "image/png"},
		{"pet.webp", "image/webp"},
		{"pet.HEIC", "image/heic"},
		{"notes.txt", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DeclaredType(tt.filename); got != tt.want {
				t.Errorf("DeclaredType(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
