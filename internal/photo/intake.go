package photo

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultPreviewMaxDimension bounds the longest side of a derived preview.
const DefaultPreviewMaxDimension = 512

// SlotSpec describes one upload position.
type SlotSpec struct {
	ID       string
	Label    string
	Required bool
}

// slot is the mutable state behind a SlotSpec. gen increases on every
// payload change so late previews for replaced payloads can be dropped.
type slot struct {
	spec    SlotSpec
	photo   *Photo
	preview string
	summary *Summary
	gen     uint64
}

// SlotView is a read-only snapshot of a slot for rendering.
type SlotView struct {
	SlotSpec
	Filename string
	Size     int
	Preview  string
	Summary  *Summary
	Filled   bool
}

// Selected pairs a filled slot with its payload, in slot order.
type Selected struct {
	SlotID string
	Photo  *Photo
}

// Intake collects photos keyed by slot. It is safe for concurrent use; the
// preview goroutines it starts are the only other writers.
type Intake struct {
	mu     sync.Mutex
	order  []*slot
	byID   map[string]*slot
	maxDim int

	previews sync.WaitGroup
}

// NewIntake creates an empty intake for the given slots.
func NewIntake(specs []SlotSpec) *Intake {
	in := &Intake{
		byID:   make(map[string]*slot, len(specs)),
		maxDim: DefaultPreviewMaxDimension,
	}
	for _, spec := range specs {
		s := &slot{spec: spec}
		in.order = append(in.order, s)
		in.byID[spec.ID] = s
	}
	return in
}

// SelectPhoto stores p in the slot and starts deriving its preview in the
// background. Payloads that are empty, not declared as images, or aimed at an
// unknown slot are ignored and false is returned; no error state is recorded.
func (in *Intake) SelectPhoto(slotID string, p *Photo) bool {
	if p.Size() == 0 || !p.IsImage() {
		log.Debug().Str("slot", slotID).Str("contentType", contentType(p)).Msg("Ignoring non-image selection")
		return false
	}

	in.mu.Lock()
	s, ok := in.byID[slotID]
	if !ok {
		in.mu.Unlock()
		log.Debug().Str("slot", slotID).Msg("Ignoring selection for unknown slot")
		return false
	}
	s.gen++
	s.photo = p
	s.preview = ""
	s.summary = nil
	gen := s.gen
	maxDim := in.maxDim
	in.previews.Add(1)
	in.mu.Unlock()

	log.Debug().
		Str("slot", slotID).
		Str("filename", p.Filename).
		Str("contentType", p.ContentType).
		Int("sizeBytes", p.Size()).
		Msg("Photo selected")

	go in.derive(s, gen, p, maxDim)
	return true
}

// derive computes the preview and EXIF summary for p and publishes them if
// the slot still holds the same payload generation.
func (in *Intake) derive(s *slot, gen uint64, p *Photo, maxDim int) {
	defer in.previews.Done()

	preview := DerivePreview(p, maxDim)
	summary := Summarize(p.Data)

	in.mu.Lock()
	defer in.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.preview = preview
	s.summary = summary
}

// AllRequiredPhotosPresent reports whether every required slot holds a
// non-empty payload. Optional slots never affect the result.
func (in *Intake) AllRequiredPhotosPresent() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range in.order {
		if s.spec.Required && s.photo.Size() == 0 {
			return false
		}
	}
	return true
}

// FirstMissing returns the first required slot without a payload.
func (in *Intake) FirstMissing() (SlotSpec, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range in.order {
		if s.spec.Required && s.photo.Size() == 0 {
			return s.spec, true
		}
	}
	return SlotSpec{}, false
}

// Reset clears every payload and preview. Previews still being derived are
// discarded when they finish.
func (in *Intake) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, s := range in.order {
		s.gen++
		s.photo = nil
		s.preview = ""
		s.summary = nil
	}
}

// Wait blocks until every preview derivation started so far has finished.
func (in *Intake) Wait() {
	in.previews.Wait()
}

// Photo returns the payload held by the slot, or nil.
func (in *Intake) Photo(slotID string) *Photo {
	in.mu.Lock()
	defer in.mu.Unlock()
	if s, ok := in.byID[slotID]; ok {
		return s.photo
	}
	return nil
}

// Slots returns a snapshot of every slot in declaration order.
func (in *Intake) Slots() []SlotView {
	in.mu.Lock()
	defer in.mu.Unlock()
	views := make([]SlotView, 0, len(in.order))
	for _, s := range in.order {
		v := SlotView{
			SlotSpec: s.spec,
			Preview:  s.preview,
			Summary:  s.summary,
			Filled:   s.photo.Size() > 0,
		}
		if s.photo != nil {
			v.Filename = s.photo.Filename
			v.Size = s.photo.Size()
		}
		views = append(views, v)
	}
	return views
}

// Selected returns the filled slots in declaration order.
func (in *Intake) Selected() []Selected {
	in.mu.Lock()
	defer in.mu.Unlock()
	var out []Selected
	for _, s := range in.order {
		if s.photo.Size() > 0 {
			out = append(out, Selected{SlotID: s.spec.ID, Photo: s.photo})
		}
	}
	return out
}

func contentType(p *Photo) string {
	if p == nil {
		return ""
	}
	return p.ContentType
}
