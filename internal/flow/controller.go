// Package flow drives one contribution from photo intake to the backend's
// answer. A Controller owns the photos, the pet details and the workflow
// state for a single user session:
//
//	Idle --Advance--> DetailsVisible --Submit--> Submitting --> Succeeded
//	                        ^                        |
//	                        +------- failure --------+
//
// Reset returns to Idle from DetailsVisible or Succeeded. Only one
// submission may be in flight at a time.
package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/pet"
	"github.com/smartdog/pet-contribution/internal/photo"
)

// MsgSuccess is shown when the backend accepts without a message of its own.
const MsgSuccess = "Contribuição enviada com sucesso! Obrigado por ajudar o Smartdog."

// notifyTimeout bounds the background counter increment.
const notifyTimeout = 30 * time.Second

// Submitter sends a contribution. *backend.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, s backend.Submission) (*backend.Contribution, error)
}

// Notifier tells the backend a contribution was accepted.
// *backend.Client satisfies it.
type Notifier interface {
	IncrementCount(ctx context.Context) error
}

// Deps are the collaborators of a Controller. Notifier and Sink are
// optional; Counter defaults to an offline counter over a memory store.
type Deps struct {
	Submitter Submitter
	Notifier  Notifier
	Counter   counter.Counter
	Sink      Sink
}

// Controller is the state machine of one contribution. It is safe for
// concurrent use; the lock is never held across network calls.
type Controller struct {
	variant Variant
	intake  *photo.Intake
	deps    Deps
	now     func() time.Time

	mu         sync.Mutex
	state      State
	details    pet.Details
	terms      bool
	errMsg     string
	result     Result
	submitting bool

	background sync.WaitGroup
}

// New creates a controller in the Idle state.
func New(v Variant, deps Deps) *Controller {
	if deps.Sink == nil {
		deps.Sink = LogSink{}
	}
	if deps.Counter == nil {
		deps.Counter = counter.NewService(nil, nil, 0)
	}
	return &Controller{
		variant: v,
		intake:  photo.NewIntake(v.Slots),
		deps:    deps,
		now:     time.Now,
	}
}

// Variant returns the flow configuration.
func (c *Controller) Variant() Variant {
	return c.variant
}

// Intake exposes the photo slots for rendering.
func (c *Controller) Intake() *photo.Intake {
	return c.intake
}

// SelectPhoto forwards to the intake. See photo.Intake.SelectPhoto.
func (c *Controller) SelectPhoto(slotID string, p *photo.Photo) bool {
	return c.intake.SelectPhoto(slotID, p)
}

// --- Form fields ---

// SetSpecies sets the species, clearing the breed when it changes.
func (c *Controller) SetSpecies(s pet.Species) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details.SetSpecies(s)
}

// SetField sets a pet detail by name. See pet.Details.SetField.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.details.SetField(name, value)
}

// SetTermsAccepted records the terms checkbox.
func (c *Controller) SetTermsAccepted(accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terms = accepted
}

// --- Snapshots ---

// View is a point-in-time copy of the controller state.
type View struct {
	State         State
	Details       pet.Details
	TermsAccepted bool
	Error         string
	Result        Result
	Slots         []photo.SlotView
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	v := View{
		State:         c.state,
		Details:       c.details,
		TermsAccepted: c.terms,
		Error:         c.errMsg,
		Result:        c.result,
	}
	c.mu.Unlock()
	v.Slots = c.intake.Slots()
	return v
}

// State returns the current workflow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Error returns the current error message, or "".
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Result returns the last submission result, or nil.
func (c *Controller) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// --- Validation ---

// Validate reports the first unmet requirement, or nil. Checks run in a
// fixed order: required photos, name (when the variant requires it),
// species, breed, sex, age, coat colour (when asked), terms (when required).
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.validateLocked(); err != nil {
		return err
	}
	return nil
}

func (c *Controller) validateLocked() *ValidationError {
	if missing, ok := c.intake.FirstMissing(); ok {
		return &ValidationError{Field: FieldPhotos, Message: fmt.Sprintf("Adicione a %s.", strings.ToLower(missing.Label))}
	}
	d := c.details
	switch {
	case c.variant.RequireName && strings.TrimSpace(d.Name) == "":
		return &ValidationError{Field: pet.FieldName, Message: "Informe o nome do pet."}
	case d.Species == pet.SpeciesUnset:
		return &ValidationError{Field: pet.FieldSpecies, Message: "Selecione a espécie do pet."}
	case strings.TrimSpace(d.Breed) == "":
		return &ValidationError{Field: pet.FieldBreed, Message: "Informe a raça do pet."}
	case d.Sex == pet.SexUnset:
		return &ValidationError{Field: pet.FieldSex, Message: "Selecione o sexo do pet."}
	case strings.TrimSpace(d.Age) == "":
		return &ValidationError{Field: pet.FieldAge, Message: "Informe a idade do pet."}
	case c.variant.AskCoatColor && strings.TrimSpace(d.CoatColor) == "":
		return &ValidationError{Field: pet.FieldCoatColor, Message: "Selecione a cor da pelagem."}
	case c.variant.RequireTerms && !c.terms:
		return &ValidationError{Field: FieldTerms, Message: "Aceite os termos de participação para continuar."}
	}
	return nil
}

// --- Transitions ---

// Advance moves from photo intake to the details form once every required
// photo is present. On failure the error message is set and the state is
// unchanged. Advancing from DetailsVisible is a no-op.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case DetailsVisible:
		return nil
	case Idle:
	default:
		return fmt.Errorf("advance from %s: %w", c.state, ErrInvalidState)
	}

	if missing, ok := c.intake.FirstMissing(); ok {
		verr := &ValidationError{Field: FieldPhotos, Message: fmt.Sprintf("Adicione a %s.", strings.ToLower(missing.Label))}
		c.errMsg = verr.Message
		return verr
	}
	c.state = DetailsVisible
	c.errMsg = ""
	log.Debug().Str("variant", c.variant.Name).Msg("Photos complete, showing details form")
	return nil
}

// Submit validates the form and sends the contribution. It returns an error
// only when the submission could not start: a *ValidationError,
// ErrSubmitInFlight or ErrInvalidState. Remote failures are reported as a
// *Failure result and return the flow to DetailsVisible.
//
// ctx bounds the network call; the flow never cancels it on its own.
func (c *Controller) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if c.state != DetailsVisible {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("submit from %s: %w", state, ErrInvalidState)
	}
	if verr := c.validateLocked(); verr != nil {
		c.errMsg = verr.Message
		c.mu.Unlock()
		return nil, verr
	}

	sub := c.buildSubmission()
	c.submitting = true
	c.state = Submitting
	c.errMsg = ""
	c.result = nil
	c.mu.Unlock()

	logger := log.With().Str("sessionId", sub.Session).Str("variant", c.variant.Name).Logger()
	logger.Info().Int("photos", len(sub.Files)).Msg("Submitting contribution")

	start := time.Now()
	contribution, err := c.deps.Submitter.Submit(ctx, sub)
	duration := time.Since(start)

	if err != nil {
		failure := &Failure{Message: backend.UserMessage(err), Err: err}
		logger.Warn().Err(err).Dur("duration", duration).Msg("Contribution failed")

		c.mu.Lock()
		c.submitting = false
		c.state = DetailsVisible
		c.errMsg = failure.Message
		c.result = failure
		c.mu.Unlock()
		return failure, nil
	}

	count := c.deps.Counter.IncrementOptimistically(ctx)
	success := &Success{
		Session:             contribution.Session,
		Message:             contribution.Message,
		TransformedImageURL: contribution.TransformedImageURL,
		HumanAge:            contribution.HumanAge,
		Prompt:              contribution.Prompt,
		Count:               count,
	}
	if success.Message == "" {
		success.Message = MsgSuccess
	}

	c.mu.Lock()
	c.submitting = false
	c.state = Succeeded
	c.result = success
	c.mu.Unlock()

	logger.Info().Int("count", count).Dur("duration", duration).Msg("Contribution succeeded")
	c.notify(ctx, sub.Session)
	return success, nil
}

// notify sends the counter increment in the background and reports the
// outcome to the sink only.
func (c *Controller) notify(ctx context.Context, session string) {
	if c.deps.Notifier == nil {
		return
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		defer cancel()
		start := time.Now()
		err := c.deps.Notifier.IncrementCount(bg)
		c.deps.Sink.Report(bg, SecondaryResult{Session: session, Err: err, Duration: time.Since(start)})
	}()
}

// buildSubmission snapshots the photos and details. Caller holds c.mu.
func (c *Controller) buildSubmission() backend.Submission {
	d := c.details
	sub := backend.Submission{
		Session: backend.NewSessionID(c.now()),
		Breed:   strings.TrimSpace(d.Breed),
		Sex:     string(d.Sex),
		Age:     strings.TrimSpace(d.Age),
		Species: string(d.Species),
		Name:    strings.TrimSpace(d.Name),
	}
	if c.variant.AskCoatColor {
		sub.CoatColor = d.CoatColor
	}
	for _, sel := range c.intake.Selected() {
		sub.Files = append(sub.Files, backend.File{
			Field:       sel.SlotID,
			Filename:    sel.Photo.Filename,
			ContentType: sel.Photo.ContentType,
			Data:        sel.Photo.Data,
		})
	}
	return sub
}

// Reset clears photos, details, terms, result and error and returns to
// Idle. It fails while a submission is in flight.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return ErrSubmitInFlight
	}
	c.intake.Reset()
	c.details.Reset()
	c.terms = false
	c.errMsg = ""
	c.result = nil
	c.state = Idle
	return nil
}

// Wait blocks until background work started by this controller (previews
// and counter notifications) has finished.
func (c *Controller) Wait() {
	c.intake.Wait()
	c.background.Wait()
}
