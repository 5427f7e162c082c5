package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smartdog/pet-contribution/internal/archive"
	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/bundle"
	"github.com/smartdog/pet-contribution/internal/cli"
	"github.com/smartdog/pet-contribution/internal/counter"
	"github.com/smartdog/pet-contribution/internal/flow"
	"github.com/smartdog/pet-contribution/internal/pet"
	"github.com/smartdog/pet-contribution/internal/photo"
	"github.com/smartdog/pet-contribution/internal/roadmap"
	"github.com/smartdog/pet-contribution/internal/store"
)

// contributeFlags holds the values given on the command line. Anything left
// empty is asked interactively unless --no-input is set.
type contributeFlags struct {
	photos      map[string]*string
	fields      map[string]*string
	acceptTerms bool
	pick        bool
	noInput     bool
	saveResult  bool
}

func contributeCmd() *cobra.Command {
	f := contributeFlags{
		photos: make(map[string]*string),
		fields: make(map[string]*string),
	}
	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Send pet photos and details to the campaign",
		Long: `Contribute collects the photos and pet details the selected flow asks
for and submits them to the campaign backend. Values not given as flags are
asked interactively; --pick opens the native file dialog for each photo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := flow.LookupVariant(cfg.Variant)
			if err != nil {
				return err
			}
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := newClient()
			c := &contribution{
				flags:    f,
				variant:  variant,
				client:   client,
				history:  db,
				counter:  newCounter(client, db),
				prompter: cli.NewPrompter(os.Stdin, os.Stdout),
				out:      os.Stdout,
				dataDir:  cfg.DataDir,
				pick:     cli.PickPhoto,
			}
			return c.run(ctx)
		},
	}

	for _, slot := range []string{photo.SlotFrontal, photo.SlotFocinho, photo.SlotAngulo} {
		f.photos[slot] = cmd.Flags().String(slot, "", "Path of the "+slot+" photo")
	}
	f.fields[pet.FieldName] = cmd.Flags().String("name", "", "Pet name")
	f.fields[pet.FieldSpecies] = cmd.Flags().String("species", "", "Species (dog, cat)")
	f.fields[pet.FieldBreed] = cmd.Flags().String("breed", "", "Breed")
	f.fields[pet.FieldSex] = cmd.Flags().String("sex", "", "Sex (male, female)")
	f.fields[pet.FieldAge] = cmd.Flags().String("age", "", "Age, free text (e.g. \"3 anos\")")
	f.fields[pet.FieldCoatColor] = cmd.Flags().String("coat", "", "Coat colour")
	cmd.Flags().BoolVar(&f.acceptTerms, "accept-terms", false, "Accept the participation terms")
	cmd.Flags().BoolVar(&f.pick, "pick", false, "Choose photos with the native file dialog")
	cmd.Flags().BoolVar(&f.noInput, "no-input", false, "Never prompt; fail when something is missing")
	cmd.Flags().BoolVar(&f.saveResult, "save-result", false, "Download the transformed image into the data directory")
	return cmd
}

// contribution runs one contribution from the terminal.
type contribution struct {
	flags    contributeFlags
	variant  flow.Variant
	client   *backend.Client
	history  store.History
	counter  counter.Counter
	prompter *cli.Prompter
	out      io.Writer
	dataDir  string
	pick     func(label string) (string, error)
}

func (c *contribution) interactive() bool {
	return !c.flags.noInput
}

func (c *contribution) flagValue(field string) string {
	if flag := c.flags.fields[field]; flag != nil {
		return strings.TrimSpace(*flag)
	}
	return ""
}

func (c *contribution) run(ctx context.Context) error {
	ctrl := flow.New(c.variant, flow.Deps{
		Submitter: c.client,
		Notifier:  c.client,
		Counter:   c.counter,
	})
	defer ctrl.Wait()

	fmt.Fprintf(c.out, "%s: %s %s\n\n", roadmap.Brand, roadmap.FormatCount(c.counter.Read(ctx)), roadmap.CounterLabel)

	if err := c.selectPhotos(ctrl); err != nil {
		return err
	}
	if err := ctrl.Advance(); err != nil {
		return err
	}
	c.printPhotos(ctrl)

	if err := c.fillDetails(ctrl); err != nil {
		return err
	}

	for {
		fmt.Fprintln(c.out, "Enviando contribuição...")
		start := time.Now()
		res, err := ctrl.Submit(ctx)
		if err != nil {
			return err
		}

		switch r := res.(type) {
		case *flow.Success:
			c.printSuccess(r, time.Since(start))
			c.record(ctx, r, ctrl.Snapshot().Details)
			return nil
		case *flow.Failure:
			fmt.Fprintln(c.out, r.Message)
			if !c.interactive() {
				return r.Err
			}
			retry, err := c.prompter.Confirm("Tentar novamente?")
			if err != nil || !retry {
				return r.Err
			}
		}
	}
}

// selectPhotos fills every slot from flags, the file dialog or a prompt.
// Optional slots are skipped when left blank.
func (c *contribution) selectPhotos(ctrl *flow.Controller) error {
	for _, spec := range c.variant.Slots {
		p := ""
		if flag := c.flags.photos[spec.ID]; flag != nil {
			p = *flag
		}
		if p == "" && c.flags.pick {
			picked, err := c.pick(spec.Label)
			switch {
			case errors.Is(err, cli.ErrCanceled):
			case err != nil:
				return fmt.Errorf("file dialog: %w", err)
			default:
				p = picked
			}
		}
		if p == "" && c.interactive() {
			label := spec.Label
			if !spec.Required {
				label += " (opcional)"
			}
			answer, err := c.prompter.Ask(label, "")
			if err != nil {
				return err
			}
			p = answer
		}
		if p == "" {
			continue
		}

		resolved, err := cli.ValidatePhotoPath(p)
		if err != nil {
			return err
		}
		loaded, err := photo.Load(resolved)
		if err != nil {
			return err
		}
		if !ctrl.SelectPhoto(spec.ID, loaded) {
			log.Warn().Str("slot", spec.ID).Str("path", resolved).Msg("Selection is not an image, ignored")
			fmt.Fprintf(c.out, "Arquivo ignorado (não é uma imagem): %s\n", resolved)
		}
	}
	return nil
}

func (c *contribution) printPhotos(ctrl *flow.Controller) {
	ctrl.Intake().Wait()
	for _, s := range ctrl.Snapshot().Slots {
		if !s.Filled {
			continue
		}
		line := fmt.Sprintf("  %s: %s", s.Label, s.Filename)
		if s.Summary != nil && s.Summary.Width > 0 {
			line += fmt.Sprintf(" (%dx%d", s.Summary.Width, s.Summary.Height)
			if s.Summary.HasDate() {
				line += ", " + s.Summary.DateTaken.Format("02/01/2006")
			}
			line += ")"
		}
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out)
}

// fillDetails sets every field the variant asks for, in form order.
func (c *contribution) fillDetails(ctrl *flow.Controller) error {
	type field struct {
		name, label string
		options     []cli.Option
	}
	fields := []field{}
	if c.variant.RequireName || c.flagValue(pet.FieldName) != "" {
		fields = append(fields, field{name: pet.FieldName, label: "Nome do pet"})
	}
	fields = append(fields,
		field{pet.FieldSpecies, "Espécie", []cli.Option{
			{Value: string(pet.SpeciesDog), Label: pet.SpeciesDog.Label()},
			{Value: string(pet.SpeciesCat), Label: pet.SpeciesCat.Label()},
		}},
		field{name: pet.FieldBreed, label: "Raça"},
		field{pet.FieldSex, "Sexo", []cli.Option{
			{Value: string(pet.SexMale), Label: pet.SexMale.Label()},
			{Value: string(pet.SexFemale), Label: pet.SexFemale.Label()},
		}},
		field{name: pet.FieldAge, label: "Idade"},
	)
	if c.variant.AskCoatColor {
		colors := make([]cli.Option, 0, len(pet.CoatColors))
		for _, color := range pet.CoatColors {
			colors = append(colors, cli.Option{Value: color, Label: color})
		}
		fields = append(fields, field{pet.FieldCoatColor, "Cor da pelagem", colors})
	}

	for _, fd := range fields {
		value := c.flagValue(fd.name)
		if value == "" && c.interactive() {
			var err error
			switch {
			case fd.options != nil:
				value, err = c.prompter.Choose(fd.label, fd.options)
			case fd.name == pet.FieldBreed:
				species := ctrl.Snapshot().Details.Species
				fmt.Fprintf(c.out, "Sugestões: %s\n", strings.Join(pet.BreedOptions(species), ", "))
				value, err = c.prompter.Ask(fd.label, "")
			default:
				value, err = c.prompter.Ask(fd.label, "")
			}
			if err != nil {
				return err
			}
		}
		if value == "" {
			continue
		}
		if err := ctrl.SetField(fd.name, value); err != nil {
			return err
		}
	}

	if c.variant.RequireTerms {
		accepted := c.flags.acceptTerms
		if !accepted && c.interactive() {
			var err error
			accepted, err = c.prompter.Confirm("Aceita os termos de participação da campanha?")
			if err != nil {
				return err
			}
		}
		ctrl.SetTermsAccepted(accepted)
	}
	return nil
}

func (c *contribution) printSuccess(r *flow.Success, d time.Duration) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, r.Message)
	fmt.Fprintf(c.out, "  Protocolo:      %s\n", r.Session)
	fmt.Fprintf(c.out, "  Contribuições:  %s\n", roadmap.FormatCount(r.Count))
	if r.HumanAge != nil {
		fmt.Fprintf(c.out, "  Idade humana:   %s\n", cli.FormatHumanAge(r.HumanAge))
	}
	if r.TransformedImageURL != "" && !strings.HasPrefix(r.TransformedImageURL, "data:") {
		fmt.Fprintf(c.out, "  Imagem:         %s\n", r.TransformedImageURL)
	}
	fmt.Fprintf(c.out, "  Tempo:          %s\n", cli.FormatDurationShort(d))
}

// record stores the receipt and, when asked, the transformed image. Both
// are best effort: the contribution is already accepted.
func (c *contribution) record(ctx context.Context, r *flow.Success, d pet.Details) {
	receipt := r.Receipt(c.variant.Name, d, time.Now())
	if err := c.history.AddReceipt(ctx, receipt); err != nil {
		log.Warn().Err(err).Str("sessionId", r.Session).Msg("Failed to record contribution history")
	}
	if !c.flags.saveResult || r.TransformedImageURL == "" {
		return
	}
	saved, err := c.saveResult(ctx, r)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", r.Session).Msg("Failed to save transformed image")
		return
	}
	fmt.Fprintf(c.out, "  Resultado salvo: %s\n", saved)
}

func (c *contribution) saveResult(ctx context.Context, r *flow.Success) (string, error) {
	data, contentType, err := c.client.FetchImage(ctx, r.TransformedImageURL)
	if err != nil {
		return "", err
	}
	filename := ""
	if !strings.HasPrefix(r.TransformedImageURL, "data:") {
		filename = path.Base(r.TransformedImageURL)
	}
	ext := archive.Extension(&photo.Photo{Filename: filename, ContentType: contentType})

	if err := os.MkdirAll(bundle.ResultsDir(c.dataDir), 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	dest := bundle.ResultPath(c.dataDir, r.Session, ext)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return dest, nil
}
