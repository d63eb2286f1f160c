// Command stickerctl classifies OCR text files from the command line using the
// same resolver as the sticker service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/safetag/safetag-backend/internal/verification/address"
	"github.com/safetag/safetag-backend/internal/verification/classifier"
	"github.com/safetag/safetag-backend/internal/verification/domain"
	"github.com/safetag/safetag-backend/internal/verification/policy"
	"github.com/safetag/safetag-backend/internal/verification/resolver"
	"github.com/safetag/safetag-backend/internal/verification/service"
	"github.com/safetag/safetag-backend/internal/verification/storage"
	"github.com/safetag/safetag-backend/pkg/config"
	apperrors "github.com/safetag/safetag-backend/pkg/errors"
	"github.com/safetag/safetag-backend/pkg/logger"
)

// configName selects config/<name>.yaml; the CLI shares the service's policy
// thresholds and SAFETAG_POLICY_* overrides
const configName = "sticker-service"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		today     = flag.String("today", "", "Evaluation date YYYY-MM-DD (default: today, UTC)")
		dueDate   = flag.String("due-date", "", "Explicit due date for pregnancy documents")
		validDays = flag.String("valid-days", "", "Validity override in days")
		rules     = flag.String("rules", "", "Address table file (.json, .yaml or .yml)")
		asJSON    = flag.Bool("json", false, "Print decisions as JSON lines")
		noColor   = flag.Bool("no-color", false, "Disable colored output")
		verbose   = flag.Bool("verbose", false, "Log resolver diagnostics to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stickerctl [flags] [file...]\n\nReads OCR text from each file, or stdin when none are given.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, "stickerctl", level)

	var addresses *address.Cache
	if *rules != "" {
		addresses = address.NewCache(address.NewFileSource(*rules), log)
	}

	policyCfg, err := loadPolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stickerctl: %v\n", err)
		return 2
	}

	res := resolver.New(classifier.New(), policy.NewEngine(policy.DefaultRegistry(policyCfg)), addresses, log)
	store := storage.NewDecisionStore(time.Minute)
	defer store.Close()
	svc := service.New(res, store, log)

	p := &printer{out: os.Stdout, json: *asJSON}
	base := service.ClassifyRequest{DueDate: *dueDate, ValidDays: *validDays, Today: *today}

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	exit := 0
	for _, name := range inputs {
		text, err := readInput(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			exit = 1
			continue
		}

		req := base
		req.OCRText = text
		d, err := svc.Classify(context.Background(), req)
		if err != nil && !errors.Is(err, apperrors.ErrUnclassifiable) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			exit = 1
			continue
		}
		if err := p.print(name, d); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			exit = 1
		}
	}
	return exit
}

func loadPolicy() (policy.Config, error) {
	cfg, err := config.Load(configName)
	if err != nil {
		return policy.Config{}, err
	}
	if err := cfg.Policy.Validate(); err != nil {
		return policy.Config{}, err
	}
	return policy.Config(cfg.Policy), nil
}

func readInput(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	return string(b), err
}

var typeColors = map[domain.DocumentType]*color.Color{
	domain.DocumentTypePregnant: color.New(color.FgMagenta, color.Bold),
	domain.DocumentTypeDisabled: color.New(color.FgCyan, color.Bold),
	domain.DocumentTypeResident: color.New(color.FgGreen, color.Bold),
	domain.DocumentTypeUnknown:  color.New(color.FgRed, color.Bold),
}

type printer struct {
	out  io.Writer
	json bool
}

func (p *printer) print(name string, d *domain.Decision) error {
	if p.json {
		return json.NewEncoder(p.out).Encode(struct {
			File string `json:"file"`
			*domain.Decision
		}{name, d})
	}

	label := string(d.DocumentType)
	if c, ok := typeColors[d.DocumentType]; ok {
		label = c.Sprint(d.DocumentType)
	}

	fmt.Fprintf(p.out, "%s: %s %d days via %s", name, label, d.ValidDays, d.SourcePath)
	if d.ResolvedDate != nil {
		fmt.Fprintf(p.out, ", resolved %s", d.ResolvedDate)
	}
	if d.MatchedApartment != "" {
		fmt.Fprintf(p.out, ", apartment %s", color.New(color.FgYellow).Sprint(d.MatchedApartment))
	}
	fmt.Fprintln(p.out)
	return nil
}
