package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/ports"
)

const (
	consentText = "samtykke\n\n" +
		"du er ved at deltage i et forskningsstudie om vurdering af fødevarers bæredygtighed.\n\n" +
		"deltagelse er frivillig. du kan til enhver tid afbryde uden konsekvenser.\n" +
		"dine svar gemmes og analyseres i anonymiseret form.\n\n" +
		"tast 'y' for at give samtykke og fortsætte.\n" +
		"tast 'n' for ikke at give samtykke (eksperimentet afsluttes).\n"

	instructionsText = "opgave: hvor bæredygtigt virker produktet?\n\n" +
		"du ser ét produkt ad gangen.\n" +
		"vurdér hvor bæredygtigt det virker på en skala fra 1 til 7.\n\n" +
		"1 = slet ikke bæredygtigt\n" +
		"7 = meget bæredygtigt\n\n" +
		"tast 'q' for at afbryde. tryk enter for at starte.\n"

	doneText    = "færdig! tusind tak\n"
	abortedText = "eksperimentet er afbrudt.\n"
)

// Presenter runs a delivery session on a terminal
type Presenter struct {
	in  *bufio.Reader
	out io.Writer
	now func() time.Time
}

var _ ports.Presenter = (*Presenter)(nil)

func NewPresenter(in io.Reader, out io.Writer) *Presenter {
	return &Presenter{in: bufio.NewReader(in), out: out, now: time.Now}
}

type lineResult struct {
	line string
	err  error
}

// readLine returns the trimmed, lowercased next line. EOF and "q"/"escape"
// count as an abort. A cancelled ctx returns ctx.Err() without waiting for
// the pending read.
func (p *Presenter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	var res lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.err != nil && res.line == "" {
		if res.err == io.EOF {
			return "", core.ErrAborted
		}
		return "", res.err
	}
	line := strings.ToLower(strings.TrimSpace(res.line))
	if line == "q" || line == "escape" {
		return "", core.ErrAborted
	}
	return line, nil
}

func (p *Presenter) Consent(ctx context.Context) (bool, error) {
	fmt.Fprint(p.out, consentText)
	for {
		line, err := p.readLine(ctx)
		if err == core.ErrAborted {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch line {
		case "y", "j", "ja", "yes":
			return true, nil
		case "n", "nej", "no":
			return false, nil
		}
		fmt.Fprint(p.out, "tast 'y' eller 'n': ")
	}
}

func (p *Presenter) Instructions(ctx context.Context) error {
	fmt.Fprint(p.out, instructionsText)
	_, err := p.readLine(ctx)
	return err
}

func (p *Presenter) BlockHeader(ctx context.Context, progress string, last bool) error {
	extra := ""
	if last {
		extra = "\n\n(sidste blok)"
	}
	fmt.Fprintf(p.out, "\n%s%s\n\ntryk enter for at fortsætte.\n", progress, extra)
	_, err := p.readLine(ctx)
	return err
}

// Present shows one product and waits for a 1..7 rating. The response time
// runs from the moment the product is printed.
func (p *Presenter) Present(ctx context.Context, s stimulus.Stimulus) (int, time.Duration, error) {
	fmt.Fprintf(p.out, "\n+\n\n%s\n", Render(s))
	start := p.now()
	for {
		fmt.Fprint(p.out, "vurdering (1-7): ")
		line, err := p.readLine(ctx)
		if err != nil {
			return 0, 0, err
		}
		if r, err := strconv.Atoi(line); err == nil && stimulus.ValidRating(r) {
			return r, p.now().Sub(start), nil
		}
	}
}

func (p *Presenter) Finish(ctx context.Context, completed bool) error {
	if completed {
		fmt.Fprint(p.out, doneText)
	} else {
		fmt.Fprint(p.out, abortedText)
	}
	return nil
}

// Render draws the product card. High salience gets a framed badge.
func Render(s stimulus.Stimulus) string {
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(s.Name)
	b.WriteString("\n")
	if s.OrganicBadge {
		if s.Salience == stimulus.SalienceHigh {
			b.WriteString("  ╔════════════╗\n  ║ ØKOLOGISK  ║\n  ╚════════════╝\n")
		} else {
			b.WriteString("  (økologisk)\n")
		}
	}
	return b.String()
}
