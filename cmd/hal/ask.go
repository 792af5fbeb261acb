package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/core/events"
)

var errReplyFailed = errors.New(dialogue.ErrorText)

var askCmd = &cobra.Command{
	Use:   "ask <utterance>",
	Short: "Send one utterance and print the reply as it is revealed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := startSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		utterance := strings.TrimSpace(strings.Join(args, " "))
		if utterance == "" {
			return errors.New("utterance must not be blank")
		}

		if cmd.Flags().Changed("speed") {
			speed, _ := cmd.Flags().GetDuration("speed")
			s.cfg.Reveal.SpeedMS = int(speed.Milliseconds())
		}

		printer := newRevealPrinter(cmd.OutOrStdout())
		d, cleanup, err := buildDialogue(s.ctx, s.cfg, wiring{}, s.logger,
			dialogue.WithEventHandler(printer.handle),
		)
		if err != nil {
			return err
		}
		defer cleanup()
		defer d.Close()

		go func() { _ = d.Run(s.ctx) }()

		if err := d.SubmitUtterance(utterance); err != nil {
			return err
		}

		select {
		case <-printer.done:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}

		transcript := d.Transcript()
		if last := transcript[len(transcript)-1]; last.Status == dialogue.StatusErrored {
			return errReplyFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Duration("speed", 0, "Delay between revealed characters (defaults to reveal.speed_ms)")
}

// revealPrinter writes the reveal of the reply incrementally and signals
// done once the dialogue is ready again.
type revealPrinter struct {
	out     io.Writer
	printed int
	started bool

	done     chan struct{}
	doneOnce sync.Once
}

func newRevealPrinter(out io.Writer) *revealPrinter {
	return &revealPrinter{out: out, done: make(chan struct{})}
}

func (p *revealPrinter) handle(event events.Event) {
	switch e := event.(type) {
	case events.TurnPending:
		p.started = true
	case events.RevealFrame:
		if len(e.Text) > p.printed {
			fmt.Fprint(p.out, e.Text[p.printed:])
			p.printed = len(e.Text)
		}
	case events.ReadinessChanged:
		if e.Ready && p.started {
			fmt.Fprintln(p.out)
			p.doneOnce.Do(func() { close(p.done) })
		}
	}
}
