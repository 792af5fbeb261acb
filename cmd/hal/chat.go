package main

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive dialogue",
	Long:  `Opens the transcript monitor. Type an utterance or press ctrl+l to speak it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := startSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		noSpeech, _ := cmd.Flags().GetBool("no-speech")
		noAudio, _ := cmd.Flags().GetBool("no-audio")

		adapter := tui.NewEventAdapter()
		d, cleanup, err := buildDialogue(s.ctx, s.cfg, wiring{speech: !noSpeech, audio: !noAudio}, s.logger,
			dialogue.WithEventHandler(adapter.HandleEvent),
		)
		if err != nil {
			return err
		}
		defer cleanup()
		defer d.Close()

		unsubscribe := d.SubscribeTranscript(adapter.HandleTranscript)
		defer unsubscribe()

		runErr := make(chan error, 1)
		go func() { runErr <- d.Run(s.ctx) }()

		program := tea.NewProgram(tui.NewModel(d), tea.WithAltScreen(), tea.WithContext(s.ctx))
		adapter.SetProgram(program)
		_, err = program.Run()
		adapter.SetProgram(nil)

		d.Close()
		if loopErr := <-runErr; loopErr != nil && !errors.Is(loopErr, dialogue.ErrClosed) {
			s.logger.Warn("dialogue stopped with error", slog.String("error", loopErr.Error()))
		}

		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal ui failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("no-speech", false, "Disable the microphone even when speech is configured")
	chatCmd.Flags().Bool("no-audio", false, "Disable narration playback")

	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
