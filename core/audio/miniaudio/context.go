// Package miniaudio plays reply narration and captures microphone audio
// through miniaudio.
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

func initContext() (*malgo.AllocatedContext, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	return audioCtx, nil
}

func freeContext(audioCtx *malgo.AllocatedContext) {
	if audioCtx == nil {
		return
	}
	_ = audioCtx.Uninit()
	audioCtx.Free()
}
