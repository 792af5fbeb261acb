package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-hal/core/audio"
	"github.com/koscakluka/ema-hal/core/speechtotext"
)

// recognitionPass is one websocket session. It ends exactly once, either on
// Stop, on the first final utterance of a non-continuous pass, or on a
// connection error.
type recognitionPass struct {
	recognizer *Recognizer
	conn       *websocket.Conn
	connMu     sync.Mutex
	options    speechtotext.RecognitionOptions
	cancel     context.CancelFunc

	endOnce   sync.Once
	ended     atomic.Bool
	lastAudio atomic.Int64

	// accumulated is only touched by the reader goroutine.
	accumulated string
}

func (p *recognitionPass) touch() {
	p.lastAudio.Store(time.Now().UnixNano())
}

func (p *recognitionPass) sinceLastAudio() time.Duration {
	return time.Since(time.Unix(0, p.lastAudio.Load()))
}

func (p *recognitionPass) sendAudio(audio []byte) {
	p.touch()
	if err := p.write(websocket.BinaryMessage, audio); err != nil && !p.ended.Load() {
		logger.Warn("failed to send audio to deepgram", "error", err)
	}
}

// attach hands the dialed connection to the pass. It reports false when the
// pass ended while connecting.
func (p *recognitionPass) attach(conn *websocket.Conn) bool {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.ended.Load() {
		return false
	}
	p.conn = conn
	return true
}

func (p *recognitionPass) write(messageType int, data []byte) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn == nil {
		return errors.New("connection closed")
	}
	return p.conn.WriteMessage(messageType, data)
}

func (p *recognitionPass) writeControl(messageType api.TypeResponse) error {
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: string(messageType)})
	if err != nil {
		return err
	}
	return p.write(websocket.TextMessage, payload)
}

// end closes the pass and reports it. An empty code reports a normal end.
func (p *recognitionPass) end(code string) {
	if !p.close() {
		return
	}

	if code != "" {
		p.options.ErrorCallback(code)
		return
	}
	p.options.EndCallback()
}

// shutdown closes the pass without reporting it.
func (p *recognitionPass) shutdown() {
	p.close()
}

func (p *recognitionPass) close() (closed bool) {
	p.endOnce.Do(func() {
		closed = true
		p.ended.Store(true)
		p.cancel()

		if source := p.recognizer.source; source != nil {
			if err := source.StopCapture(); err != nil {
				logger.Warn("failed to stop audio capture", "error", err)
			}
		}

		if err := p.writeControl(api.TypeCloseStreamResponse); err != nil {
			logger.Debug("failed to close deepgram stream", "error", err)
		}

		p.connMu.Lock()
		if p.conn != nil {
			_ = p.conn.Close()
			p.conn = nil
		}
		p.connMu.Unlock()

		p.recognizer.release(p)
	})
	return closed
}

func (p *recognitionPass) readMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || p.ended.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				p.end("")
				return
			}

			logger.Warn("failed to read deepgram websocket message", "error", err)
			p.end(ErrorCodeNetwork)
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		if done := p.processMessage(msg); done {
			p.end("")
			return
		}
	}
}

// processMessage handles one server message and reports whether the pass is
// complete.
func (p *recognitionPass) processMessage(msg []byte) (done bool) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return false
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return false
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if p.options.InterimResults && transcript != "" {
				p.options.ResultCallback([]speechtotext.Hypothesis{{Text: joinTranscript(p.accumulated, transcript)}})
			}
			return false
		}

		p.accumulated = joinTranscript(p.accumulated, transcript)
		if msgResp.SpeechFinal {
			return p.flushUtterance()
		}

	case api.TypeUtteranceEndResponse:
		var msgResp api.UtteranceEndResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram utterance end", "error", err)
			return false
		}
		return p.flushUtterance()

	case api.TypeSpeechStartedResponse:
		logger.Debug("deepgram detected speech")
	}

	return false
}

func (p *recognitionPass) flushUtterance() (done bool) {
	if p.accumulated == "" {
		return false
	}

	utterance := p.accumulated
	p.accumulated = ""
	p.options.ResultCallback([]speechtotext.Hypothesis{{Text: utterance, IsFinal: true}})

	return !p.options.Continuous
}

func joinTranscript(accumulated, segment string) string {
	switch {
	case accumulated == "":
		return segment
	case segment == "":
		return accumulated
	default:
		return accumulated + " " + segment
	}
}

// keepAlive fills gaps in the audio stream with silence and then with
// KeepAlive messages so Deepgram does not close an idle connection.
func (p *recognitionPass) keepAlive(ctx context.Context, encoding audio.EncodingInfo) {
	type keepAliveState string
	const (
		stateWaiting   keepAliveState = "waiting"
		stateSilence   keepAliveState = "silence"
		stateKeepAlive keepAliveState = "keepAlive"
	)

	const chunkDuration = 50 * time.Millisecond
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	chunk := encoding.Silence(chunkDuration)

	state := stateWaiting
	var firstSilence, lastKeepAlive time.Time
	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		case <-ticker.C:
		}

		switch state {
		case stateWaiting:
			if p.sinceLastAudio() > chunkDuration {
				state = stateSilence
				firstSilence = time.Now()
			}

		case stateSilence:
			if p.sinceLastAudio() < chunkDuration {
				state = stateWaiting
				continue
			}
			if time.Since(firstSilence) >= time.Second {
				state = stateKeepAlive
				lastKeepAlive = time.Now()
				continue
			}
			if err := p.write(websocket.BinaryMessage, chunk); err != nil && !p.ended.Load() {
				logger.Warn("failed to send silence to deepgram", "error", err)
			}

		case stateKeepAlive:
			if p.sinceLastAudio() < chunkDuration {
				state = stateWaiting
				continue
			}
			if time.Since(lastKeepAlive) >= 5*time.Second {
				lastKeepAlive = time.Now()
				if err := p.writeControl("KeepAlive"); err != nil && !p.ended.Load() {
					logger.Warn("failed to send keep alive to deepgram", "error", err)
				}
			}
		}
	}
}
