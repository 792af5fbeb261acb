// Package events defines the typed dialogue event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - turn_state.*
//   - assistant_reveal.*
//   - assistant_playback.*
//   - readiness.*
//
// Semantics used across the package:
//
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text for the current utterance.
//   - Frame: cumulative revealed text, each frame extends the previous one.
//   - Failed: non-fatal error, the dialogue keeps running.
//
// user_input events
//
//   - CaptureStarted (user_input.capture_started): recognizer started listening.
//   - CaptureEnded (user_input.capture_ended): recognizer stopped, the mic may
//     be re-enabled.
//   - CaptureFailed (user_input.capture_failed): recognition error, carries a
//     *dialogue.CaptureError.
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim hypothesis, for live captions only.
//   - UserTranscriptFinal (user_input.transcript_final): trimmed final
//     utterance handed to dispatch.
//
// turn_state events
//
//   - TurnPending (turn_state.pending): reply requested, placeholder shown.
//   - TurnCompleted (turn_state.completed): pending turn resolved with a reply.
//   - TurnFailed (turn_state.failed): pending turn resolved with an error.
//   - DispatchRejected (turn_state.dispatch_rejected): utterance dropped while
//     a reply was pending.
//
// assistant_reveal events
//
//   - RevealStarted (assistant_reveal.started)
//   - RevealFrame (assistant_reveal.frame)
//   - RevealCompleted (assistant_reveal.completed)
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): narration started.
//   - AssistantPlaybackLoaded (assistant_playback.loaded): narration attached
//     while muted, starts on unmute.
//   - AssistantPlaybackFailed (assistant_playback.failed): narration failed,
//     the reveal is unaffected.
//   - AssistantPlaybackMuteChanged (assistant_playback.mute_changed)
//
// readiness events
//
//   - ReadinessChanged (readiness.changed): ready indicator toggled.
package events
