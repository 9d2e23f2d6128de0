// Package events defines the typed voice session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - capture.*
//   - playback.*
//   - session.*
//
// Semantics used across the package:
//
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Final: terminal immutable text for the current listening session.
//   - Ended: lifecycle boundary indicating completion.
//   - Cancelled: lifecycle boundary indicating early termination on request.
//   - Failed: lifecycle boundary indicating an error; never fatal to the host.
//
// capture events
//
//   - CaptureStarted (capture.started): listening started for a locale.
//   - CaptureUnavailable (capture.unavailable): recognition unsupported;
//     carries the user-facing warning.
//   - CaptureTranscriptUpdated (capture.transcript_updated): live transcript
//     snapshot including the interim tail.
//   - CaptureSpeechEnded (capture.speech_ended): recognizer detected the end
//     of an utterance.
//   - CaptureTranscriptFinal (capture.transcript_final): trimmed transcript
//     emitted on stop, only when non-empty.
//   - CaptureStopped (capture.stopped): listening stopped.
//   - CaptureFailed (capture.failed): recognition failed; flags permission
//     refusal.
//
// playback events
//
//   - PlaybackStarted (playback.started): utterance audio started.
//   - PlaybackEnded (playback.ended): utterance played to completion.
//   - PlaybackCancelled (playback.cancelled): utterance stopped early.
//   - PlaybackFailed (playback.failed): utterance could not be played.
//
// session events
//
//   - SessionStateChanged (session.state_changed): IVR state transition.
//   - SessionMenuEntered (session.menu_entered): menu entered, prompt presented.
//   - SessionCommandResolved (session.command_resolved): command handed to the
//     host.
//   - SessionInputUnmatched (session.input_unmatched): input resolved nothing
//     and the menu is presented again.
package events
