// Package transcribe converts dictated audio to text through an
// OpenAI-compatible /audio/transcriptions endpoint (Whisper).
package transcribe
