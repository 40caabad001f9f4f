// Package audio fetches audio assets over HTTP and plays them through a
// single shared output.
//
// An Output owns the audio device, a mixer and the shared gain stage. It is
// constructed once and handed to every Player that should route through it.
// A Player retries an asset that answers 404 while it is still being
// generated, decodes WAV, MP3 or Ogg Vorbis bodies with beep, and starts a
// one-shot source on the Output. Every call returns a Result that says what
// happened instead of failing silently.
package audio
