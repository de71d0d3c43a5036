package audio

import "context"

// NullDevice satisfies Device when no capture hardware is wired in. The
// grant is still minted and accepted, but the track never goes live, so
// the session behaves as listen-only without being Denied.
type NullDevice struct{}

func (NullDevice) Open(ctx context.Context, grant Grant) (Stream, error) {
	return &nullStream{}, nil
}

type nullStream struct {
	track nullTrack
}

func (s *nullStream) Track() Track { return &s.track }
func (s *nullStream) Close() error { return nil }

type nullTrack struct {
	enabled bool
}

func (t *nullTrack) Enabled() bool           { return t.enabled }
func (t *nullTrack) SetEnabled(enabled bool) { t.enabled = enabled }
func (t *nullTrack) Live() bool              { return false }
