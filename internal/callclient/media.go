package callclient

import (
	"fmt"
	"sync"
	"time"

	"vibelink/backend/internal/errs"

	"github.com/pion/webrtc/v4"
)

// MediaSource produces the local tracks of one endpoint and releases
// the underlying devices on Close. Implementations wrap whatever
// capture backend the platform offers; StaticSource serves tests and
// headless loopback use.
type MediaSource interface {
	AudioTrack() (*webrtc.TrackLocalStaticSample, error)
	VideoTrack() (*webrtc.TrackLocalStaticSample, error)
	Close() error
}

// StaticSource builds Opus/VP8 sample tracks that a producer goroutine
// can feed. Close is idempotent.
type StaticSource struct {
	mu     sync.Mutex
	closed bool
}

func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) AudioTrack() (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "vibelink-audio",
	)
}

func (s *StaticSource) VideoTrack() (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "vibelink-video",
	)
}

func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether the source has been released.
func (s *StaticSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// acquireTracks asks the source for the local tracks, bounded by the
// device-acquisition timeout. Capture backends can hang on a permission
// prompt or a claimed device; the caller gets errs.ErrMediaAccess
// instead of waiting forever.
func acquireTracks(src MediaSource, withVideo bool, timeout time.Duration) (*webrtc.TrackLocalStaticSample, *webrtc.TrackLocalStaticSample, error) {
	type result struct {
		audio *webrtc.TrackLocalStaticSample
		video *webrtc.TrackLocalStaticSample
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		var r result
		r.audio, r.err = src.AudioTrack()
		if r.err == nil && withVideo {
			r.video, r.err = src.VideoTrack()
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errs.ErrMediaAccess, r.err)
		}
		return r.audio, r.video, nil
	case <-time.After(timeout):
		return nil, nil, fmt.Errorf("%w: device acquisition timed out after %s", errs.ErrMediaAccess, timeout)
	}
}
