// Package callclient is the per-endpoint side of a call: it owns local
// media, applies inbound signaling and reports connection-state
// transitions upward. The signaling transport is abstracted behind the
// Signaler interface; the hub's websocket is the production one.
package callclient

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"vibelink/backend/internal/models"

	"github.com/pion/webrtc/v4"
)

// State is the transport connectivity state reported upward, mapped 1:1
// from pion's PeerConnectionState.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
	StateClosed       State = "closed"
)

// DefaultAcquireTimeout bounds media device acquisition when the caller
// does not supply a timeout. Capture backends can hang on a permission
// prompt or a claimed device.
const DefaultAcquireTimeout = 10 * time.Second

// Signaler carries outbound signaling messages to the peer. The only
// surface this package needs from the realtime layer.
type Signaler interface {
	Send(msg models.SignalingMessage) error
}

// Client is one endpoint of a call session.
type Client struct {
	sessionID string
	userID    string

	pc      *webrtc.PeerConnection
	sig     Signaler
	onState func(State)

	mu         sync.Mutex
	source     MediaSource
	audioTrack *webrtc.TrackLocalStaticSample
	videoTrack *webrtc.TrackLocalStaticSample
	audioOn    bool
	videoOn    bool

	endOnce sync.Once
	ended   bool
}

// New acquires local media (audio always, video for video calls),
// builds the peer connection and wires ICE/state callbacks. Device
// acquisition is bounded by acquireTimeout and surfaces
// errs.ErrMediaAccess on failure.
func New(sessionID, userID, callType string, src MediaSource, sig Signaler, onState func(State), acquireTimeout time.Duration) (*Client, error) {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	withVideo := callType == models.CallTypeVideo

	audio, video, err := acquireTracks(src, withVideo, acquireTimeout)
	if err != nil {
		return nil, err
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	c := &Client{
		sessionID:  sessionID,
		userID:     userID,
		pc:         pc,
		sig:        sig,
		onState:    onState,
		source:     src,
		audioTrack: audio,
		videoTrack: video,
		audioOn:    true,
		videoOn:    video != nil,
	}

	if _, err := pc.AddTrack(audio); err != nil {
		c.EndCall()
		return nil, fmt.Errorf("add audio track: %w", err)
	}
	if video != nil {
		if _, err := pc.AddTrack(video); err != nil {
			c.EndCall()
			return nil, fmt.Errorf("add video track: %w", err)
		}
	}

	// Candidates go out in generation order; the transport guarantees
	// ordered delivery, so the peer applies them in sequence.
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		payload, err := json.Marshal(cand.ToJSON())
		if err != nil {
			log.Printf("CALL [%s]: marshal candidate: %v", sessionID, err)
			return
		}
		c.send(models.SignalICECandidate, payload)
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if c.onState != nil {
			c.onState(mapPeerState(s))
		}
	})

	return c, nil
}

// StartOffer creates and sends the SDP offer. The matched side flagged
// as initiator calls this once signaling is up.
func (c *Client) StartOffer() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	payload, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return c.send(models.SignalOffer, payload)
}

// HandleSignal applies one inbound signaling message. Messages must be
// fed in the order the peer sent them.
func (c *Client) HandleSignal(msg models.SignalingMessage) error {
	switch msg.Kind {
	case models.SignalOffer:
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(msg.Payload, &offer); err != nil {
			return fmt.Errorf("decode offer: %w", err)
		}
		if err := c.pc.SetRemoteDescription(offer); err != nil {
			return fmt.Errorf("set remote offer: %w", err)
		}
		answer, err := c.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local answer: %w", err)
		}
		payload, err := json.Marshal(answer)
		if err != nil {
			return err
		}
		return c.send(models.SignalAnswer, payload)

	case models.SignalAnswer:
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(msg.Payload, &answer); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		return c.pc.SetRemoteDescription(answer)

	case models.SignalICECandidate:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(msg.Payload, &cand); err != nil {
			return fmt.Errorf("decode candidate: %w", err)
		}
		return c.pc.AddICECandidate(cand)

	case models.SignalHangup:
		c.EndCall()
		return nil

	default:
		return fmt.Errorf("unknown signal kind %q", msg.Kind)
	}
}

// ToggleAudio flips the local audio track and returns the resulting
// enabled state. Returns false without error when no audio track exists.
func (c *Client) ToggleAudio() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioTrack == nil || c.ended {
		return false
	}
	c.audioOn = !c.audioOn
	return c.audioOn
}

// ToggleVideo flips the local video track and returns the resulting
// enabled state. A voice call has no video track, so this returns
// false; the caller must not treat that as an error.
func (c *Client) ToggleVideo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.videoTrack == nil || c.ended {
		return false
	}
	c.videoOn = !c.videoOn
	return c.videoOn
}

// AudioEnabled reports whether local audio is currently live.
func (c *Client) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioTrack != nil && c.audioOn && !c.ended
}

// VideoEnabled reports whether local video is currently live.
func (c *Client) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoTrack != nil && c.videoOn && !c.ended
}

// EndCall releases local media and closes the peer connection. Runs
// exactly once no matter how many triggers fire: explicit hangup,
// remote hangup and navigation teardown may all race here.
func (c *Client) EndCall() {
	c.endOnce.Do(func() {
		c.mu.Lock()
		c.ended = true
		c.audioOn = false
		c.videoOn = false
		src := c.source
		c.mu.Unlock()

		if src != nil {
			if err := src.Close(); err != nil {
				log.Printf("CALL [%s]: media source close: %v", c.sessionID, err)
			}
		}
		if err := c.pc.Close(); err != nil {
			log.Printf("CALL [%s]: peer connection close: %v", c.sessionID, err)
		}
		log.Printf("CALL [%s]: ended", c.sessionID)
	})
}

// Ended reports whether EndCall already ran.
func (c *Client) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

func (c *Client) send(kind string, payload json.RawMessage) error {
	return c.sig.Send(models.SignalingMessage{
		SessionID:  c.sessionID,
		FromUserID: c.userID,
		Kind:       kind,
		Payload:    payload,
	})
}

// mapPeerState maps pion connectivity states 1:1 onto the states the
// session coordinator understands.
func mapPeerState(s webrtc.PeerConnectionState) State {
	switch s {
	case webrtc.PeerConnectionStateConnected:
		return StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StateConnecting
	}
}
