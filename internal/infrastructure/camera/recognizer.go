package camera

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/domain/tap"
)

// ErrInactive is returned when frames are submitted while scanning is off.
var ErrInactive = errors.New("recognizer inactive")

const (
	debounceEntries = 256
	// corners are snapped to this grid when building debounce keys
	cornerGrid = 8.0
)

// Code is one decoded code within a camera frame.
type Code struct {
	Payload string      `json:"payload"`
	Corners []tap.Point `json:"corners"`
}

// SubmitResult reports what happened to a submitted frame.
type SubmitResult struct {
	Forwarded int `json:"forwarded"`
	Debounced int `json:"debounced"`
	Dropped   int `json:"dropped"`
}

// FrameRecognizer turns decoded frames pushed by a device bridge into scan
// events. Frames are dropped while inactive; identical detections within the
// debounce window are forwarded once.
type FrameRecognizer struct {
	debounce time.Duration
	now      func() time.Time
	log      zerolog.Logger
	scans    chan tap.ScanDetected

	mu     sync.Mutex
	active bool
	gen    tap.Generation
	facing tap.CameraFacing
	seen   *lru.Cache
}

// NewFrameRecognizer creates an inactive recognizer facing the back camera.
func NewFrameRecognizer(debounce time.Duration, log zerolog.Logger) (*FrameRecognizer, error) {
	seen, err := lru.New(debounceEntries)
	if err != nil {
		return nil, fmt.Errorf("create debounce cache: %w", err)
	}
	return &FrameRecognizer{
		debounce: debounce,
		now:      time.Now,
		log:      log.With().Str("component", "recognizer").Logger(),
		scans:    make(chan tap.ScanDetected, 32),
		facing:   tap.FacingBack,
		seen:     seen,
	}, nil
}

// Scans implements tap.Recognizer.
func (r *FrameRecognizer) Scans() <-chan tap.ScanDetected {
	return r.scans
}

// Activate implements tap.Recognizer.
func (r *FrameRecognizer) Activate(gen tap.Generation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = true
	r.gen = gen
	r.seen.Purge()
	r.log.Debug().Uint64("generation", uint64(gen)).Str("facing", string(r.facing)).Msg("recognizer active")
}

// Deactivate implements tap.Recognizer.
func (r *FrameRecognizer) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.log.Debug().Msg("recognizer inactive")
	}
	r.active = false
}

// SetFacing implements tap.Recognizer.
func (r *FrameRecognizer) SetFacing(facing tap.CameraFacing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.facing != facing {
		r.seen.Purge()
	}
	r.facing = facing
}

// Active reports whether frames are currently accepted.
func (r *FrameRecognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Facing returns the camera currently feeding the recognizer.
func (r *FrameRecognizer) Facing() tap.CameraFacing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facing
}

// Submit forwards every code of one frame as a scan event. Codes are judged
// one by one downstream, so an unreadable code never hides the others.
func (r *FrameRecognizer) Submit(codes []Code) (SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res SubmitResult
	if !r.active {
		return res, ErrInactive
	}

	now := r.now()
	for _, code := range codes {
		key := debounceKey(code)
		if last, ok := r.seen.Get(key); ok && now.Sub(last.(time.Time)) < r.debounce {
			res.Debounced++
			continue
		}
		r.seen.Add(key, now)

		scan := tap.ScanDetected{
			Gen:     r.gen,
			Payload: code.Payload,
			Corners: append([]tap.Point(nil), code.Corners...),
		}
		select {
		case r.scans <- scan:
			res.Forwarded++
		default:
			res.Dropped++
		}
	}
	if res.Dropped > 0 {
		r.log.Warn().Int("dropped", res.Dropped).Msg("scan buffer full")
	}
	return res, nil
}

func debounceKey(code Code) string {
	var b strings.Builder
	b.WriteString(code.Payload)
	for _, p := range code.Corners {
		fmt.Fprintf(&b, "|%d,%d", int(math.Round(p.X/cornerGrid)), int(math.Round(p.Y/cornerGrid)))
	}
	return b.String()
}
