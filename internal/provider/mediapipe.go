package provider

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/hand"
)

// Camera defaults.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 20
)

const helperScript = "hand_service.py"

// CameraConfig selects the capture device and the landmark helper.
type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	FPS      int `yaml:"fps"`

	// Python and Script locate the MediaPipe helper. Empty values are
	// searched for next to the binary and under ~/.mudra.
	Python string `yaml:"python"`
	Script string `yaml:"script"`

	// IdleTimeout stops the helper after this long without a frame.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MotionThreshold, when positive, skips the helper for frames where
	// less than this percentage of pixels changed; the previous hands are
	// reported again. MotionHold keeps the helper running that long after
	// the last motion.
	MotionThreshold float64       `yaml:"motion_threshold"`
	MotionHold      time.Duration `yaml:"motion_hold"`
}

// DefaultCameraConfig returns settings for the first camera at 640x480.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		FPS:         DefaultFPS,
		IdleTimeout: 30 * time.Second,
		MotionHold:  2 * time.Second,
	}
}

// MediaPipeSource captures camera frames with gocv and converts them to
// landmarks through a Python MediaPipe helper process. The camera and the
// helper are both opened lazily on the first Read.
type MediaPipeSource struct {
	cfg CameraConfig

	mu        sync.Mutex
	capture   *gocv.VideoCapture
	mat       gocv.Mat
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
	gate      *motionGate
	last      []helperHand
	closed    bool
}

// NewMediaPipeSource checks that the helper script can be found and
// returns an unopened source.
func NewMediaPipeSource(cfg CameraConfig) (*MediaPipeSource, error) {
	if cfg.Script == "" {
		cfg.Script = findHelperScript()
	}
	if cfg.Script == "" {
		return nil, errors.Errorf("%s not found", helperScript)
	}
	if cfg.Python == "" {
		cfg.Python = findVenvPython()
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &MediaPipeSource{cfg: cfg}, nil
}

// Read grabs one camera frame and returns the hands found in it.
func (s *MediaPipeSource) Read(ctx context.Context) (hand.Frame, error) {
	if err := ctx.Err(); err != nil {
		return hand.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return hand.Frame{}, ErrClosed
	}
	if err := s.openCamera(); err != nil {
		return hand.Frame{}, err
	}
	if err := s.startHelper(); err != nil {
		return hand.Frame{}, err
	}

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return hand.Frame{}, errors.New("failed to read frame from camera")
	}
	at := time.Now()

	if s.gate != nil && s.last != nil && !s.gate.open(s.mat, at) {
		return toFrame(s.last, at), nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return hand.Frame{}, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	hands, err := exchange(s.stdin, s.stdout, buf.GetBytes())
	if err != nil {
		// The helper's stream is out of sync; restart it on the next read.
		s.stopHelper()
		return hand.Frame{}, err
	}
	s.resetIdleTimer()
	s.last = hands

	return toFrame(hands, at), nil
}

// Close releases the camera and stops the helper.
func (s *MediaPipeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.stopHelper()
	if s.capture != nil {
		if cerr := s.capture.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.mat.Close()
		s.capture = nil
	}
	if s.gate != nil {
		s.gate.close()
	}
	return err
}

func (s *MediaPipeSource) openCamera() error {
	if s.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.cfg.DeviceID)
	if err != nil {
		return errors.Wrapf(err, "open camera %d", s.cfg.DeviceID)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(s.cfg.FPS))

	s.capture = capture
	s.mat = gocv.NewMat()
	if s.cfg.MotionThreshold > 0 {
		s.gate = newMotionGate(s.cfg.MotionThreshold, s.cfg.MotionHold)
	}
	log.Printf("Camera %d opened at %dx%d", s.cfg.DeviceID, s.cfg.Width, s.cfg.Height)
	return nil
}

func (s *MediaPipeSource) startHelper() error {
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.cfg.Python, s.cfg.Script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "create stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "create stdout pipe")
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start landmark helper")
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	log.Printf("Landmark helper started (pid %d)", cmd.Process.Pid)
	return nil
}

func (s *MediaPipeSource) stopHelper() error {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.cmd == nil {
		return nil
	}

	s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	s.last = nil
	return err
}

func (s *MediaPipeSource) resetIdleTimer() {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.cfg.IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		log.Println("Landmark helper idle, stopping")
		s.stopHelper()
	})
}

// helperHand is one hand in the helper's JSON reply.
type helperHand struct {
	Points []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"points"`
	Handedness string  `json:"handedness"`
	Score      float64 `json:"score"`
}

// exchange sends one JPEG to the helper, framed by a 4-byte big-endian
// length, and reads back its single-line JSON reply.
func exchange(w io.Writer, r *bufio.Reader, jpeg []byte) ([]helperHand, error) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(jpeg)))

	if _, err := w.Write(length[:]); err != nil {
		return nil, errors.Wrap(err, "write length")
	}
	if _, err := w.Write(jpeg); err != nil {
		return nil, errors.Wrap(err, "write frame")
	}

	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	var resp struct {
		Hands []helperHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, errors.Wrap(err, "parse response")
	}
	return resp.Hands, nil
}

// toFrame converts helper hands to observations. Point counts are kept as
// reported; the pipeline rejects incomplete hands.
func toFrame(hands []helperHand, at time.Time) hand.Frame {
	frame := hand.Frame{Timestamp: at, Hands: make([]hand.Observation, 0, len(hands))}
	for _, h := range hands {
		obs := hand.Observation{
			Landmarks:  make([]hand.Point3D, len(h.Points)),
			Handedness: h.Handedness,
			Score:      h.Score,
			Timestamp:  at,
		}
		for i, p := range h.Points {
			obs.Landmarks[i] = hand.Point3D{X: p.X, Y: p.Y, Z: p.Z}
		}
		frame.Hands = append(frame.Hands, obs)
	}
	return frame
}

func findHelperScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	return firstExisting(
		filepath.Join("scripts", helperScript),
		filepath.Join("..", "scripts", helperScript),
		filepath.Join(execDir, "scripts", helperScript),
		filepath.Join(os.Getenv("HOME"), ".mudra", "scripts", helperScript),
	)
}

func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	return firstExisting(
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	)
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
