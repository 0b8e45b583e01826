package model

import (
	"math"

	"github.com/okian/hoopfuse/internal/domain/geometry"
)

// BBox and Point are re-exported so callers rarely import geometry directly.
type (
	BBox  = geometry.BBox
	Point = geometry.Point
)

// TeamID identifies a team. Detections may leave it empty when unassigned.
type TeamID string

const (
	TeamA       TeamID = "teamA"
	TeamB       TeamID = "teamB"
	TeamUnknown TeamID = "unknown"
)

// Known reports whether t names an actual team.
func (t TeamID) Known() bool {
	return t != "" && t != TeamUnknown
}

// Opponent returns the other team for the two-team case.
func (t TeamID) Opponent() TeamID {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	default:
		return TeamUnknown
	}
}

// PersonDetection is one detected person in a sampled frame.
type PersonDetection struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
	TeamID     TeamID  `json:"teamId,omitempty"`
	PlayerID   string  `json:"playerId,omitempty"`
}

// BallDetection is one detected ball.
type BallDetection struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Keypoint is one pose landmark.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Point returns the keypoint position.
func (k Keypoint) Point() Point { return Point{X: k.X, Y: k.Y} }

// COCO keypoint indices used by the detectors.
const (
	KeypointNose          = 0
	KeypointLeftShoulder  = 5
	KeypointRightShoulder = 6
	KeypointLeftElbow     = 7
	KeypointRightElbow    = 8
	KeypointLeftWrist     = 9
	KeypointRightWrist    = 10
	KeypointLeftHip       = 11
	KeypointRightHip      = 12
	KeypointCount         = 17
)

// Side selects the left or right limb.
type Side int

const (
	Left Side = iota
	Right
)

// PoseFrame is a 17-keypoint pose in COCO order.
type PoseFrame struct {
	Keypoints []Keypoint `json:"keypoints"`
	Box       BBox       `json:"box"`
	TeamID    TeamID     `json:"teamId,omitempty"`
	PlayerID  string     `json:"playerId,omitempty"`
}

func (p PoseFrame) keypoint(i int) (Keypoint, bool) {
	if i < 0 || i >= len(p.Keypoints) {
		return Keypoint{}, false
	}
	return p.Keypoints[i], true
}

// Wrist returns the wrist keypoint on side s.
func (p PoseFrame) Wrist(s Side) (Keypoint, bool) {
	if s == Left {
		return p.keypoint(KeypointLeftWrist)
	}
	return p.keypoint(KeypointRightWrist)
}

// Shoulder returns the shoulder keypoint on side s.
func (p PoseFrame) Shoulder(s Side) (Keypoint, bool) {
	if s == Left {
		return p.keypoint(KeypointLeftShoulder)
	}
	return p.keypoint(KeypointRightShoulder)
}

// WristsAboveShoulders reports whether both wrists sit above their shoulders
// (smaller y) with every involved keypoint at or above minConf. The second
// value is the mean confidence of those four keypoints.
func (p PoseFrame) WristsAboveShoulders(minConf float64) (bool, float64) {
	var sum float64
	for _, s := range []Side{Left, Right} {
		w, okW := p.Wrist(s)
		sh, okS := p.Shoulder(s)
		if !okW || !okS || w.Confidence < minConf || sh.Confidence < minConf {
			return false, 0
		}
		if w.Y >= sh.Y {
			return false, 0
		}
		sum += w.Confidence + sh.Confidence
	}
	return true, sum / 4
}

// RGB is a jersey colour centroid.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// TeamCluster is one output of the upstream jersey-colour clustering.
type TeamCluster struct {
	Centroid    RGB    `json:"centroid"`
	TeamID      TeamID `json:"teamId"`
	SampleCount int    `json:"sampleCount"`
}

// HoopRegion is a detected hoop.
type HoopRegion struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
}

// ScoreReading is one scoreboard OCR observation.
type ScoreReading struct {
	Timestamp  float64 `json:"timestamp"`
	TeamA      int     `json:"teamA"`
	TeamB      int     `json:"teamB"`
	Confidence float64 `json:"confidence"`
}

// ShotCandidate is a pose-derived shooting-form observation.
type ShotCandidate struct {
	FrameIndex   int        `json:"frameIndex"`
	Timestamp    float64    `json:"timestamp"`
	PlayerID     string     `json:"playerId,omitempty"`
	TeamID       TeamID     `json:"teamId,omitempty"`
	Box          BBox       `json:"box"`
	Keypoints    []Keypoint `json:"keypoints,omitempty"`
	ArmElevation float64    `json:"armElevation"`
	Handedness   string     `json:"handedness,omitempty"`
	Confidence   float64    `json:"confidence"`
}

// Signals bundles every stream of one clip. FPS, FrameWidth and FrameHeight
// are required; Duration is derived from the streams when zero.
type Signals struct {
	FPS         float64 `json:"fps"`
	FrameWidth  float64 `json:"frameWidth"`
	FrameHeight float64 `json:"frameHeight"`
	Duration    float64 `json:"duration,omitempty"`
	FrameCount  int     `json:"frameCount,omitempty"`

	Persons        Stream[PersonDetection] `json:"persons,omitempty"`
	Balls          Stream[BallDetection]   `json:"balls,omitempty"`
	Poses          Stream[PoseFrame]       `json:"poses,omitempty"`
	Hoops          Stream[HoopRegion]      `json:"hoops,omitempty"`
	ShotCandidates []ShotCandidate         `json:"shotCandidates,omitempty"`
	ScoreReadings  []ScoreReading          `json:"scoreReadings,omitempty"`
	TeamClusters   []TeamCluster           `json:"teamClusters,omitempty"`
}

// LastTimestamp returns the latest timestamp found in any stream.
func (s *Signals) LastTimestamp() float64 {
	last := 0.0
	last = math.Max(last, s.Persons.LastTimestamp())
	last = math.Max(last, s.Balls.LastTimestamp())
	last = math.Max(last, s.Poses.LastTimestamp())
	last = math.Max(last, s.Hoops.LastTimestamp())
	for _, c := range s.ShotCandidates {
		last = math.Max(last, c.Timestamp)
	}
	for _, r := range s.ScoreReadings {
		last = math.Max(last, r.Timestamp)
	}
	return last
}

// ClipDuration is Duration when set, otherwise the last observed timestamp.
func (s *Signals) ClipDuration() float64 {
	if s.Duration > 0 {
		return s.Duration
	}
	return s.LastTimestamp()
}

// Teams returns the team ids known from clusters, or both default teams.
func (s *Signals) Teams() []TeamID {
	var teams []TeamID
	seen := make(map[TeamID]bool)
	for _, c := range s.TeamClusters {
		if c.TeamID.Known() && !seen[c.TeamID] {
			seen[c.TeamID] = true
			teams = append(teams, c.TeamID)
		}
	}
	if len(teams) == 0 {
		return []TeamID{TeamA, TeamB}
	}
	return teams
}

// TimestampFor derives a frame timestamp. A known clip duration and frame
// count take precedence over the sampling rate.
func TimestampFor(frameIndex int, fps, duration float64, frameCount int) float64 {
	if duration > 0 && frameCount > 0 {
		return float64(frameIndex) * duration / float64(frameCount)
	}
	if fps > 0 {
		return float64(frameIndex) / fps
	}
	return 0
}
