// Package ingest decodes fusion requests and cleans the signal streams before
// they reach the engine.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

// Stream names used in reports, errors and metrics.
const (
	StreamPersons        = "persons"
	StreamBalls          = "balls"
	StreamPoses          = "poses"
	StreamHoops          = "hoops"
	StreamShotCandidates = "shot_candidates"
	StreamScoreReadings  = "score_readings"
)

// Request is one fusion call: the clip signals plus the run options. JobID is
// only meaningful for asynchronous submissions.
type Request struct {
	JobID   string         `json:"jobId,omitempty"`
	Signals *model.Signals `json:"signals"`
	Options model.Options  `json:"options"`
}

// Decode reads a JSON request. Options left out of the body keep the package
// defaults.
func Decode(r io.Reader) (*Request, error) {
	return DecodeWith(r, model.DefaultOptions())
}

// DecodeWith is Decode with caller-provided defaults for omitted options.
func DecodeWith(r io.Reader, defaults model.Options) (*Request, error) {
	var raw struct {
		JobID   string          `json:"jobId"`
		Signals *model.Signals  `json:"signals"`
		Options json.RawMessage `json:"options"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &InputDataError{Stream: "body", Index: -1, Reason: err.Error()}
	}
	if raw.Signals == nil {
		return nil, &InputDataError{Stream: "signals", Index: -1, Reason: "missing"}
	}
	req := &Request{JobID: raw.JobID, Signals: raw.Signals, Options: defaults}
	if len(raw.Options) > 0 && string(raw.Options) != "null" {
		if err := json.Unmarshal(raw.Options, &req.Options); err != nil {
			return nil, &InputDataError{Stream: "options", Index: -1, Reason: err.Error()}
		}
	}
	return req, nil
}

// Report counts what Sanitize changed.
type Report struct {
	// Dropped holds the number of removed records per stream.
	Dropped map[string]int
	// Derived counts frames whose timestamp was computed from the frame index.
	Derived int
	// Untagged counts team tags cleared because no team cluster carries them.
	Untagged int
}

// Total is the number of dropped records over all streams.
func (r Report) Total() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

type sanitizer struct {
	strict bool
	log    logger.Logger
	record func(string, int)
	s      *model.Signals
	report Report
}

// Sanitize removes records the detectors cannot use and fills derived clip
// metadata in place. Detections with non-finite or negative geometry, or a
// confidence outside [0,1], are dropped together with frames whose timestamp
// is not finite or negative. A zero timestamp on a non-zero frame index is
// derived from the sampling rate. In strict mode the first such record fails
// the call with an *InputDataError instead.
func Sanitize(ctx context.Context, s *model.Signals, opts ...Option) (Report, error) {
	z := &sanitizer{
		record: metrics.RecordIngestDropped,
		s:      s,
		report: Report{Dropped: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(z)
	}
	if z.log == nil {
		z.log = logger.Get().Named("ingest")
	}
	if err := s.ValidateClip(); err != nil {
		return z.report, err
	}

	var err error
	if s.Persons, err = cleanStream(z, StreamPersons, s.Persons, checkPerson); err != nil {
		return z.report, err
	}
	if s.Balls, err = cleanStream(z, StreamBalls, s.Balls, checkBall); err != nil {
		return z.report, err
	}
	if s.Poses, err = cleanStream(z, StreamPoses, s.Poses, checkPose); err != nil {
		return z.report, err
	}
	if s.Hoops, err = cleanStream(z, StreamHoops, s.Hoops, checkHoop); err != nil {
		return z.report, err
	}
	if err := z.cleanCandidates(); err != nil {
		return z.report, err
	}
	if err := z.cleanReadings(); err != nil {
		return z.report, err
	}

	if len(s.TeamClusters) > 0 {
		z.untagForeignTeams()
		if z.report.Untagged > 0 {
			z.log.Warn(ctx, "cleared team tags unknown to the team clusters", logger.Int("count", z.report.Untagged))
		}
	}

	if s.Duration <= 0 || math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) {
		s.Duration = s.LastTimestamp()
	}

	streams := make([]string, 0, len(z.report.Dropped))
	for name := range z.report.Dropped {
		streams = append(streams, name)
	}
	sort.Strings(streams)
	for _, name := range streams {
		n := z.report.Dropped[name]
		z.record(name, n)
		z.log.Warn(ctx, "dropped malformed records", logger.String("stream", name), logger.Int("count", n))
	}
	return z.report, nil
}

// reject records a bad record. It returns an error only in strict mode.
func (z *sanitizer) reject(stream string, index int, reason string) error {
	if z.strict {
		return &InputDataError{Stream: stream, Index: index, Reason: reason}
	}
	z.report.Dropped[stream]++
	return nil
}

// timestamp validates or derives the timestamp of one frame.
func (z *sanitizer) timestamp(ts float64, frameIndex int) (float64, string) {
	switch {
	case math.IsNaN(ts) || math.IsInf(ts, 0):
		return 0, "timestamp is not finite"
	case ts < 0:
		return 0, "timestamp is negative"
	case ts == 0 && frameIndex > 0:
		z.report.Derived++
		return model.TimestampFor(frameIndex, z.s.FPS, z.s.Duration, z.s.FrameCount), ""
	}
	return ts, ""
}

// untagForeignTeams resets person, pose and candidate tags outside the
// clustered team set to unknown, so attribution falls back to proximity.
func (z *sanitizer) untagForeignTeams() {
	known := make(map[model.TeamID]bool)
	for _, t := range z.s.Teams() {
		known[t] = true
	}
	untag := func(t *model.TeamID) {
		if t.Known() && !known[*t] {
			*t = model.TeamUnknown
			z.report.Untagged++
		}
	}
	for i := range z.s.Persons {
		for j := range z.s.Persons[i].Detections {
			untag(&z.s.Persons[i].Detections[j].TeamID)
		}
	}
	for i := range z.s.Poses {
		for j := range z.s.Poses[i].Detections {
			untag(&z.s.Poses[i].Detections[j].TeamID)
		}
	}
	for i := range z.s.ShotCandidates {
		untag(&z.s.ShotCandidates[i].TeamID)
	}
}

func cleanStream[T any](z *sanitizer, name string, in model.Stream[T], check func(T) string) (model.Stream[T], error) {
	if len(in) == 0 {
		return in, nil
	}
	out := make(model.Stream[T], 0, len(in))
	for i, f := range in {
		ts, reason := z.timestamp(f.Timestamp, f.FrameIndex)
		if reason != "" {
			if err := z.reject(name, i, reason); err != nil {
				return nil, err
			}
			continue
		}
		f.Timestamp = ts

		kept := make([]T, 0, len(f.Detections))
		for _, d := range f.Detections {
			if reason := check(d); reason != "" {
				if err := z.reject(name, i, reason); err != nil {
					return nil, err
				}
				continue
			}
			kept = append(kept, d)
		}
		f.Detections = kept
		out = append(out, f)
	}
	return out, nil
}

func (z *sanitizer) cleanCandidates() error {
	in := z.s.ShotCandidates
	if len(in) == 0 {
		return nil
	}
	out := make([]model.ShotCandidate, 0, len(in))
	for i, c := range in {
		ts, reason := z.timestamp(c.Timestamp, c.FrameIndex)
		if reason == "" {
			reason = firstReason(checkBox(c.Box), checkConfidence(c.Confidence), checkConfidence(c.ArmElevation), checkKeypoints(c.Keypoints))
		}
		if reason != "" {
			if err := z.reject(StreamShotCandidates, i, reason); err != nil {
				return err
			}
			continue
		}
		c.Timestamp = ts
		out = append(out, c)
	}
	z.s.ShotCandidates = out
	return nil
}

func (z *sanitizer) cleanReadings() error {
	in := z.s.ScoreReadings
	if len(in) == 0 {
		return nil
	}
	out := make([]model.ScoreReading, 0, len(in))
	for i, r := range in {
		reason := ""
		switch {
		case math.IsNaN(r.Timestamp) || math.IsInf(r.Timestamp, 0) || r.Timestamp < 0:
			reason = "timestamp is not a finite non-negative number"
		case r.TeamA < 0 || r.TeamB < 0:
			reason = "score is negative"
		default:
			reason = checkConfidence(r.Confidence)
		}
		if reason != "" {
			if err := z.reject(StreamScoreReadings, i, reason); err != nil {
				return err
			}
			continue
		}
		out = append(out, r)
	}
	z.s.ScoreReadings = out
	return nil
}

func checkPerson(p model.PersonDetection) string {
	return firstReason(checkBox(p.Box), checkConfidence(p.Confidence))
}

func checkBall(b model.BallDetection) string {
	return firstReason(checkBox(b.Box), checkConfidence(b.Confidence))
}

func checkHoop(h model.HoopRegion) string {
	return firstReason(checkBox(h.Box), checkConfidence(h.Confidence))
}

func checkPose(p model.PoseFrame) string {
	return firstReason(checkBox(p.Box), checkKeypoints(p.Keypoints))
}

func checkBox(b model.BBox) string {
	if !b.Valid() || b.X < 0 || b.Y < 0 {
		return "box has non-finite or negative geometry"
	}
	return ""
}

func checkConfidence(c float64) string {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Sprintf("confidence %v outside [0,1]", c)
	}
	return ""
}

func checkKeypoints(kps []model.Keypoint) string {
	if len(kps) != 0 && len(kps) != model.KeypointCount {
		return fmt.Sprintf("expected %d keypoints, got %d", model.KeypointCount, len(kps))
	}
	for _, k := range kps {
		if math.IsNaN(k.X) || math.IsNaN(k.Y) || math.IsInf(k.X, 0) || math.IsInf(k.Y, 0) {
			return "keypoint is not finite"
		}
		if reason := checkConfidence(k.Confidence); reason != "" {
			return reason
		}
	}
	return ""
}

func firstReason(reasons ...string) string {
	for _, r := range reasons {
		if r != "" {
			return r
		}
	}
	return ""
}
