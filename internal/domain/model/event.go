// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/hoopfuse/internal/domain/confidence"
)

// EventKind is the closed set of semantic game events the engine emits.
type EventKind string

const (
	KindShotAttempt         EventKind = "shot_attempt"
	KindMissedShot          EventKind = "missed_shot"
	KindScore               EventKind = "score"
	KindOffensiveRebound    EventKind = "offensive_rebound"
	KindDefensiveRebound    EventKind = "defensive_rebound"
	KindTurnover            EventKind = "turnover"
	KindSteal               EventKind = "steal"
	KindThreePointAttempt   EventKind = "three_point_attempt"
	KindLongDistanceAttempt EventKind = "long_distance_attempt"
	KindBlock               EventKind = "block"
	KindPass                EventKind = "pass"
	KindDunk                EventKind = "dunk"
	KindLayup               EventKind = "layup"
	KindAssist              EventKind = "assist"
	KindFoulShot            EventKind = "foul_shot"
	KindDribble             EventKind = "dribble"
)

// AllKinds lists every kind in a fixed order.
var AllKinds = []EventKind{
	KindShotAttempt, KindMissedShot, KindScore, KindOffensiveRebound,
	KindDefensiveRebound, KindTurnover, KindSteal, KindThreePointAttempt,
	KindLongDistanceAttempt, KindBlock, KindPass, KindDunk, KindLayup,
	KindAssist, KindFoulShot, KindDribble,
}

// kinds that may carry a shot type.
var shotFamily = map[EventKind]bool{
	KindShotAttempt:         true,
	KindMissedShot:          true,
	KindScore:               true,
	KindThreePointAttempt:   true,
	KindLongDistanceAttempt: true,
	KindFoulShot:            true,
	KindDunk:                true,
	KindLayup:               true,
}

// Valid reports whether k belongs to the closed kind set.
func (k EventKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ShotType classifies a shot by its point value.
type ShotType string

const (
	ShotNone ShotType = ""
	Shot1PT  ShotType = "1pt"
	Shot2PT  ShotType = "2pt"
	Shot3PT  ShotType = "3pt"
)

// Points returns the value of a made shot of this type, 0 when unset.
func (s ShotType) Points() int {
	switch s {
	case Shot1PT:
		return 1
	case Shot2PT:
		return 2
	case Shot3PT:
		return 3
	default:
		return 0
	}
}

// ShotTypeForPoints is the inverse of Points.
func ShotTypeForPoints(points int) ShotType {
	switch points {
	case 1:
		return Shot1PT
	case 2:
		return Shot2PT
	case 3:
		return Shot3PT
	default:
		return ShotNone
	}
}

// eventNamespace seeds deterministic event ids.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hoopfuse/events"))

// GameEvent is the single output type of the fusion engine. Values are
// immutable once built; use the With* helpers to derive a modified copy.
type GameEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"type"`
	TeamID     TeamID    `json:"teamId"`
	PlayerID   string    `json:"playerId,omitempty"`
	Timestamp  float64   `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	ScoreDelta int       `json:"scoreDelta,omitempty"`
	ShotType   ShotType  `json:"shotType,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Box        *BBox     `json:"box,omitempty"`
}

// EventParams carries the fields accepted by NewEvent.
type EventParams struct {
	TeamID     TeamID
	PlayerID   string
	Timestamp  float64
	Confidence float64
	Source     string
	ScoreDelta int
	ShotType   ShotType
	Notes      string
	Box        *BBox
}

// NewEvent validates the kind-specific fields and returns a new event.
// Confidence is clamped to [0,1], negative timestamps to 0 and an empty team
// to TeamUnknown.
func NewEvent(kind EventKind, p EventParams) (GameEvent, error) {
	if !kind.Valid() {
		return GameEvent{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if p.ShotType != ShotNone && p.ShotType.Points() == 0 {
		return GameEvent{}, fmt.Errorf("%w: unknown shot type %q", ErrInvalidEvent, p.ShotType)
	}
	if p.ShotType != ShotNone && !shotFamily[kind] {
		return GameEvent{}, fmt.Errorf("%w: %s cannot carry a shot type", ErrInvalidEvent, kind)
	}
	if kind == KindScore {
		if p.ScoreDelta < 1 || p.ScoreDelta > 3 {
			return GameEvent{}, fmt.Errorf("%w: score delta %d outside 1..3", ErrInvalidEvent, p.ScoreDelta)
		}
		if p.ShotType.Points() != p.ScoreDelta {
			return GameEvent{}, fmt.Errorf("%w: score delta %d does not match shot type %q", ErrInvalidEvent, p.ScoreDelta, p.ShotType)
		}
	} else if p.ScoreDelta != 0 {
		return GameEvent{}, fmt.Errorf("%w: %s cannot carry a score delta", ErrInvalidEvent, kind)
	}
	if math.IsNaN(p.Timestamp) || math.IsInf(p.Timestamp, 0) {
		return GameEvent{}, fmt.Errorf("%w: non-finite timestamp", ErrInvalidEvent)
	}

	team := p.TeamID
	if team == "" {
		team = TeamUnknown
	}
	ts := math.Max(0, p.Timestamp)
	var box *BBox
	if p.Box != nil {
		b := *p.Box
		box = &b
	}
	e := GameEvent{
		Kind:       kind,
		TeamID:     team,
		PlayerID:   p.PlayerID,
		Timestamp:  ts,
		Confidence: confidence.Clamp(p.Confidence),
		Source:     p.Source,
		ScoreDelta: p.ScoreDelta,
		ShotType:   p.ShotType,
		Notes:      p.Notes,
		Box:        box,
	}
	e.ID = e.deriveID()
	return e, nil
}

func (e GameEvent) deriveID() string {
	key := strings.Join([]string{
		string(e.Kind),
		string(e.TeamID),
		e.PlayerID,
		strconv.FormatFloat(e.Timestamp, 'f', 6, 64),
		e.Source,
	}, "|")
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

// Params returns the constructor parameters that rebuild e.
func (e GameEvent) Params() EventParams {
	return EventParams{
		TeamID:     e.TeamID,
		PlayerID:   e.PlayerID,
		Timestamp:  e.Timestamp,
		Confidence: e.Confidence,
		Source:     e.Source,
		ScoreDelta: e.ScoreDelta,
		ShotType:   e.ShotType,
		Notes:      e.Notes,
		Box:        e.Box,
	}
}

// WithTimestamp returns a copy at ts with a fresh id.
func (e GameEvent) WithTimestamp(ts float64) GameEvent {
	e.Timestamp = math.Max(0, ts)
	e.ID = e.deriveID()
	return e
}

// WithShotType returns a copy tagged with st. Only shot-family kinds other
// than score may be re-tagged; other kinds are returned unchanged.
func (e GameEvent) WithShotType(st ShotType) GameEvent {
	if !shotFamily[e.Kind] || e.Kind == KindScore {
		return e
	}
	e.ShotType = st
	return e
}

// WithNotes returns a copy with notes appended.
func (e GameEvent) WithNotes(note string) GameEvent {
	if note == "" {
		return e
	}
	if e.Notes == "" {
		e.Notes = note
	} else {
		e.Notes = e.Notes + "; " + note
	}
	return e
}

// Sources splits a "+"-joined provenance tag.
func (e GameEvent) Sources() []string {
	if e.Source == "" {
		return nil
	}
	return strings.Split(e.Source, "+")
}
