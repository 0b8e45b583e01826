package detector

import (
	"cmp"
	"context"
	"slices"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	ocrStabilityBonus   = 0.1
	ocrVoteWindow       = 0.5
	ocrVoteMajority     = 0.6
	ocrFallbackTeamConf = 0.8
	shotLookBack        = 3.0

	ocrWeight         = 0.5
	attributionWeight = 0.3
	typingWeight      = 0.2
)

// Shot-type confidences keyed by how the type was inferred.
const (
	typedFromThreeShot = 0.9
	typedFromShot      = 0.8
	typedFromFoulShot  = 0.8
	typedFromDelta3    = 0.6
	typedFromDelta2    = 0.7
	typedFromDelta1    = 0.5
)

// ScoresFromOCR turns scoreboard readings into score events. shots must carry
// their final shot types; fouls are the foul_shot events used to type free throws.
func (d *Detector) ScoresFromOCR(ctx context.Context, s *model.Signals, shots, fouls []model.GameEvent) []model.GameEvent {
	if s == nil || len(s.ScoreReadings) < 2 {
		return nil
	}
	readings := slices.Clone(s.ScoreReadings)
	slices.SortStableFunc(readings, func(a, b model.ScoreReading) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	var out []model.GameEvent
	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		team, delta, ok := scoringTeam(prev, cur)
		if !ok {
			continue
		}

		stable := i+1 < len(readings) && readings[i+1].TeamA == cur.TeamA && readings[i+1].TeamB == cur.TeamB

		attributed, attrConf, voted := d.voteTeam(s, cur.Timestamp, team)
		shotType, typeConf, player := typeScore(shots, fouls, attributed, cur.Timestamp, delta)

		notes := "team from scoreboard"
		if voted {
			notes = "team from hoop-region vote"
		}
		conf := confidence.Combine([]confidence.Signal{
			{Value: cur.Confidence, Weight: ocrWeight},
			{Value: attrConf, Weight: attributionWeight},
			{Value: typeConf, Weight: typingWeight},
		})
		if stable {
			conf = confidence.Clamp(conf + ocrStabilityBonus)
		}
		out = d.emit(ctx, out, model.KindScore, model.EventParams{
			TeamID:     attributed,
			PlayerID:   player,
			Timestamp:  cur.Timestamp,
			Confidence: conf,
			Source:     SourceOCR,
			ScoreDelta: delta,
			ShotType:   shotType,
			Notes:      notes,
		})
	}
	return out
}

// scoringTeam reports the single team whose score rose by 1 to 3 points.
// Any other change is OCR noise.
func scoringTeam(prev, cur model.ScoreReading) (model.TeamID, int, bool) {
	da, db := cur.TeamA-prev.TeamA, cur.TeamB-prev.TeamB
	switch {
	case da > 0 && db <= 0 && da <= 3:
		return model.TeamA, da, true
	case db > 0 && da <= 0 && db <= 3:
		return model.TeamB, db, true
	}
	return "", 0, false
}

// voteTeam lets tagged players in the hoop region around ts vote for the scoring team.
func (d *Detector) voteTeam(s *model.Signals, ts float64, ocrTeam model.TeamID) (model.TeamID, float64, bool) {
	votes := make(map[model.TeamID]int)
	total := 0
	for _, f := range s.Persons.Window(ts-ocrVoteWindow, ts+ocrVoteWindow) {
		for _, p := range f.Detections {
			if p.TeamID.Known() && inHoopRegion(p.Box, s.FrameHeight) {
				votes[p.TeamID]++
				total++
			}
		}
	}
	if total == 0 {
		return ocrTeam, ocrFallbackTeamConf, false
	}

	teams := make([]model.TeamID, 0, len(votes))
	for t := range votes {
		teams = append(teams, t)
	}
	slices.Sort(teams)
	leader := teams[0]
	for _, t := range teams[1:] {
		if votes[t] > votes[leader] {
			leader = t
		}
	}
	share := float64(votes[leader]) / float64(total)
	if share < ocrVoteMajority {
		return ocrTeam, ocrFallbackTeamConf, false
	}
	return leader, share, true
}

// typeScore infers the shot type of a score at ts from the latest same-team
// attempt in the look-back window, then from the raw delta when they disagree.
func typeScore(shots, fouls []model.GameEvent, team model.TeamID, ts float64, delta int) (model.ShotType, float64, string) {
	var shotType model.ShotType
	var conf float64
	var player string
	if shot, ok := latestBefore(shots, team, ts, shotLookBack); ok {
		player = shot.PlayerID
		switch shot.ShotType {
		case model.Shot3PT:
			shotType, conf = model.Shot3PT, typedFromThreeShot
		case model.Shot1PT:
			shotType, conf = model.Shot1PT, typedFromFoulShot
		default:
			shotType, conf = model.Shot2PT, typedFromShot
		}
	}
	if shotType.Points() == delta {
		return shotType, conf, player
	}

	shotType = model.ShotTypeForPoints(delta)
	switch delta {
	case 3:
		return shotType, typedFromDelta3, player
	case 2:
		return shotType, typedFromDelta2, player
	}
	if _, ok := latestBefore(fouls, team, ts, shotLookBack); ok {
		return shotType, typedFromFoulShot, player
	}
	return shotType, typedFromDelta1, player
}

// latestBefore returns the most recent event of team in [ts-lookBack, ts].
// events must be sorted by timestamp.
func latestBefore(events []model.GameEvent, team model.TeamID, ts, lookBack float64) (model.GameEvent, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Timestamp > ts {
			continue
		}
		if e.Timestamp < ts-lookBack {
			break
		}
		if e.TeamID == team {
			return e, true
		}
	}
	return model.GameEvent{}, false
}
