package synth

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/okian/hoopfuse/internal/domain/model"
)

// Clip geometry. Synthetic clips are sampled at a fixed rate on a 720p frame
// seen from the baseline, hoop at the top centre.
const (
	FPS         = 10.0
	FrameWidth  = 1280.0
	FrameHeight = 720.0

	minDuration = 10.0
	tail        = 5.0
)

// Timing of a scripted shot in frames relative to the release frame.
const (
	setupFrames     = 15
	windupFrames    = 5
	freeThrowFrames = 10
	flightFrames    = 3
	inboundFrames   = 25
	reboundFrames   = 5
	reboundHold     = 20
	scoreboardLag   = 10
	readingStride   = 10
	passFrames      = 2
	stealApproach   = 10
	stealHold       = 5
	blockApproach   = 5
)

var (
	hoopBox       = model.BBox{X: 600, Y: 80, W: 80, H: 60}
	aboveRim      = model.Point{X: 640, Y: 60}
	throughRim    = model.Point{X: 640, Y: 125}
	belowRim      = model.Point{X: 640, Y: 175}
	offRim        = model.Point{X: 700, Y: 100}
	looseBall     = model.Point{X: 710, Y: 170}
	reboundSpot   = model.Point{X: 730, Y: 250}
	freeThrowSpot = model.Point{X: 640, Y: 420}
	twoPointSpot  = model.Point{X: 420, Y: 300}
	threeSpot     = model.Point{X: 640, Y: 640}
)

var defaultRoster = []struct {
	team model.TeamID
	id   string
	x, y float64
}{
	{model.TeamA, "4", 300, 500},
	{model.TeamA, "7", 500, 600},
	{model.TeamA, "11", 900, 560},
	{model.TeamB, "21", 200, 350},
	{model.TeamB, "23", 1000, 380},
	{model.TeamB, "33", 1100, 600},
}

type player struct {
	team model.TeamID
	id   string
	base model.Point
}

type playKind int

const (
	playShot playKind = iota
	playFreeThrow
	playSteal
	playPass
	playDribble
	playBlock
)

type play struct {
	kind   playKind
	frame  int
	until  int
	actor  *player
	other  *player
	points int
	made   bool
}

type holderChange struct {
	frame  int
	holder *player
}

// Clip scripts plays on a fixed six-player roster and renders them into
// model.Signals. The same seed and script always yield the same signals.
type Clip struct {
	rng        *rand.Rand
	duration   float64
	ball       bool
	hoop       bool
	scoreboard bool
	poses      bool
	roster     []*player
	holder     *player
	plays      []play
}

// NewClip creates an empty script. teamA #4 has the ball at the start.
func NewClip(seed uint64, opts ...Option) *Clip {
	c := &Clip{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ball:       true,
		hoop:       true,
		scoreboard: true,
		poses:      true,
	}
	for _, r := range defaultRoster {
		c.roster = append(c.roster, &player{team: r.team, id: r.id, base: model.Point{X: r.x, Y: r.y}})
	}
	c.holder = c.roster[0]
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Clip) member(team, id string) *player {
	t := model.TeamID(team)
	for _, p := range c.roster {
		if p.team == t && p.id == id {
			return p
		}
	}
	n := len(c.roster)
	p := &player{team: t, id: id, base: model.Point{X: float64(150 + (n*170)%1000), Y: 680}}
	c.roster = append(c.roster, p)
	return p
}

func (c *Clip) firstOf(team model.TeamID) *player {
	for _, p := range c.roster {
		if p.team == team {
			return p
		}
	}
	return c.roster[0]
}

func frameOf(ts float64) int {
	return int(math.Round(ts * FPS))
}

// Made scripts a made field goal worth points released at ts.
func (c *Clip) Made(team, player string, ts float64, points int) *Clip {
	c.plays = append(c.plays, play{kind: playShot, frame: frameOf(ts), actor: c.member(team, player), points: points, made: true})
	return c
}

// Missed scripts a missed two released at ts and recovered by the rebounder.
func (c *Clip) Missed(team, player string, ts float64, reboundTeam, rebounder string) *Clip {
	c.plays = append(c.plays, play{
		kind:   playShot,
		frame:  frameOf(ts),
		actor:  c.member(team, player),
		other:  c.member(reboundTeam, rebounder),
		points: 2,
	})
	return c
}

// FreeThrow scripts an uncontested shot from the line after a still set.
func (c *Clip) FreeThrow(team, player string, ts float64, made bool) *Clip {
	p := play{kind: playFreeThrow, frame: frameOf(ts), actor: c.member(team, player), points: 1, made: made}
	if !made {
		p.other = c.firstOf(model.TeamID(team).Opponent())
	}
	c.plays = append(c.plays, p)
	return c
}

// Steal scripts player taking the ball from whoever holds it at ts.
func (c *Clip) Steal(team, player string, ts float64) *Clip {
	c.plays = append(c.plays, play{kind: playSteal, frame: frameOf(ts), actor: c.member(team, player)})
	return c
}

// Pass scripts a pass from one teammate to another arriving at ts.
func (c *Clip) Pass(team, from, to string, ts float64) *Clip {
	c.plays = append(c.plays, play{kind: playPass, frame: frameOf(ts), actor: c.member(team, from), other: c.member(team, to)})
	return c
}

// Dribble bounces the ball between from and to for whoever holds it.
// Spans of at least two seconds are always picked up.
func (c *Clip) Dribble(from, to float64) *Clip {
	c.plays = append(c.plays, play{kind: playDribble, frame: frameOf(from), until: frameOf(to)})
	return c
}

// Block puts a defender with raised arms next to the shooter released at ts.
func (c *Clip) Block(team, player string, ts float64) *Clip {
	c.plays = append(c.plays, play{kind: playBlock, frame: frameOf(ts), actor: c.member(team, player)})
	return c
}

// Build renders the script.
func (c *Clip) Build() *model.Signals {
	plays := slices.Clone(c.plays)
	slices.SortStableFunc(plays, func(a, b play) int { return cmp.Compare(a.frame, b.frame) })

	duration := c.duration
	if duration == 0 {
		last := 0.0
		for _, p := range plays {
			last = math.Max(last, float64(max(p.frame, p.until))/FPS)
		}
		duration = math.Max(minDuration, last+tail)
	}
	frames := frameOf(duration)
	plays = slices.DeleteFunc(plays, func(p play) bool { return p.frame > frames })

	changes := c.possessionChanges(plays)
	s := &model.Signals{
		FPS:         FPS,
		FrameWidth:  FrameWidth,
		FrameHeight: FrameHeight,
		Duration:    duration,
		FrameCount:  frames + 1,
		TeamClusters: []model.TeamCluster{
			{Centroid: model.RGB{R: 200, G: 30, B: 30}, TeamID: model.TeamA, SampleCount: frames + 1},
			{Centroid: model.RGB{R: 30, G: 30, B: 200}, TeamID: model.TeamB, SampleCount: frames + 1},
		},
	}

	for i := 0; i <= frames; i++ {
		ts := float64(i) / FPS
		pos := c.positions(plays, i)

		persons := make([]model.PersonDetection, 0, len(c.roster))
		for _, p := range c.roster {
			persons = append(persons, model.PersonDetection{
				Box:        personBox(pos[p]),
				Confidence: 0.8 + 0.15*c.rng.Float64(),
				TeamID:     p.team,
				PlayerID:   p.id,
			})
		}
		s.Persons = append(s.Persons, model.DetectionFrame[model.PersonDetection]{FrameIndex: i, Timestamp: ts, Detections: persons})

		if c.ball {
			if at, ok := ballPosition(plays, changes, pos, i); ok {
				s.Balls = append(s.Balls, model.DetectionFrame[model.BallDetection]{
					FrameIndex: i,
					Timestamp:  ts,
					Detections: []model.BallDetection{{Box: square(at, 20), Confidence: 0.7 + 0.25*c.rng.Float64()}},
				})
			}
		}
		if c.hoop {
			s.Hoops = append(s.Hoops, model.DetectionFrame[model.HoopRegion]{
				FrameIndex: i,
				Timestamp:  ts,
				Detections: []model.HoopRegion{{Box: hoopBox, Confidence: 0.85 + 0.1*c.rng.Float64()}},
			})
		}
		if c.poses {
			c.renderPoses(s, plays, pos, i)
		}
		if c.scoreboard && i%readingStride == 0 {
			a, b := tally(plays, i)
			s.ScoreReadings = append(s.ScoreReadings, model.ScoreReading{
				Timestamp:  ts,
				TeamA:      a,
				TeamB:      b,
				Confidence: 0.85 + 0.1*c.rng.Float64(),
			})
		}
	}
	return s
}

// possessionChanges derives who holds the ball from the script. Steal and
// dribble plays learn their victim and dribbler here.
func (c *Clip) possessionChanges(plays []play) []holderChange {
	changes := []holderChange{{frame: 0, holder: c.holder}}
	current := c.holder
	set := func(frame int, p *player) {
		changes = append(changes, holderChange{frame: frame, holder: p})
		if p != nil {
			current = p
		}
	}
	for i := range plays {
		p := &plays[i]
		switch p.kind {
		case playShot, playFreeThrow:
			set(p.frame-setupFrames, p.actor)
			set(p.frame, nil)
			switch {
			case p.made:
				set(p.frame+inboundFrames, c.firstOf(p.actor.team.Opponent()))
			case p.other != nil:
				set(p.frame+reboundFrames, p.other)
			}
		case playSteal:
			p.other = current
			set(p.frame, p.actor)
		case playPass:
			set(p.frame-passFrames, nil)
			set(p.frame, p.other)
		case playDribble:
			p.actor = current
		}
	}
	slices.SortStableFunc(changes, func(a, b holderChange) int { return cmp.Compare(a.frame, b.frame) })
	return changes
}

func holderAt(changes []holderChange, frame int) *player {
	var h *player
	for _, c := range changes {
		if c.frame > frame {
			break
		}
		h = c.holder
	}
	return h
}

// shotSpot is where the shooter stands for a scripted attempt.
func shotSpot(p play) model.Point {
	switch {
	case p.kind == playFreeThrow:
		return freeThrowSpot
	case p.points == 3:
		return threeSpot
	default:
		return twoPointSpot
	}
}

func (c *Clip) positions(plays []play, frame int) map[*player]model.Point {
	pos := make(map[*player]model.Point, len(c.roster))
	for _, p := range c.roster {
		pos[p] = p.base
	}
	for _, p := range plays {
		rel := frame - p.frame
		switch p.kind {
		case playShot, playFreeThrow:
			if rel >= -setupFrames && rel <= flightFrames {
				pos[p.actor] = shotSpot(p)
			}
			if p.other != nil && !p.made && rel > 0 && rel <= reboundHold {
				pos[p.other] = reboundSpot
			}
		case playSteal:
			if p.other != nil && rel >= -stealApproach && rel <= stealHold {
				pos[p.actor] = offset(pos[p.other], 120, 0)
			}
		case playBlock:
			if shot, ok := shotAt(plays, p.frame); ok && rel >= -blockApproach && rel <= flightFrames {
				pos[p.actor] = offset(shotSpot(shot), 60, 0)
			}
		}
	}
	return pos
}

func shotAt(plays []play, frame int) (play, bool) {
	for _, p := range plays {
		if (p.kind == playShot || p.kind == playFreeThrow) && p.frame == frame {
			return p, true
		}
	}
	return play{}, false
}

// ballPosition places the ball for frame: in a scripted shot or pass when one
// is in progress, otherwise in the holder's hands.
func ballPosition(plays []play, changes []holderChange, pos map[*player]model.Point, frame int) (model.Point, bool) {
	for _, p := range plays {
		rel := frame - p.frame
		switch p.kind {
		case playShot, playFreeThrow:
			if at, ok := shotBall(p, pos[p.actor], rel); ok {
				return at, true
			}
		case playPass:
			if rel >= -passFrames && rel < 0 {
				return midpoint(pos[p.actor], pos[p.other]), true
			}
		}
	}

	h := holderAt(changes, frame)
	if h == nil {
		return model.Point{}, false
	}
	at := offset(pos[h], 25, 20)
	for _, p := range plays {
		if p.kind == playDribble && p.actor == h && frame >= p.frame && frame <= p.until {
			if frame%2 == 0 {
				at.Y += 15
			} else {
				at.Y -= 15
			}
		}
	}
	return at, true
}

func shotBall(p play, shooter model.Point, rel int) (model.Point, bool) {
	release := offset(shooter, 0, -90)
	switch {
	case p.kind == playFreeThrow && rel >= -freeThrowFrames && rel < 0:
		return offset(shooter, 0, -20), true
	case p.kind == playShot && rel >= -windupFrames && rel < 0:
		return offset(shooter, 0, -30-10*float64(rel+windupFrames)), true
	case rel == 0:
		return release, true
	case rel > 0 && rel < flightFrames:
		return lerp(release, aboveRim, float64(rel)/flightFrames), true
	case rel == flightFrames:
		return aboveRim, true
	case rel == flightFrames+1 && p.made:
		return throughRim, true
	case rel == flightFrames+2 && p.made:
		return belowRim, true
	case rel == flightFrames+1:
		return offRim, true
	case rel == flightFrames+2:
		return looseBall, true
	}
	return model.Point{}, false
}

func (c *Clip) renderPoses(s *model.Signals, plays []play, pos map[*player]model.Point, frame int) {
	var poses []model.PoseFrame
	ts := float64(frame) / FPS
	for _, p := range plays {
		if p.frame != frame {
			continue
		}
		switch p.kind {
		case playShot, playFreeThrow:
			at := pos[p.actor]
			kps := raisedArms(at)
			poses = append(poses, model.PoseFrame{Keypoints: kps, Box: personBox(at), TeamID: p.actor.team, PlayerID: p.actor.id})
			s.ShotCandidates = append(s.ShotCandidates, model.ShotCandidate{
				FrameIndex:   frame,
				Timestamp:    ts,
				PlayerID:     p.actor.id,
				TeamID:       p.actor.team,
				Box:          personBox(at),
				Keypoints:    kps,
				ArmElevation: 0.8,
				Handedness:   "right",
				Confidence:   0.75 + 0.15*c.rng.Float64(),
			})
		case playBlock:
			at := pos[p.actor]
			poses = append(poses, model.PoseFrame{Keypoints: raisedArms(at), Box: personBox(at), TeamID: p.actor.team, PlayerID: p.actor.id})
		}
	}
	if len(poses) > 0 {
		s.Poses = append(s.Poses, model.DetectionFrame[model.PoseFrame]{FrameIndex: frame, Timestamp: ts, Detections: poses})
	}
}

// tally counts the points shown on the scoreboard at frame. The board lags
// the basket by one second.
func tally(plays []play, frame int) (a, b int) {
	for _, p := range plays {
		if !p.made || p.frame+scoreboardLag > frame {
			continue
		}
		if p.actor.team == model.TeamA {
			a += p.points
		} else {
			b += p.points
		}
	}
	return a, b
}

func raisedArms(at model.Point) []model.Keypoint {
	kps := make([]model.Keypoint, model.KeypointCount)
	for i := range kps {
		kps[i] = model.Keypoint{X: at.X, Y: at.Y, Confidence: 0.5}
	}
	kps[model.KeypointNose] = model.Keypoint{X: at.X, Y: at.Y - 65, Confidence: 0.9}
	kps[model.KeypointLeftShoulder] = model.Keypoint{X: at.X - 15, Y: at.Y - 50, Confidence: 0.9}
	kps[model.KeypointRightShoulder] = model.Keypoint{X: at.X + 15, Y: at.Y - 50, Confidence: 0.9}
	kps[model.KeypointLeftElbow] = model.Keypoint{X: at.X - 18, Y: at.Y - 72, Confidence: 0.85}
	kps[model.KeypointRightElbow] = model.Keypoint{X: at.X + 18, Y: at.Y - 72, Confidence: 0.85}
	kps[model.KeypointLeftWrist] = model.Keypoint{X: at.X - 12, Y: at.Y - 95, Confidence: 0.85}
	kps[model.KeypointRightWrist] = model.Keypoint{X: at.X + 12, Y: at.Y - 95, Confidence: 0.85}
	kps[model.KeypointLeftHip] = model.Keypoint{X: at.X - 12, Y: at.Y + 10, Confidence: 0.8}
	kps[model.KeypointRightHip] = model.Keypoint{X: at.X + 12, Y: at.Y + 10, Confidence: 0.8}
	return kps
}

func personBox(c model.Point) model.BBox {
	return model.BBox{X: c.X - 30, Y: c.Y - 80, W: 60, H: 160}
}

func square(c model.Point, side float64) model.BBox {
	return model.BBox{X: c.X - side/2, Y: c.Y - side/2, W: side, H: side}
}

func midpoint(a, b model.Point) model.Point {
	return lerp(a, b, 0.5)
}

func lerp(a, b model.Point, t float64) model.Point {
	return model.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func offset(p model.Point, dx, dy float64) model.Point {
	return model.Point{X: p.X + dx, Y: p.Y + dy}
}
