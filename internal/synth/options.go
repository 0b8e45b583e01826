// Package synth builds deterministic synthetic clips from scripted plays.
package synth

// Option configures a Clip.
type Option func(*Clip)

// WithDuration fixes the clip length in seconds. Plays past the end are dropped.
func WithDuration(seconds float64) Option {
	return func(c *Clip) {
		if seconds > 0 {
			c.duration = seconds
		}
	}
}

// WithoutBall drops every ball detection from the clip.
func WithoutBall() Option {
	return func(c *Clip) { c.ball = false }
}

// WithoutHoop drops every hoop detection from the clip.
func WithoutHoop() Option {
	return func(c *Clip) { c.hoop = false }
}

// WithoutScoreboard drops every scoreboard reading from the clip.
func WithoutScoreboard() Option {
	return func(c *Clip) { c.scoreboard = false }
}

// WithoutPoses drops shot candidates and pose frames, leaving shot detection
// to the fallbacks.
func WithoutPoses() Option {
	return func(c *Clip) { c.poses = false }
}

// WithHolder sets who has the ball when the clip starts.
func WithHolder(team, player string) Option {
	return func(c *Clip) {
		c.holder = c.member(team, player)
	}
}
