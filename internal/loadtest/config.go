// Package loadtest drives a running hoopfuse service with synthetic games and
// checks the asynchronous results against a local fusion run.
package loadtest

import "time"

// Config holds configuration for a load test.
type Config struct {
	BaseURL      string        // Base URL of the service
	Games        int           // Number of synthetic games to submit
	Plays        int           // Plays scripted per game
	Seed         uint64        // Seed of the first game; game i uses Seed+i
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between result polls and 429 retries
	Wait         time.Duration // How long to wait for all jobs to finish
	Retries      int           // Resubmissions after a 429
}

// Stats holds load test statistics.
type Stats struct {
	Games      int
	Accepted   int
	Duplicate  int
	Rejected   int
	Failed     int
	Completed  int
	Mismatched int
	Unfinished int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// GamesPerSecond is the completed throughput over the whole run.
func (s *Stats) GamesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Completed) / s.Duration.Seconds()
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Games <= 0 {
		out.Games = 20
	}
	if out.Plays <= 0 {
		out.Plays = 6
	}
	if out.Workers <= 0 {
		out.Workers = 4
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 100 * time.Millisecond
	}
	if out.Wait <= 0 {
		out.Wait = 2 * time.Minute
	}
	if out.Retries < 0 {
		out.Retries = 0
	}
	return out
}
