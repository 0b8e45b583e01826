package synth

import "math/rand/v2"

// roster ids per team, in the order of defaultRoster.
var teamPlayers = map[string][]string{
	"teamA": {"4", "7", "11"},
	"teamB": {"21", "23", "33"},
}

func other(team string) string {
	if team == "teamA" {
		return "teamB"
	}
	return "teamA"
}

// Game scripts a random but reproducible sequence of plays for seed: made and
// missed field goals, free throws, steals, passes and dribbles, spaced far
// enough apart that each play settles before the next begins.
func Game(seed uint64, plays int, opts ...Option) *Clip {
	r := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	c := NewClip(seed, opts...)

	offense := "teamA"
	t := 5.0
	for i := 0; i < plays; i++ {
		shooter := pick(r, teamPlayers[offense])
		switch r.IntN(6) {
		case 0:
			c.Made(offense, shooter, t, 2)
			offense = other(offense)
		case 1:
			c.Made(offense, shooter, t, 3)
			offense = other(offense)
		case 2:
			defense := other(offense)
			if r.IntN(2) == 0 {
				c.Missed(offense, shooter, t, defense, pick(r, teamPlayers[defense]))
				offense = defense
			} else {
				c.Missed(offense, shooter, t, offense, pick(r, teamPlayers[offense]))
			}
		case 3:
			c.FreeThrow(offense, shooter, t, r.IntN(4) != 0)
			offense = other(offense)
		case 4:
			defense := other(offense)
			c.Steal(defense, pick(r, teamPlayers[defense]), t)
			offense = defense
		default:
			c.Dribble(t-3, t-0.5)
			to := pick(r, teamPlayers[offense])
			for to == shooter {
				to = pick(r, teamPlayers[offense])
			}
			c.Pass(offense, shooter, to, t)
		}
		t += 7 + float64(r.IntN(4))
	}
	return c
}

func pick(r *rand.Rand, ids []string) string {
	return ids[r.IntN(len(ids))]
}
