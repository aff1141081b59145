package neural

import (
	"math"

	"github.com/pthm-cable/duel/game"
)

// SensorFrame holds one ship's view of the match for a single tick.
// Every angular feature is encoded as a (sin, cos) pair so the
// network never sees the discontinuity at the +/-pi wrap boundary.
// Distances and speeds are normalized and capped at 1.
type SensorFrame struct {
	OppDist       float64 // toroidal distance to the opponent / sensor range
	OppBearingSin float64 // bearing to the opponent, relative to own heading
	OppBearingCos float64
	OppFacingSin  float64 // opponent heading relative to the reciprocal bearing:
	OppFacingCos  float64 // near (0,1) means the opponent is pointed straight at us
	OwnSpeed      float64 // own speed / max speed
	OppSpeed      float64
	ThreatDist    float64 // nearest hostile projectile / sensor range; 1 when none
	ThreatSin     float64 // bearing to that projectile; (0,1) when none
	ThreatCos     float64
	DriftSin      float64 // travel direction relative to heading; (0,1) when still
	DriftCos      float64
	Cooldown      float64 // fire cooldown remaining / full cooldown
	ShotsOut      float64 // own projectiles in flight / per-ship cap
}

// AsInputs flattens the frame into the network input vector.
// Layout:
//
//	[0]     opponent distance
//	[1..2]  opponent bearing sin, cos
//	[3..4]  opponent facing sin, cos
//	[5]     own speed
//	[6]     opponent speed
//	[7]     threat distance
//	[8..9]  threat bearing sin, cos
//	[10..11] drift sin, cos
//	[12]    fire cooldown
//	[13]    shots in flight
func (f *SensorFrame) AsInputs() [InputCount]float64 {
	return [InputCount]float64{
		f.OppDist,
		f.OppBearingSin, f.OppBearingCos,
		f.OppFacingSin, f.OppFacingCos,
		f.OwnSpeed,
		f.OppSpeed,
		f.ThreatDist,
		f.ThreatSin, f.ThreatCos,
		f.DriftSin, f.DriftCos,
		f.Cooldown,
		f.ShotsOut,
	}
}

// SenseFrame computes the sensor view for the given ship index. It is
// a pure function of the state and never mutates it.
func SenseFrame(s *game.State, shipIndex int) SensorFrame {
	p := s.Params()
	self := &s.Ships[shipIndex]
	opp := &s.Ships[1-shipIndex]

	var f SensorFrame

	dx, dy := game.ToroidalDelta(self.X, self.Y, opp.X, opp.Y, p.ArenaWidth, p.ArenaHeight)
	dist := math.Sqrt(dx*dx + dy*dy)
	f.OppDist = math.Min(dist/p.SensorRange, 1)

	bearing := math.Atan2(dy, dx) - self.Heading
	f.OppBearingSin = math.Sin(bearing)
	f.OppBearingCos = math.Cos(bearing)

	// How the opponent is oriented relative to the line between the
	// two ships, seen from their end of it.
	reciprocal := math.Atan2(-dy, -dx)
	facing := opp.Heading - reciprocal
	f.OppFacingSin = math.Sin(facing)
	f.OppFacingCos = math.Cos(facing)

	f.OwnSpeed = math.Min(self.Speed()/p.MaxSpeed, 1)
	f.OppSpeed = math.Min(opp.Speed()/p.MaxSpeed, 1)

	// Nearest projectile that can actually hit us. Sentinel when the
	// sky is clear: maximum distance, zero bearing.
	f.ThreatDist = 1
	f.ThreatSin = 0
	f.ThreatCos = 1
	nearest := -1
	nearestDist := math.Inf(1)
	for i := range s.Projectiles {
		if s.Projectiles[i].Owner == shipIndex {
			continue
		}
		d := game.ToroidalDist(self.X, self.Y, s.Projectiles[i].X, s.Projectiles[i].Y, p.ArenaWidth, p.ArenaHeight)
		if d < nearestDist {
			nearest = i
			nearestDist = d
		}
	}
	if nearest >= 0 {
		pr := &s.Projectiles[nearest]
		pdx, pdy := game.ToroidalDelta(self.X, self.Y, pr.X, pr.Y, p.ArenaWidth, p.ArenaHeight)
		pb := math.Atan2(pdy, pdx) - self.Heading
		f.ThreatDist = math.Min(nearestDist/p.SensorRange, 1)
		f.ThreatSin = math.Sin(pb)
		f.ThreatCos = math.Cos(pb)
	}

	// Drift: which way the ship is actually moving versus which way
	// it points. Identity when nearly still.
	f.DriftSin = 0
	f.DriftCos = 1
	if self.Speed() > 1e-6 {
		drift := math.Atan2(self.VY, self.VX) - self.Heading
		f.DriftSin = math.Sin(drift)
		f.DriftCos = math.Cos(drift)
	}

	if p.FireCooldown > 0 {
		f.Cooldown = self.Cooldown / p.FireCooldown
	}
	f.ShotsOut = float64(s.LiveProjectiles(shipIndex)) / float64(p.MaxProjectiles)

	return f
}

// Sense returns the flattened input vector for the given ship; the
// composition of SenseFrame and AsInputs.
func Sense(s *game.State, shipIndex int) [InputCount]float64 {
	f := SenseFrame(s, shipIndex)
	return f.AsInputs()
}

// ActionFromOutputs maps a forward pass onto the control signals the
// physics consumes.
func ActionFromOutputs(out [OutputCount]float64) game.Action {
	return game.Action{
		Thrust:    out[0],
		TurnLeft:  out[1],
		TurnRight: out[2],
		Fire:      out[3],
	}
}
