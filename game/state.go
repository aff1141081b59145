// Package game implements the deterministic physics for a two-ship
// duel in a toroidal arena: flight integration, projectile handling,
// collisions, and match termination. It is the innermost layer of the
// simulation and depends on nothing but the configuration snapshot it
// is handed at construction.
package game

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/duel/config"
)

// FireThreshold is the control-signal level strictly above which the
// fire output counts as a trigger pull. A neutral network output
// (sigmoid of zero, exactly 0.5) does not fire.
const FireThreshold = 0.5

// Action holds one ship's control signals for a single tick. Thrust
// and the turn channels are clamped to [0,1] on read; Fire is
// thresholded at FireThreshold.
type Action struct {
	Thrust    float64
	TurnLeft  float64
	TurnRight float64
	Fire      float64
}

// Ship is the full per-ship state for one match.
type Ship struct {
	X, Y       float64
	VX, VY     float64
	Heading    float64 // radians; unbounded, only ever read through sin/cos
	Alive      bool
	Cooldown   float64 // seconds until the ship may fire again
	ShotsFired int
	HitsScored int
}

// Speed returns the ship's current speed.
func (sh *Ship) Speed() float64 {
	return speedOf(sh.VX, sh.VY)
}

// Projectile is a live shot. Owner is the index of the ship that
// fired it; it can only ever hit the other ship.
type Projectile struct {
	X, Y     float64
	VX, VY   float64
	Lifetime float64 // seconds of flight remaining
	Owner    int
}

// Params is the snapshot of physics tuning a match runs under. A
// State captures its Params at construction so a match is unaffected
// by later configuration changes.
type Params struct {
	ArenaWidth  float64
	ArenaHeight float64

	RotationSpeed float64
	ThrustAccel   float64
	Drag          float64 // per 1/60s tick, generalized to dt via exponentiation
	MaxSpeed      float64
	ShipRadius    float64
	FireCooldown  float64
	SensorRange   float64

	ProjectileSpeed    float64
	ProjectileLifetime float64
	ProjectileRadius   float64
	MaxProjectiles     int // per ship, live at once
	MomentumInherit    float64

	MatchDuration float64
}

// ParamsFromConfig builds a Params snapshot from the loaded
// configuration.
func ParamsFromConfig(c *config.Config) Params {
	return Params{
		ArenaWidth:         c.Arena.Width,
		ArenaHeight:        c.Arena.Height,
		RotationSpeed:      c.Ship.RotationSpeed,
		ThrustAccel:        c.Ship.ThrustAccel,
		Drag:               c.Ship.Drag,
		MaxSpeed:           c.Ship.MaxSpeed,
		ShipRadius:         c.Ship.Radius,
		FireCooldown:       c.Ship.FireCooldown,
		SensorRange:        c.Ship.SensorRange,
		ProjectileSpeed:    c.Projectile.Speed,
		ProjectileLifetime: c.Projectile.Lifetime,
		ProjectileRadius:   c.Projectile.Radius,
		MaxProjectiles:     c.Projectile.MaxPerShip,
		MomentumInherit:    c.Projectile.MomentumInherit,
		MatchDuration:      c.Match.Duration,
	}
}

// State is the complete match state: exactly two ships, their live
// projectiles, and the match clock. Winner is -1 until the match ends
// with a sole survivor.
type State struct {
	Ships       [2]Ship
	Projectiles []Projectile
	Elapsed     float64
	Over        bool
	Winner      int

	params Params
}

// New returns a State with zeroed ships (both alive at the origin)
// under the given tuning. Callers position the ships themselves; use
// NewRandomized for standard match starts.
func New(p Params) *State {
	s := &State{
		Projectiles: make([]Projectile, 0, 2*p.MaxProjectiles),
		Winner:      -1,
		params:      p,
	}
	s.Ships[0].Alive = true
	s.Ships[1].Alive = true
	return s
}

// NewRandomized returns a match-ready State: the ships spawn in
// opposite quarter-width columns at a random height in the middle
// half of the arena, roughly facing each other with up to half a
// radian of heading jitter.
func NewRandomized(p Params, rng *rand.Rand) *State {
	s := New(p)
	for i := range s.Ships {
		y := p.ArenaHeight/4 + rng.Float64()*p.ArenaHeight/2
		jitter := (rng.Float64()*2 - 1) * 0.5
		s.Ships[i].Y = y
		s.Ships[i].Heading = jitter
	}
	s.Ships[0].X = p.ArenaWidth / 4
	s.Ships[1].X = 3 * p.ArenaWidth / 4
	s.Ships[1].Heading += math.Pi
	return s
}

// Params returns the tuning snapshot this match runs under.
func (s *State) Params() Params {
	return s.params
}

// AliveCount returns the number of living ships.
func (s *State) AliveCount() int {
	n := 0
	for i := range s.Ships {
		if s.Ships[i].Alive {
			n++
		}
	}
	return n
}

// LiveProjectiles returns the number of in-flight projectiles owned
// by the given ship.
func (s *State) LiveProjectiles(owner int) int {
	n := 0
	for i := range s.Projectiles {
		if s.Projectiles[i].Owner == owner {
			n++
		}
	}
	return n
}

// Update advances the match by dt seconds given both ships' control
// signals. Once the match is over only the clock advances; the
// Running-to-Over transition is one way.
func (s *State) Update(dt float64, actions [2]Action) {
	s.Elapsed += dt
	if s.Over {
		return
	}

	for i := range s.Ships {
		s.stepShip(i, dt, actions[i])
	}
	s.collideShips()
	s.stepProjectiles(dt)
	s.resolveHits()
	s.checkEnd()
}

// stepShip integrates one ship for one tick and handles its fire
// request. Dead ships are frozen entirely.
func (s *State) stepShip(i int, dt float64, a Action) {
	sh := &s.Ships[i]
	if !sh.Alive {
		return
	}
	p := &s.params

	turn := clamp01(a.TurnRight) - clamp01(a.TurnLeft)
	sh.Heading += turn * p.RotationSpeed * dt

	thrust := clamp01(a.Thrust)
	sh.VX += math.Cos(sh.Heading) * thrust * p.ThrustAccel * dt
	sh.VY += math.Sin(sh.Heading) * thrust * p.ThrustAccel * dt

	// Drag is defined per 1/60s tick; exponentiation keeps behavior
	// identical across timestep choices.
	decay := math.Pow(p.Drag, dt*60)
	sh.VX *= decay
	sh.VY *= decay

	if speed := sh.Speed(); speed > p.MaxSpeed {
		scale := p.MaxSpeed / speed
		sh.VX *= scale
		sh.VY *= scale
	}

	sh.X = Wrap(sh.X+sh.VX*dt, p.ArenaWidth)
	sh.Y = Wrap(sh.Y+sh.VY*dt, p.ArenaHeight)

	sh.Cooldown -= dt
	if sh.Cooldown < 0 {
		sh.Cooldown = 0
	}

	if a.Fire > FireThreshold && sh.Cooldown <= 0 && s.LiveProjectiles(i) < p.MaxProjectiles {
		s.fire(i)
	}
}

// fire spawns a projectile at the ship's nose, inheriting a fraction
// of the ship's momentum, and starts the cooldown.
func (s *State) fire(i int) {
	sh := &s.Ships[i]
	p := &s.params

	dirX := math.Cos(sh.Heading)
	dirY := math.Sin(sh.Heading)
	s.Projectiles = append(s.Projectiles, Projectile{
		X:        sh.X + dirX*p.ShipRadius,
		Y:        sh.Y + dirY*p.ShipRadius,
		VX:       dirX*p.ProjectileSpeed + sh.VX*p.MomentumInherit,
		VY:       dirY*p.ProjectileSpeed + sh.VY*p.MomentumInherit,
		Lifetime: p.ProjectileLifetime,
		Owner:    i,
	})
	sh.Cooldown = p.FireCooldown
	sh.ShotsFired++
}

// collideShips separates overlapping ships along the toroidal contact
// normal and exchanges their closing velocity elastically (equal
// mass). Runs only while both ships are alive.
func (s *State) collideShips() {
	a := &s.Ships[0]
	b := &s.Ships[1]
	if !a.Alive || !b.Alive {
		return
	}
	p := &s.params

	dx, dy := ToroidalDelta(a.X, a.Y, b.X, b.Y, p.ArenaWidth, p.ArenaHeight)
	dist := math.Sqrt(dx*dx + dy*dy)
	minDist := 2 * p.ShipRadius
	if dist >= minDist || dist <= 1e-9 {
		return
	}

	nx := dx / dist
	ny := dy / dist
	overlap := minDist - dist

	a.X = Wrap(a.X-nx*overlap/2, p.ArenaWidth)
	a.Y = Wrap(a.Y-ny*overlap/2, p.ArenaHeight)
	b.X = Wrap(b.X+nx*overlap/2, p.ArenaWidth)
	b.Y = Wrap(b.Y+ny*overlap/2, p.ArenaHeight)

	// Reflect only a closing approach; separating ships keep their
	// velocities.
	relVN := (b.VX-a.VX)*nx + (b.VY-a.VY)*ny
	if relVN < 0 {
		a.VX += relVN * nx
		a.VY += relVN * ny
		b.VX -= relVN * nx
		b.VY -= relVN * ny
	}
}

// stepProjectiles integrates projectile flight and drops expired
// shots by rebuilding the live slice in place.
func (s *State) stepProjectiles(dt float64) {
	p := &s.params
	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		pr.X = Wrap(pr.X+pr.VX*dt, p.ArenaWidth)
		pr.Y = Wrap(pr.Y+pr.VY*dt, p.ArenaHeight)
		pr.Lifetime -= dt
		if pr.Lifetime > 0 {
			kept = append(kept, pr)
		}
	}
	s.Projectiles = kept
}

// resolveHits tests every projectile against the ship that did not
// fire it. A hit kills the target, credits the shooter, and consumes
// the projectile. The live set is rebuilt in one pass, so several
// hits in the same tick cannot disturb each other.
func (s *State) resolveHits() {
	p := &s.params
	hitDist := p.ShipRadius + p.ProjectileRadius

	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		target := &s.Ships[1-pr.Owner]
		if target.Alive {
			d := ToroidalDist(pr.X, pr.Y, target.X, target.Y, p.ArenaWidth, p.ArenaHeight)
			if d < hitDist {
				target.Alive = false
				s.Ships[pr.Owner].HitsScored++
				continue
			}
		}
		kept = append(kept, pr)
	}
	s.Projectiles = kept
}

// checkEnd performs the one-way Running-to-Over transition: by
// elimination when at most one ship survives, or by the match clock.
// Winner stays -1 on a double kill or a timeout with both alive.
func (s *State) checkEnd() {
	alive := 0
	last := -1
	for i := range s.Ships {
		if s.Ships[i].Alive {
			alive++
			last = i
		}
	}
	if alive <= 1 || s.Elapsed >= s.params.MatchDuration {
		s.Over = true
		if alive == 1 {
			s.Winner = last
		}
	}
}
