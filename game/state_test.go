package game

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

const testDT = 1.0 / 60.0

func testParams() Params {
	return Params{
		ArenaWidth:         800,
		ArenaHeight:        600,
		RotationSpeed:      5,
		ThrustAccel:        200,
		Drag:               0.98,
		MaxSpeed:           300,
		ShipRadius:         12,
		FireCooldown:       0.25,
		SensorRange:        500,
		ProjectileSpeed:    400,
		ProjectileLifetime: 2,
		ProjectileRadius:   2,
		MaxProjectiles:     5,
		MomentumInherit:    0.3,
		MatchDuration:      30,
	}
}

func TestSpeedCapRescalesOverspeed(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[0].VX = 400 // above the cap
	s.Ships[1].X, s.Ships[1].Y = 700, 500

	s.Update(testDT, [2]Action{})

	if sp := s.Ships[0].Speed(); math.Abs(sp-s.params.MaxSpeed) > 1e-9 {
		t.Errorf("overspeed ship rescaled to %g, want exactly %g", sp, s.params.MaxSpeed)
	}
}

func TestFullThrustConvergesBelowCap(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 700, 500

	full := Action{Thrust: 1}
	for tick := 0; tick < 600; tick++ {
		s.Update(testDT, [2]Action{full, full})
		for i := range s.Ships {
			if sp := s.Ships[i].Speed(); sp > s.params.MaxSpeed+1e-6 {
				t.Fatalf("tick %d: ship %d speed %g exceeds cap %g", tick, i, sp, s.params.MaxSpeed)
			}
		}
	}
	// Sustained thrust settles at the drag equilibrium: each tick adds
	// accel*dt then multiplies by drag.
	terminal := s.params.ThrustAccel * testDT * s.params.Drag / (1 - s.params.Drag)
	if sp := s.Ships[0].Speed(); math.Abs(sp-terminal) > 1 {
		t.Errorf("cruise speed %g after 10s, want near %g", sp, terminal)
	}
}

func TestProjectileCapAndCooldown(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 300
	s.Ships[1].X, s.Ships[1].Y = 100, 100 // out of the firing line

	fire := [2]Action{{Fire: 1}, {}}

	s.Update(testDT, fire)
	if got := s.Ships[0].ShotsFired; got != 1 {
		t.Fatalf("ShotsFired after first tick = %d, want 1", got)
	}
	// Cooldown gates the next shot: silence while under 0.25s, second
	// shot as soon as the cooldown has drained (tick 16 or 17,
	// depending on rounding of the accumulated decrements).
	second := 0
	for tick := 2; tick <= 20 && second == 0; tick++ {
		s.Update(testDT, fire)
		if s.Ships[0].ShotsFired == 2 {
			second = tick
		}
	}
	if second < 16 || second > 17 {
		t.Fatalf("second shot on tick %d, want 16 or 17", second)
	}

	// Holding the trigger for 10s must never put more than the per-ship
	// cap in flight at once.
	for tick := 0; tick < 600; tick++ {
		s.Update(testDT, fire)
		if n := s.LiveProjectiles(0); n > s.params.MaxProjectiles {
			t.Fatalf("tick %d: %d live projectiles, cap %d", tick, n, s.params.MaxProjectiles)
		}
	}
	if n := s.LiveProjectiles(1); n != 0 {
		t.Errorf("silent ship owns %d projectiles, want 0", n)
	}
}

func TestShipCollisionBounce(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y, s.Ships[0].VX = 400, 300, 50
	s.Ships[1].X, s.Ships[1].Y, s.Ships[1].VX = 421, 300, -50

	s.Update(testDT, [2]Action{})

	if s.Ships[0].VX >= 0 || s.Ships[1].VX <= 0 {
		t.Errorf("closing ships did not bounce: v0x=%g v1x=%g", s.Ships[0].VX, s.Ships[1].VX)
	}
	// Equal-mass elastic exchange swaps the (drag-scaled) closing speeds.
	if math.Abs(s.Ships[0].VX+s.Ships[1].VX) > 1e-9 {
		t.Errorf("bounce not symmetric: v0x=%g v1x=%g", s.Ships[0].VX, s.Ships[1].VX)
	}
	d := ToroidalDist(s.Ships[0].X, s.Ships[0].Y, s.Ships[1].X, s.Ships[1].Y, 800, 600)
	if d < 2*s.params.ShipRadius-1e-9 {
		t.Errorf("ships still overlapping after separation: dist %g", d)
	}
}

func TestShipCollisionSeparatingNoReflect(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y, s.Ships[0].VX = 400, 300, -50
	s.Ships[1].X, s.Ships[1].Y, s.Ships[1].VX = 415, 300, 50

	s.Update(testDT, [2]Action{})

	// Overlapping but already separating: pushed apart, velocities keep
	// their directions.
	if s.Ships[0].VX >= 0 || s.Ships[1].VX <= 0 {
		t.Errorf("separating ships were reflected: v0x=%g v1x=%g", s.Ships[0].VX, s.Ships[1].VX)
	}
	d := ToroidalDist(s.Ships[0].X, s.Ships[0].Y, s.Ships[1].X, s.Ships[1].Y, 800, 600)
	if d < 2*s.params.ShipRadius-1e-9 {
		t.Errorf("ships still overlapping: dist %g", d)
	}
}

func TestProjectileHitKillsTarget(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 300, 300
	s.Projectiles = append(s.Projectiles, Projectile{
		X: 285, Y: 300, VX: 400, Lifetime: 2, Owner: 0,
	})

	s.Update(testDT, [2]Action{})

	if s.Ships[1].Alive {
		t.Fatal("target ship survived a direct hit")
	}
	if got := s.Ships[0].HitsScored; got != 1 {
		t.Errorf("shooter HitsScored = %d, want 1", got)
	}
	if n := len(s.Projectiles); n != 0 {
		t.Errorf("projectile survived its hit: %d live", n)
	}
	if !s.Over || s.Winner != 0 {
		t.Errorf("match state after kill: over=%v winner=%d, want over with winner 0", s.Over, s.Winner)
	}
}

func TestProjectileIgnoresOwner(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 700, 500
	s.Projectiles = append(s.Projectiles, Projectile{
		X: 100, Y: 100, VX: 1, Lifetime: 2, Owner: 0,
	})

	s.Update(testDT, [2]Action{})

	if !s.Ships[0].Alive {
		t.Fatal("projectile killed its own ship")
	}
	if n := len(s.Projectiles); n != 1 {
		t.Errorf("projectile over its owner was consumed: %d live, want 1", n)
	}
}

func TestSimultaneousKillIsDraw(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 200, 300
	s.Ships[1].X, s.Ships[1].Y = 600, 300
	s.Projectiles = append(s.Projectiles,
		Projectile{X: 595, Y: 300, VX: 10, Lifetime: 2, Owner: 0},
		Projectile{X: 205, Y: 300, VX: -10, Lifetime: 2, Owner: 1},
	)

	s.Update(testDT, [2]Action{})

	if s.Ships[0].Alive || s.Ships[1].Alive {
		t.Fatalf("both ships should be dead: alive0=%v alive1=%v", s.Ships[0].Alive, s.Ships[1].Alive)
	}
	if !s.Over {
		t.Fatal("double kill did not end the match")
	}
	if s.Winner != -1 {
		t.Errorf("double kill declared winner %d, want none", s.Winner)
	}
}

func TestProjectileExpiry(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 700, 500
	s.Projectiles = append(s.Projectiles, Projectile{
		X: 400, Y: 100, VX: 400, Lifetime: 0.01, Owner: 0,
	})

	s.Update(testDT, [2]Action{})

	if n := len(s.Projectiles); n != 0 {
		t.Errorf("expired projectile still live: %d", n)
	}
}

func TestTimeoutDraw(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 700, 500
	s.Elapsed = s.params.MatchDuration - testDT/2

	s.Update(testDT, [2]Action{})

	if !s.Over {
		t.Fatal("match did not end at the time limit")
	}
	if s.Winner != -1 {
		t.Errorf("timeout with both alive declared winner %d, want none", s.Winner)
	}
}

func TestOverFreezesPhysics(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y = 100, 100
	s.Ships[1].X, s.Ships[1].Y = 700, 500
	s.Ships[1].Alive = false
	s.Update(testDT, [2]Action{})
	if !s.Over {
		t.Fatal("sole survivor did not end the match")
	}
	if s.Winner != 0 {
		t.Fatalf("winner = %d, want 0", s.Winner)
	}

	before := s.Ships
	elapsed := s.Elapsed
	s.Update(testDT, [2]Action{{Thrust: 1, Fire: 1}, {Thrust: 1, Fire: 1}})
	if !reflect.DeepEqual(before, s.Ships) {
		t.Error("ship state changed after the match was over")
	}
	if s.Elapsed <= elapsed {
		t.Error("clock did not advance after the match was over")
	}
}

func TestWrapCrossing(t *testing.T) {
	s := New(testParams())
	s.Ships[0].X, s.Ships[0].Y, s.Ships[0].VX = 799, 300, 200
	s.Ships[1].X, s.Ships[1].Y = 400, 100

	s.Update(testDT, [2]Action{})

	if x := s.Ships[0].X; x < 0 || x >= 800 {
		t.Errorf("ship position %g escaped the arena", x)
	}
	if s.Ships[0].X > 400 {
		t.Errorf("ship did not wrap across the seam: x=%g", s.Ships[0].X)
	}
}

func TestNewRandomizedGeometry(t *testing.T) {
	p := testParams()
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 50; trial++ {
		s := NewRandomized(p, rng)
		if s.Ships[0].X != p.ArenaWidth/4 || s.Ships[1].X != 3*p.ArenaWidth/4 {
			t.Fatalf("spawn columns: x0=%g x1=%g", s.Ships[0].X, s.Ships[1].X)
		}
		for i := range s.Ships {
			if y := s.Ships[i].Y; y < p.ArenaHeight/4 || y >= 3*p.ArenaHeight/4 {
				t.Fatalf("ship %d spawned at y=%g, outside middle half", i, y)
			}
		}
		if h := s.Ships[0].Heading; h < -0.5 || h > 0.5 {
			t.Fatalf("ship 0 heading %g outside jitter range", h)
		}
		if h := s.Ships[1].Heading; h < math.Pi-0.5 || h > math.Pi+0.5 {
			t.Fatalf("ship 1 heading %g outside jitter range", h)
		}
		if !s.Ships[0].Alive || !s.Ships[1].Alive || s.Over || s.Winner != -1 {
			t.Fatal("randomized state not match ready")
		}
	}
}

func TestUpdateDeterminism(t *testing.T) {
	p := testParams()
	run := func() *State {
		rng := rand.New(rand.NewSource(99))
		s := NewRandomized(p, rng)
		actRNG := rand.New(rand.NewSource(7))
		for tick := 0; tick < 300; tick++ {
			var acts [2]Action
			for i := range acts {
				acts[i] = Action{
					Thrust:    actRNG.Float64(),
					TurnLeft:  actRNG.Float64(),
					TurnRight: actRNG.Float64(),
					Fire:      actRNG.Float64(),
				}
			}
			s.Update(testDT, acts)
			if s.Over {
				break
			}
		}
		return s
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Error("identical seeds and actions produced diverging states")
	}
}

func BenchmarkUpdate(b *testing.B) {
	p := testParams()
	rng := rand.New(rand.NewSource(1))
	s := NewRandomized(p, rng)
	acts := [2]Action{
		{Thrust: 0.8, TurnRight: 0.3, Fire: 1},
		{Thrust: 0.6, TurnLeft: 0.5, Fire: 1},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Update(testDT, acts)
		if s.Over {
			s = NewRandomized(p, rng)
		}
	}
}
