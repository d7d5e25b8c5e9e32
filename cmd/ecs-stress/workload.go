package main

import (
	"math/rand"

	"github.com/plus3/luminara/app"
	"github.com/plus3/luminara/ecs"
)

type Position struct{ X, Y float32 }
type Velocity struct{ DX, DY float32 }
type Mass struct{ Kg float32 }
type Health struct{ Current, Max int32 }
type Energy struct{ Value float32 }
type Age struct{ Frames uint32 }
type Team uint8
type Frozen struct{}

// Collision is sent when an entity leaves the arena.
type Collision struct {
	Entity ecs.Entity
}

// Body is the bundle most spawned entities start from.
type Body struct {
	Position Position
	Velocity Velocity
	Mass     Mass
}

const arenaSize = 1000

// workloadComponents is the number of component types the workload registers.
const workloadComponents = 8

// Workload registers the stress components and systems.
type Workload struct {
	// Churn is the number of entities despawned and respawned per frame.
	Churn int
	rng   *rand.Rand
}

func (Workload) Name() string    { return "stress" }
func (Workload) Version() string { return "1.0.0" }

func (wl *Workload) Build(a *app.App) {
	app.RegisterBundle[Body](a)
	app.RegisterComponent[Health](a)
	app.RegisterComponent[Energy](a)
	app.RegisterComponent[Age](a)
	app.RegisterComponent[Team](a)
	app.RegisterComponent[Frozen](a)
	app.AddEvent[Collision](a)

	a.AddSystem(ecs.PreUpdate, gravitySystem)
	a.AddSystem(ecs.Update, movementSystem)
	a.AddSystem(ecs.Update, ageSystem)
	a.AddSystem(ecs.Update, regenSystem)
	a.AddSystem(ecs.FixedUpdate, boundsSystem)
	a.AddSystem(ecs.PostUpdate, wl.churnSystem)
	a.AddSystem(ecs.PostUpdate, collisionSystem)
}

// SpawnRandomEntity spawns a Body plus up to extra optional components.
func SpawnRandomEntity(w *ecs.World, rng *rand.Rand, extra int) ecs.Entity {
	e, _ := ecs.SpawnBundle(w, randomBody(rng))
	for _, c := range randomExtras(rng, extra) {
		w.InsertComponent(e, c)
	}
	return e
}

func randomBody(rng *rand.Rand) Body {
	return Body{
		Position: Position{X: rng.Float32() * arenaSize, Y: rng.Float32() * arenaSize},
		Velocity: Velocity{DX: rng.Float32()*2 - 1, DY: rng.Float32()*2 - 1},
		Mass:     Mass{Kg: 1 + rng.Float32()*10},
	}
}

func randomExtras(rng *rand.Rand, n int) []any {
	pool := []any{
		Health{Current: 50, Max: 100},
		Energy{Value: rng.Float32() * 100},
		Age{},
		Team(rng.Intn(4)),
		Frozen{},
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(n, len(pool))]
}

func gravitySystem(frame *ecs.UpdateFrame, q *ecs.Query[struct {
	Velocity *Velocity `ecs:"mut"`
	Mass     *Mass
	_        ecs.Without[Frozen]
}]) {
	dt := float32(frame.DeltaTime)
	q.ParForEachMut(func(_ ecs.Entity, item struct {
		Velocity *Velocity `ecs:"mut"`
		Mass     *Mass
		_        ecs.Without[Frozen]
	}) {
		item.Velocity.DY += 9.8 * dt / item.Mass.Kg
	})
}

func movementSystem(frame *ecs.UpdateFrame, q *ecs.Query[struct {
	Position *Position `ecs:"mut"`
	Velocity *Velocity
}]) {
	dt := float32(frame.DeltaTime)
	for _, item := range q.IterMut() {
		item.Position.X += item.Velocity.DX * dt
		item.Position.Y += item.Velocity.DY * dt
	}
}

func ageSystem(q *ecs.Query[struct {
	Age *Age `ecs:"mut"`
}]) {
	for _, item := range q.IterMut() {
		item.Age.Frames++
	}
}

func regenSystem(q *ecs.Query[struct {
	Health *Health `ecs:"mut"`
	Energy *Energy `ecs:"optional"`
	_      ecs.Or[ecs.With[Energy], ecs.With[Team]]
}]) {
	for _, item := range q.IterMut() {
		step := int32(1)
		if item.Energy != nil && item.Energy.Value > 50 {
			step = 2
		}
		item.Health.Current = min(item.Health.Current+step, item.Health.Max)
	}
}

func boundsSystem(q *ecs.Query[struct {
	Entity   ecs.Entity
	Position *Position
	_        ecs.Changed[Position]
}], collisions *ecs.EventWriter[Collision]) {
	for item := range q.Values() {
		p := item.Position
		if p.X < 0 || p.Y < 0 || p.X > arenaSize || p.Y > arenaSize {
			collisions.Send(Collision{Entity: item.Entity})
		}
	}
}

func collisionSystem(cmds *ecs.Commands, collisions *ecs.EventReader[Collision]) {
	for c := range collisions.Read() {
		cmds.Despawn(c.Entity)
	}
}

func (wl *Workload) churnSystem(cmds *ecs.Commands, q *ecs.Query[struct {
	Entity ecs.Entity
	_      ecs.With[Age]
}]) {
	if wl.Churn <= 0 {
		return
	}
	if wl.rng == nil {
		wl.rng = rand.New(rand.NewSource(1))
	}

	n := 0
	for e := range q.Iter() {
		if n == wl.Churn {
			break
		}
		cmds.Despawn(e)
		n++
	}
	for i := 0; i < n; i++ {
		body := randomBody(wl.rng)
		e, _ := cmds.SpawnBundle(body)
		cmds.Insert(e, Age{})
	}
}
