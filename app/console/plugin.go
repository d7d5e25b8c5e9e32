package console

import (
	"github.com/plus3/luminara/app"
	"github.com/plus3/luminara/ecs"
)

// Input is an event carrying one line typed into the console.
type Input struct {
	Line string
}

// Plugin inserts a Console resource and a PreUpdate system that executes
// every Input event sent to the World.
type Plugin struct {
	MaxHistory int
}

func (Plugin) Name() string    { return "console" }
func (Plugin) Version() string { return "1.0.0" }

func (p Plugin) Build(a *app.App) {
	c := New(a)
	if p.MaxHistory > 0 {
		c.MaxHistory = p.MaxHistory
	}
	a.InsertResource(c)
	app.AddEvent[Input](a)
	a.AddSystem(ecs.PreUpdate, execInput,
		ecs.WithName("console.exec"),
		ecs.WithAccess(ecs.NewAccess(ecs.Exclusive())),
	)
}

func execInput(con *ecs.ResMut[Console], input *ecs.EventReader[Input]) {
	c := con.Get()
	if c == nil {
		return
	}
	for ev := range input.Read() {
		_, _ = c.Exec(ev.Line)
	}
}
