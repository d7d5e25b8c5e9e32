// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine
// and a runner that drives an App from the Ebiten game loop.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/plus3/luminara/app"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// The runner stores it as a resource so systems can reach the backend.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// Game implements ebiten.Game: every Update opens an ImGui frame, runs one App
// frame and closes the ImGui frame; Draw renders ImGui over the screen.
type Game struct {
	app     *app.App
	backend *ebitenbackend.EbitenBackend

	// DrawFunc, when set, draws game content beneath the ImGui overlay.
	DrawFunc func(screen *ebiten.Image)
}

// NewGame creates a Game for a using backend.
func NewGame(a *app.App, backend *ebitenbackend.EbitenBackend) *Game {
	return &Game{app: a, backend: backend}
}

func (g *Game) Update() error {
	g.backend.BeginFrame()
	err := g.app.Update()
	g.backend.EndFrame()
	return err
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.DrawFunc != nil {
		g.DrawFunc(screen)
	}
	g.backend.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.backend.Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// WindowOptions configures the window opened by Runner.
type WindowOptions struct {
	Title         string
	Width, Height int
	// Draw, when set, draws game content beneath the ImGui overlay.
	Draw func(screen *ebiten.Image)
}

// Runner returns an app.Runner that opens a window and hands the frame loop to Ebiten.
func Runner(opts WindowOptions) app.Runner {
	return func(a *app.App) error {
		backend := ebitenbackend.NewEbitenBackend()
		backend.CreateWindow(opts.Title, opts.Width, opts.Height)
		imgui.CurrentIO().SetIniFilename("")

		a.InsertResource(ImguiBackend{EbitenBackend: backend})
		game := NewGame(a, backend)
		game.DrawFunc = opts.Draw
		return ebiten.RunGame(game)
	}
}
