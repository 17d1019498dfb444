package arbor

// Commands is the facade handed to modules and injected into systems
// for app-level mutations.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Quit stops the Run loop after the current frame completes.
func (cmd *Commands) Quit() {
	cmd.app.quit = true
}
