package daemon

// Config holds the daemon's file locations, populated by the CLI.
type Config struct {
	// TabletConfig is the path of the optional hot-reloaded quirks file.
	TabletConfig string
}
