package controller

// PerformanceController steps device performance up and down while a game
// is scheduled. Limit and Release must not block.
type PerformanceController interface {
	// Limit lowers performance by one step.
	Limit()
	// Release raises performance by one step.
	Release()
	// PlugIn takes control, called each time scheduling starts.
	PlugIn() error
	// PlugOut hands control back to the system.
	PlugOut() error
}

// Candidate is one device-specific controller, probed before construction.
type Candidate struct {
	Name    string
	Support func() bool
	New     func() (PerformanceController, error)
}
