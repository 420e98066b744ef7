package dispatch

import (
	"github.com/roach88/physutils/internal/bids"
	"github.com/roach88/physutils/internal/physio"
)

// Capabilities are the optional collaborators available to a Dispatcher.
type Capabilities struct {
	// DatasetLayout is set when dataset loads can be performed and
	// replayed, i.e. the registry resolves the dataset load operation.
	DatasetLayout bool

	// Workflow is set when tasks can be recorded into a catalog.
	Workflow bool
}

// DetectCapabilities probes reg and rec once.
func DetectCapabilities(reg *physio.Registry, rec Recorder) Capabilities {
	_, err := reg.Lookup(bids.LoadFromBIDSOp)
	return Capabilities{
		DatasetLayout: err == nil,
		Workflow:      rec != nil,
	}
}
