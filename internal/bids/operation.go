package bids

import (
	"github.com/roach88/physutils/internal/physio"
)

func init() {
	physio.Register(LoadFromBIDSOp, loadFromBIDS)
}

// loadFromBIDS replays a dataset load. It only runs as a seed: there is
// no meaningful way to load a dataset channel onto an existing Signal.
func loadFromBIDS(call physio.Call) (*physio.Signal, error) {
	if call.Receiver != nil {
		return nil, &physio.Error{
			Code:      physio.ErrCodeInvalidArgument,
			Message:   "a dataset load cannot be applied to an existing signal",
			Operation: LoadFromBIDSOp,
		}
	}
	dir, ok := call.Args.GetString("data")
	if !ok {
		return nil, &physio.Error{
			Code:      physio.ErrCodeInvalidArgument,
			Message:   "dataset load requires a string \"data\" directory argument",
			Operation: LoadFromBIDSOp,
		}
	}
	channel, ok := call.Args.GetString("channel")
	if !ok {
		return nil, &physio.Error{
			Code:      physio.ErrCodeInvalidArgument,
			Message:   "dataset load requires a string \"channel\" argument",
			Operation: LoadFromBIDSOp,
		}
	}
	sel, err := selectorFromArgs(call.Args)
	if err != nil {
		return nil, &physio.Error{Code: physio.ErrCodeInvalidArgument, Message: err.Error(), Operation: LoadFromBIDSOp}
	}
	return LoadChannel(dir, sel, channel, call.Logger)
}
