package request

import "github.com/samvad-hq/reqwatch/pkg/httpclient"

// State is the observable lifecycle record of a controller.
//
// Response and Data hold the last successful result and survive later failed
// attempts. Finished, Canceled and Err describe the current attempt only and
// are reset when a new attempt starts.
type State struct {
	Response httpclient.Response
	Data     any
	Finished bool
	Canceled bool
	Err      error
	Attempt  uint64
}

// Succeeded reports whether the current attempt settled without error.
func (s State) Succeeded() bool {
	return s.Finished && s.Err == nil
}
