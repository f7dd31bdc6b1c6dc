package capture

import "errors"

var (
	// ErrBusy is returned by Start while another session is open.
	ErrBusy = errors.New("capture: session already active")

	// ErrPipe indicates the redirection pipes could not be created.
	ErrPipe = errors.New("capture: pipe unavailable")
)
