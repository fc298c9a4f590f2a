package session

// Status is the load state of the comparison data.
type Status string

const (
	StatusNoData  Status = "no_data"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)
