package pvpchan

// Errors
var (
	ErrHubClosed = errf("hub closed")
	ErrNoMatchID = errf("event without match id")
	ErrNilRedis  = errf("relay requires a redis client")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
