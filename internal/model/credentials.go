package model

// Credentials holds the sandbox username and password for the duration of
// one run. They live only in memory: they are never written to disk, and
// the log package masks them if they ever reach a log attribute.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credentials were provided.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}
