package domain

import (
	"fmt"
	"strings"
)

// InputError reports a malformed user-supplied value. It is never retried.
type InputError struct {
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid repository %q: %s", e.Value, e.Reason)
}

// RepoRef identifies a repository on the host.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoRef splits "owner/repo". Everything after the first slash is the repo name.
func ParseRepoRef(s string) (RepoRef, error) {
	owner, name, ok := strings.Cut(s, "/")
	if !ok {
		return RepoRef{}, &InputError{Value: s, Reason: "must be in format 'owner/repo'"}
	}
	if owner == "" || name == "" {
		return RepoRef{}, &InputError{Value: s, Reason: "owner and repo must both be non-empty"}
	}
	return RepoRef{Owner: owner, Name: name}, nil
}
