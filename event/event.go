// Package event provides the publish/subscribe channel that relays
// authentication outcome notifications to decoupled consumers.
//
// The bus is an explicitly constructed component: build one at process
// start, share it by reference among the authenticator and its
// subscribers, and Close it at shutdown when async dispatch is enabled.
package event

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Topics published by the authentication core
const (
	TopicLoginSucceeded = "authc.login.succeeded"
	TopicLoginFailed    = "authc.login.failed"
	TopicLogout         = "authc.logout"
)

type (
	// An Event is one authentication outcome notification.
	// By construction it never carries credential material
	Event struct {
		// ID is a lexicographically sortable unique identifier,
		// stamped by the bus at publish time when empty
		ID string
		// Topic the event was published under
		Topic string
		// Principal the attempt concerned
		Principal string
		// Failure names the failure kind, empty on success
		Failure string
		// At is the publish time, stamped by the bus when zero
		At time.Time
	}

	// A Handler consumes published events. Handlers must not retain
	// the event past their invocation
	Handler func(ctx context.Context, ev Event)
)

var nowFunc = time.Now

func newEventID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		// rand.Reader does not fail in practice; fall back to a
		// timestamp-only identifier rather than dropping the event
		return ulid.MustNew(ulid.Timestamp(now), zeroReader{}).String()
	}

	return id.String()
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
