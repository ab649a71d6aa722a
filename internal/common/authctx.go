package common

import "context"

type ctxKey string

const actorKey ctxKey = "auth/actor"

// Actor identifies the authenticated cashier operating the terminal, with the
// roles granted by the backend-issued token.
type Actor struct {
	ID    string
	Roles []string
}

// HasRole reports whether the actor carries any of the requested roles. This
// is the capability check the terminal consults; role management itself lives
// in the backend.
func (a Actor) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range a.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom extracts the authenticated actor from the context if present.
func ActorFrom(ctx context.Context) (Actor, bool) {
	v := ctx.Value(actorKey)
	if v == nil {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
