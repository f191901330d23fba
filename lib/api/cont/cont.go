package cont

import (
	"context"
	"qiming/entity"
)

type ctxKey string

const identityKey ctxKey = "identity"

func PutIdentity(c context.Context, identity *entity.Identity) context.Context {
	return context.WithValue(c, identityKey, *identity)
}

func GetIdentity(c context.Context) *entity.Identity {
	identity, ok := c.Value(identityKey).(entity.Identity)
	if !ok {
		return &entity.Identity{}
	}
	return &identity
}
