// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth is the identity provider.

# Sign-in

A username of 2 to 50 characters (after trimming) signs in. The first sign-in
for a name creates its profile; later ones reuse it:

	session, err := provider.SignIn(ctx, "alice")
	// session.Token, session.Profile, session.IsNew

There are no passwords. A username is a display handle, not a secret.

# Tokens

Tokens are HS256 JWTs signed with TOKEN_SECRET. The subject is the profile ID,
jti is a random 128-bit hex ID and exp is the sign-in time plus TOKEN_TTL:

	id, err := provider.Verify(token)

Verify returns ErrInvalidToken for anything malformed or badly signed,
ErrTokenExpired and ErrTokenRevoked otherwise.

# Sign-out

SignOut puts the token's jti on an in-memory revocation list until the token
would have expired. Expired entries are pruned on each sign-out. The list is
per process, so a restart forgets revocations.

# Request identity

The HTTP layer stores the verified Identity on the request context:

	ctx = auth.WithIdentity(ctx, id)
	id, ok := auth.FromContext(ctx)
*/
package auth
