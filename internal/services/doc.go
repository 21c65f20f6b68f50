// Package services defines the remote photo store contract consumed by the
// upload engine, plus its Flickr implementation.
//
// The engine never talks HTTP directly; everything it needs from the remote
// side (upload, photoset listing, photoset creation, membership) goes
// through [Service], so tests can substitute an instrumented double.
package services
