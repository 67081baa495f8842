// Package password hashes credential passwords for the reference backend with
// argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Stored hashes produced with weaker parameters are detected by
// [Argon2.NeedsRehash] so the backend can upgrade them on the next successful
// sign-in.
//
// The session manager never hashes anything itself: credentials live in the
// remote service. This package must not import any other dealAuth package.
package password
