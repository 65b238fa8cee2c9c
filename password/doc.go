// Package password hashes secrets with Argon2id and scores candidate
// passwords against the dashboard's strength rules.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters than the
// current configuration so callers can rehash after a successful login.
//
// The package never stores or logs secrets. It does not import any other
// dashauth package.
package password
