package registry

// lockerTable stores one row per locker/candidate, keyed by the hex-encoded
// locking script (invariant I5's script→target direction); targetAddress
// carries the inverse. Amount fields are decimal-string *big.Int the same
// way ledger's accountTable stores balances.
var lockerTable = `CREATE TABLE IF NOT EXISTS locker (
	lockingScriptHex VARCHAR(130) PRIMARY KEY NOT NULL,
	rescueScriptHex VARCHAR(130) NOT NULL,
	rescueType TINYINT NOT NULL,
	targetAddress VARCHAR(42) UNIQUE NOT NULL,
	nativeTokenLockedAmount VARCHAR(80) NOT NULL,
	netMinted VARCHAR(80) NOT NULL,
	slashingCoreBTCAmount VARCHAR(80) NOT NULL,
	isCandidate BOOLEAN NOT NULL DEFAULT 0,
	isLocker BOOLEAN NOT NULL DEFAULT 0,
	inactivationTimestamp BIGINT NOT NULL DEFAULT 0
);`
