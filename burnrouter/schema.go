package burnrouter

// burnRequestTable stores the append-only per-locker sequence of spec.md
// §3's BurnRequest, keyed by (lockingScriptHex, requestIdOfLocker).
// usedProofTable is the isUsedAsBurnProof set (invariant I4).
var (
	burnRequestTable = `CREATE TABLE IF NOT EXISTS burn_request (
		lockingScriptHex VARCHAR(130) NOT NULL,
		requestIdOfLocker BIGINT UNSIGNED NOT NULL,
		amount VARCHAR(80) NOT NULL,
		burntAmount VARCHAR(80) NOT NULL,
		sender VARCHAR(42) NOT NULL,
		userScriptHex VARCHAR(66) NOT NULL,
		scriptType TINYINT NOT NULL,
		deadline BIGINT UNSIGNED NOT NULL,
		isTransferred BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (lockingScriptHex, requestIdOfLocker)
	);`

	usedProofTable = `CREATE TABLE IF NOT EXISTS used_burn_proof (
		txIdHex CHAR(64) PRIMARY KEY NOT NULL
	);`
)
