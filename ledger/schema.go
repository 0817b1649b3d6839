package ledger

// accountTable stores one row per holder that has ever touched the ledger
// (had a role granted, been blacklisted, or carried a nonzero balance).
// balance is stored as the decimal string form of a *big.Int, following the
// teacher's convention (state/eth2btcstate/schema.go) of keeping amounts as
// fixed-width text rather than a native integer column, since sqlite's
// INTEGER cannot hold a full 256-bit value.
//
// epochTable is a single-row table (id is always 0) tracking the sliding
// mint-limit window, analogous to the teacher's single-purpose kv table in
// state/eth2btcstate/schema.go.
var (
	accountTable = `CREATE TABLE IF NOT EXISTS account (
		address VARCHAR(42) PRIMARY KEY NOT NULL,
		balance VARCHAR(80) NOT NULL,
		isMinter BOOLEAN NOT NULL DEFAULT 0,
		isBurner BOOLEAN NOT NULL DEFAULT 0,
		isBlacklister BOOLEAN NOT NULL DEFAULT 0,
		isBlacklisted BOOLEAN NOT NULL DEFAULT 0,
		CONSTRAINT chk_balance CHECK (balance >= '0')
	);`

	epochTable = `CREATE TABLE IF NOT EXISTS epoch (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		lastEpoch BIGINT UNSIGNED NOT NULL,
		lastMintLimit VARCHAR(80) NOT NULL
	);`
)
