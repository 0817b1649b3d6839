package ledger

import (
	"database/sql"
	"math/big"

	"github.com/btcpeg/peg-core/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// StateDB persists Ledger state to sqlite, modeled on
// state/eth2btcstate/statedb.go's sql.DB-plus-StmtCache shape.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(driverName, dataSourceName string) (*StateDB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if _, err := db.Exec(accountTable + epochTable); err != nil {
		return nil, err
	}

	return &StateDB{
		db:        db,
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() error {
	st.stmtCache.Clear()
	return st.db.Close()
}

func (st *StateDB) saveAccount(addr ethcommon.Address, a *account, epoch *EpochState) error {
	query := `INSERT INTO account (address, balance, isMinter, isBurner, isBlacklister, isBlacklisted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			balance = excluded.balance,
			isMinter = excluded.isMinter,
			isBurner = excluded.isBurner,
			isBlacklister = excluded.isBlacklister,
			isBlacklisted = excluded.isBlacklisted`
	stmt := st.stmtCache.MustPrepare(query)

	if _, err := stmt.Exec(
		addr.Hex(),
		a.balance.String(),
		a.isMinter,
		a.isBurner,
		a.isBlacklister,
		a.isBlacklisted,
	); err != nil {
		return err
	}

	epochQuery := `INSERT INTO epoch (id, lastEpoch, lastMintLimit) VALUES (0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET lastEpoch = excluded.lastEpoch, lastMintLimit = excluded.lastMintLimit`
	epochStmt := st.stmtCache.MustPrepare(epochQuery)
	_, err := epochStmt.Exec(epoch.LastEpoch, epoch.LastMintLimit.String())
	return err
}

// loadInto hydrates l.accounts and l.epoch from persisted rows. Called once
// from New; the totalSupply is rederived as the sum of loaded balances
// rather than stored separately, so it can never drift from invariant I1.
func (st *StateDB) loadInto(l *Ledger) error {
	rows, err := st.db.Query(`SELECT address, balance, isMinter, isBurner, isBlacklister, isBlacklisted FROM account`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var addrHex, balanceStr string
		a := newAccount()
		if err := rows.Scan(&addrHex, &balanceStr, &a.isMinter, &a.isBurner, &a.isBlacklister, &a.isBlacklisted); err != nil {
			return err
		}
		bal, ok := new(big.Int).SetString(balanceStr, 10)
		if !ok {
			return ErrCorruptBalance
		}
		a.balance = bal

		addr := ethcommon.HexToAddress(addrHex)
		l.accounts[addr] = a
		l.totalSupply.Add(l.totalSupply, bal)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var lastEpoch uint64
	var lastMintLimitStr string
	row := st.db.QueryRow(`SELECT lastEpoch, lastMintLimit FROM epoch WHERE id = 0`)
	switch err := row.Scan(&lastEpoch, &lastMintLimitStr); err {
	case nil:
		lastMintLimit, ok := new(big.Int).SetString(lastMintLimitStr, 10)
		if !ok {
			return ErrCorruptBalance
		}
		l.epoch.LastEpoch = lastEpoch
		l.epoch.LastMintLimit = lastMintLimit
	case sql.ErrNoRows:
		// no epoch row yet; the initial EpochState set by New stands.
	default:
		return err
	}

	return nil
}
