package registry

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/btcpeg/peg-core/btcspv"
	"github.com/btcpeg/peg-core/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var ErrCorruptAmount = errors.New("registry: stored amount is not a valid decimal integer")

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

	if _, err := db.Exec(lockerTable); err != nil {
		return nil, err
	}

	return &StateDB{db: db, stmtCache: database.NewStmtCache(db)}, nil
}

func (st *StateDB) Close() error {
	st.stmtCache.Clear()
	return st.db.Close()
}

func (st *StateDB) saveLocker(l *locker) error {
	query := `INSERT INTO locker (
		lockingScriptHex, rescueScriptHex, rescueType, targetAddress,
		nativeTokenLockedAmount, netMinted, slashingCoreBTCAmount,
		isCandidate, isLocker, inactivationTimestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(lockingScriptHex) DO UPDATE SET
		nativeTokenLockedAmount = excluded.nativeTokenLockedAmount,
		netMinted = excluded.netMinted,
		slashingCoreBTCAmount = excluded.slashingCoreBTCAmount,
		isCandidate = excluded.isCandidate,
		isLocker = excluded.isLocker,
		inactivationTimestamp = excluded.inactivationTimestamp`
	stmt := st.stmtCache.MustPrepare(query)

	_, err := stmt.Exec(
		hex.EncodeToString(l.lockingScript),
		hex.EncodeToString(l.rescueScript),
		int(l.rescueType),
		l.targetAddress.Hex(),
		l.nativeTokenLockedAmount.String(),
		l.netMinted.String(),
		l.slashingCoreBTCAmount.String(),
		l.isCandidate,
		l.isLocker,
		l.inactivationTimestamp,
	)
	return err
}

func (st *StateDB) deleteLocker(key string) error {
	query := `DELETE FROM locker WHERE lockingScriptHex = ?`
	stmt := st.stmtCache.MustPrepare(query)
	_, err := stmt.Exec(hex.EncodeToString([]byte(key)))
	return err
}

func (st *StateDB) loadInto(r *Registry) error {
	rows, err := st.db.Query(`SELECT
		lockingScriptHex, rescueScriptHex, rescueType, targetAddress,
		nativeTokenLockedAmount, netMinted, slashingCoreBTCAmount,
		isCandidate, isLocker, inactivationTimestamp
	FROM locker`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var lockingHex, rescueHex, targetHex string
		var rescueType int
		var nativeStr, netStr, slashStr string
		l := newLocker()
		if err := rows.Scan(
			&lockingHex, &rescueHex, &rescueType, &targetHex,
			&nativeStr, &netStr, &slashStr,
			&l.isCandidate, &l.isLocker, &l.inactivationTimestamp,
		); err != nil {
			return err
		}

		lockingScript, err := hex.DecodeString(lockingHex)
		if err != nil {
			return err
		}
		rescueScript, err := hex.DecodeString(rescueHex)
		if err != nil {
			return err
		}
		l.lockingScript = lockingScript
		l.rescueScript = rescueScript
		l.rescueType = btcspv.ScriptType(rescueType)
		l.targetAddress = ethcommon.HexToAddress(targetHex)

		for _, pair := range []struct {
			str string
			dst **big.Int
		}{{nativeStr, &l.nativeTokenLockedAmount}, {netStr, &l.netMinted}, {slashStr, &l.slashingCoreBTCAmount}} {
			v, ok := new(big.Int).SetString(pair.str, 10)
			if !ok {
				return ErrCorruptAmount
			}
			*pair.dst = v
		}

		key := scriptKey(l.lockingScript)
		r.lockers[key] = l
		r.targetToScript[l.targetAddress] = key
	}
	return rows.Err()
}
