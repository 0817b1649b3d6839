package burnrouter

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/btcpeg/peg-core/btcspv"
	"github.com/btcpeg/peg-core/database"
)

var ErrCorruptAmount = errors.New("burnrouter: stored amount is not a valid decimal integer")

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

	if _, err := db.Exec(burnRequestTable + usedProofTable); err != nil {
		return nil, err
	}

	return &StateDB{db: db, stmtCache: database.NewStmtCache(db)}, nil
}

func (st *StateDB) Close() error {
	st.stmtCache.Clear()
	return st.db.Close()
}

// save persists every request for lockerScript (requestIndex is advisory
// only — burnProof/disputeBurn can mutate several requests in one call, so
// the whole per-locker sequence plus the proof set are rewritten together
// rather than trying to track exactly which rows changed).
func (st *StateDB) save(r *Router, lockerScript []byte, requestIndex int) error {
	pl, ok := r.requestsByLocker[keyForScript(lockerScript)]
	if !ok {
		return nil
	}
	lockingHex := hex.EncodeToString(lockerScript)

	query := `INSERT INTO burn_request (
		lockingScriptHex, requestIdOfLocker, amount, burntAmount, sender, userScriptHex, scriptType, deadline, isTransferred
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(lockingScriptHex, requestIdOfLocker) DO UPDATE SET
		amount = excluded.amount, burntAmount = excluded.burntAmount, isTransferred = excluded.isTransferred`
	stmt := st.stmtCache.MustPrepare(query)

	for _, req := range pl.requests {
		if _, err := stmt.Exec(
			lockingHex, req.requestIdOfLocker, req.amount.String(), req.burntAmount.String(),
			req.sender.Hex(), hex.EncodeToString(req.userScript), int(req.scriptType), req.deadline, req.isTransferred,
		); err != nil {
			return err
		}
	}

	proofQuery := `INSERT OR IGNORE INTO used_burn_proof (txIdHex) VALUES (?)`
	proofStmt := st.stmtCache.MustPrepare(proofQuery)
	for txId, used := range r.isUsedAsBurnProof {
		if !used {
			continue
		}
		if _, err := proofStmt.Exec(hex.EncodeToString(txId[:])); err != nil {
			return err
		}
	}

	return nil
}

func (st *StateDB) loadInto(r *Router) error {
	rows, err := st.db.Query(`SELECT
		lockingScriptHex, requestIdOfLocker, amount, burntAmount, sender, userScriptHex, scriptType, deadline, isTransferred
	FROM burn_request ORDER BY lockingScriptHex, requestIdOfLocker`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var lockingHex, amountStr, burntStr, senderHex, userScriptHex string
		var requestId, deadline uint64
		var scriptType int
		var isTransferred bool
		if err := rows.Scan(&lockingHex, &requestId, &amountStr, &burntStr, &senderHex, &userScriptHex, &scriptType, &deadline, &isTransferred); err != nil {
			return err
		}

		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok {
			return ErrCorruptAmount
		}
		burnt, ok := new(big.Int).SetString(burntStr, 10)
		if !ok {
			return ErrCorruptAmount
		}
		userScript, err := hex.DecodeString(userScriptHex)
		if err != nil {
			return err
		}
		lockingScript, err := hex.DecodeString(lockingHex)
		if err != nil {
			return err
		}

		req := &burnRequest{
			amount: amount, burntAmount: burnt, sender: ethcommon.HexToAddress(senderHex),
			userScript: userScript, scriptType: btcspv.ScriptType(scriptType),
			deadline: deadline, isTransferred: isTransferred, requestIdOfLocker: requestId,
		}

		key := keyForScript(lockingScript)
		pl, ok := r.requestsByLocker[key]
		if !ok {
			pl = &perLocker{}
			r.requestsByLocker[key] = pl
		}
		pl.requests = append(pl.requests, req)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	proofRows, err := st.db.Query(`SELECT txIdHex FROM used_burn_proof`)
	if err != nil {
		return err
	}
	defer proofRows.Close()

	for proofRows.Next() {
		var txIdHex string
		if err := proofRows.Scan(&txIdHex); err != nil {
			return err
		}
		raw, err := hex.DecodeString(txIdHex)
		if err != nil {
			return err
		}
		var txId chainhash.Hash
		copy(txId[:], raw)
		r.isUsedAsBurnProof[txId] = true
	}
	return proofRows.Err()
}
