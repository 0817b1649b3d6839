package registry

import "errors"

// Grouped by the error kinds of spec.md §7.
var (
	// authorization
	ErrNotOwner    = errors.New("registry: caller is not the owner")
	ErrNotRouter   = errors.New("registry: caller is not the configured burn router")
	ErrNotMinter   = errors.New("registry: caller is not a registered minter")
	ErrNotLocker   = errors.New("registry: caller is not the locker for this target")
	ErrReentrant   = errors.New("registry: reentrant call detected")

	// validation
	ErrZeroAddress       = errors.New("registry: zero address")
	ErrZeroAmount        = errors.New("registry: amount must be > 0")
	ErrBelowMinCollateral = errors.New("registry: nativeAmount below minRequiredTNTLockedAmount")
	ErrAlreadyMinter     = errors.New("registry: address is already a registered minter")
	ErrNotCurrentlyMinter = errors.New("registry: address is not currently a registered minter")

	// state
	ErrScriptAlreadyLocker = errors.New("registry: locking script already maps to a locker")
	ErrAlreadyCandidate    = errors.New("registry: caller is already a candidate")
	ErrAlreadyLocker       = errors.New("registry: caller is already a locker")
	ErrNoSuchLocker        = errors.New("registry: no locker for given script or target")
	ErrNotCandidate        = errors.New("registry: target is not a candidate")
	ErrNotActive           = errors.New("registry: locker is not active")
	ErrNotInactive         = errors.New("registry: locker is not inactive")
	ErrOutstandingObligations = errors.New("registry: locker still has netMinted or pending slashing balance")

	// economic
	ErrInsufficientCapacity = errors.New("registry: insufficient minting capacity")
	ErrInsufficientNetMinted = errors.New("registry: amount exceeds locker's outstanding netMinted")
	ErrNotLiquidatable      = errors.New("registry: locker is not in an unhealthy state")
	ErrExceedsMaxBuyable    = errors.New("registry: collateralAmount exceeds getMaximumBuyableCollateral")
	ErrNoSlashingBalance    = errors.New("registry: locker has no outstanding slashingCoreBTCAmount")
	ErrInsufficientCollateral = errors.New("registry: removal would leave capacity negative")
)
