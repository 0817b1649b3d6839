// Package oracle defines the native-token → BTC price oracle the
// LockerRegistry consumes (spec.md §6 "Oracle (consumed)"). Quote sourcing
// and staleness policy are the oracle's own concern and out of scope; only
// the interface and a Simulated test/demo implementation live here.
package oracle

import (
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoQuote           = errors.New("oracle: no quote set for token pair")
	ErrNonMonotonicQuote = errors.New("oracle: quote sequence violates monotonicity under strict mode")
)

// Oracle quotes how much of outputToken one unit of inputToken is worth.
// Implementations must be monotonic and bounded per quote (spec.md §6); this
// module only consumes the interface, it never re-derives a quote.
type Oracle interface {
	EquivalentOutputAmount(
		input *big.Int,
		inputDecimals, outputDecimals uint8,
		inputToken, outputToken ethcommon.Address,
	) (*big.Int, error)

	// EquivalentOutputAmountWithDiscount applies discountRatio (out of
	// bridgecfg.MaxBasisPoints) to the quote before conversion, used when
	// pricing slashed-collateral sales (spec.md §4.2).
	EquivalentOutputAmountWithDiscount(
		input *big.Int,
		inputDecimals, outputDecimals uint8,
		inputToken, outputToken ethcommon.Address,
		discountRatio uint64,
	) (*big.Int, error)
}

type pairKey struct {
	in, out ethcommon.Address
}

// Simulated is an in-memory Oracle fed fixed price points by tests and
// cmd/bridgecore, analogous to the teacher's etherman.SimulatedChain but for
// price data rather than a chain backend.
type Simulated struct {
	mu     sync.Mutex
	strict bool
	// price[pair] = numerator/denominator, i.e. 1 inputToken unit (at
	// inputDecimals) is worth numerator/denominator outputToken units (at
	// outputDecimals).
	numerator   map[pairKey]*big.Int
	denominator map[pairKey]*big.Int
	lastQuote   map[pairKey]*big.Int
}

func NewSimulated() *Simulated {
	return &Simulated{
		numerator:   make(map[pairKey]*big.Int),
		denominator: make(map[pairKey]*big.Int),
		lastQuote:   make(map[pairKey]*big.Int),
	}
}

// WithStrictMonotonicity makes subsequent SetPrice-driven quotes reject a
// price update that would make EquivalentOutputAmount return a value lower
// than the previous call returned for the same pair, for callers that
// need the "monotonic and bounded per quote" requirement enforced.
func (s *Simulated) WithStrictMonotonicity() *Simulated {
	s.strict = true
	return s
}

// SetPrice sets the price of inputToken in terms of outputToken as the
// rational numerator/denominator.
func (s *Simulated) SetPrice(inputToken, outputToken ethcommon.Address, numerator, denominator *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{inputToken, outputToken}
	s.numerator[key] = numerator
	s.denominator[key] = denominator
}

func (s *Simulated) quote(input *big.Int, inputDecimals, outputDecimals uint8, inputToken, outputToken ethcommon.Address) (*big.Int, error) {
	key := pairKey{inputToken, outputToken}
	num, ok := s.numerator[key]
	if !ok {
		return nil, ErrNoQuote
	}
	den := s.denominator[key]

	// amount_out = input * num / den, rescaled from inputDecimals to
	// outputDecimals.
	scaled := new(big.Int).Mul(input, num)
	if outputDecimals >= inputDecimals {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(outputDecimals-inputDecimals)), nil)
		scaled.Mul(scaled, scale)
	} else {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(inputDecimals-outputDecimals)), nil)
		den = new(big.Int).Mul(den, scale)
	}

	out := new(big.Int).Div(scaled, den)

	if s.strict {
		if prev, ok := s.lastQuote[key]; ok && out.Cmp(prev) < 0 {
			return nil, ErrNonMonotonicQuote
		}
		s.lastQuote[key] = out
	}

	return out, nil
}

func (s *Simulated) EquivalentOutputAmount(
	input *big.Int,
	inputDecimals, outputDecimals uint8,
	inputToken, outputToken ethcommon.Address,
) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote(input, inputDecimals, outputDecimals, inputToken, outputToken)
}

func (s *Simulated) EquivalentOutputAmountWithDiscount(
	input *big.Int,
	inputDecimals, outputDecimals uint8,
	inputToken, outputToken ethcommon.Address,
	discountRatio uint64,
) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.quote(input, inputDecimals, outputDecimals, inputToken, outputToken)
	if err != nil {
		return nil, err
	}
	out.Mul(out, big.NewInt(int64(discountRatio)))
	out.Div(out, big.NewInt(10_000))
	return out, nil
}
