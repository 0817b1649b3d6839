package btcspv

import "errors"

// ScriptType enumerates the five Bitcoin output script templates the bridge
// understands (spec.md §6). The bridge core never needs to *produce* these
// scripts — only to recognize whether a given output pays a given raw
// payload under a given template — so ScriptType carries just enough to
// drive that match.
type ScriptType uint8

const (
	ScriptTypeP2PK ScriptType = iota
	ScriptTypeP2PKH
	ScriptTypeP2SH
	ScriptTypeP2WPKH
	ScriptTypeP2WSH
	ScriptTypeP2TR
)

func (t ScriptType) String() string {
	switch t {
	case ScriptTypeP2PK:
		return "P2PK"
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeP2SH:
		return "P2SH"
	case ScriptTypeP2WPKH:
		return "P2WPKH"
	case ScriptTypeP2WSH:
		return "P2WSH"
	case ScriptTypeP2TR:
		return "P2TR"
	default:
		return "unknown"
	}
}

var ErrUnknownScriptType = errors.New("unknown bitcoin script type")

// PayloadSize returns the expected raw-payload length for the type: 20
// bytes for a hash160-keyed template, 32 bytes for a full-width one
// (spec.md §3, §6).
func (t ScriptType) PayloadSize() (int, error) {
	switch t {
	case ScriptTypeP2PKH, ScriptTypeP2SH, ScriptTypeP2WPKH:
		return 20, nil
	case ScriptTypeP2PK, ScriptTypeP2WSH, ScriptTypeP2TR:
		return 32, nil
	default:
		return 0, ErrUnknownScriptType
	}
}

// ValidateUserScriptLength enforces spec.md §3's rule that userScript must
// be exactly 20 bytes for {P2PKH,P2SH,P2WPKH} or 32 bytes for
// {P2PK,P2WSH,P2TR}.
func ValidateUserScriptLength(t ScriptType, script []byte) error {
	size, err := t.PayloadSize()
	if err != nil {
		return err
	}
	if len(script) != size {
		return ErrInvalidScriptLength
	}
	return nil
}
