// Package companion encodes pairing frames and delivers them to the ranging
// companion over its HTTP control endpoint.
package companion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

const (
	StartMarker = "DEAUTHSTART"
	EndMarker   = "DEAUTHEND"
	sep         = ":"
)

var (
	ErrFieldDelimiter = errors.New("companion: field contains the frame delimiter")
	ErrMalformedFrame = errors.New("companion: malformed frame")
)

// Encode renders m as
//
//	DEAUTHSTART:<material>:<challenge>:<credential hex>:<badge id>:<index>:DEAUTHEND
//
// Integers are decimal. The material may span lines but must not contain ':'.
func Encode(m types.PairingMessage) (string, error) {
	if err := ValidateMaterial(m.CredentialMaterial); err != nil {
		return "", err
	}
	if strings.Contains(m.Credential, sep) {
		return "", fmt.Errorf("%w: credential", ErrFieldDelimiter)
	}
	if m.ChainIndex < 0 {
		return "", fmt.Errorf("%w: negative chain index", ErrMalformedFrame)
	}

	return strings.Join([]string{
		StartMarker,
		m.CredentialMaterial,
		strconv.FormatUint(uint64(m.Challenge), 10),
		m.Credential,
		strconv.FormatUint(uint64(m.BadgeID), 10),
		strconv.Itoa(m.ChainIndex),
		EndMarker,
	}, sep), nil
}

// Parse is the inverse of Encode.
func Parse(frame string) (types.PairingMessage, error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(frame), StartMarker+sep)
	if !ok {
		return types.PairingMessage{}, fmt.Errorf("%w: missing %s", ErrMalformedFrame, StartMarker)
	}
	body, ok = strings.CutSuffix(body, sep+EndMarker)
	if !ok {
		return types.PairingMessage{}, fmt.Errorf("%w: missing %s", ErrMalformedFrame, EndMarker)
	}

	fields := strings.Split(body, sep)
	if len(fields) != 5 {
		return types.PairingMessage{}, fmt.Errorf("%w: want 5 fields, got %d", ErrMalformedFrame, len(fields))
	}

	challenge, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return types.PairingMessage{}, fmt.Errorf("%w: challenge: %v", ErrMalformedFrame, err)
	}
	badge, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return types.PairingMessage{}, fmt.Errorf("%w: badge id: %v", ErrMalformedFrame, err)
	}
	idx, err := strconv.Atoi(fields[4])
	if err != nil || idx < 0 {
		return types.PairingMessage{}, fmt.Errorf("%w: chain index %q", ErrMalformedFrame, fields[4])
	}

	return types.PairingMessage{
		CredentialMaterial: fields[0],
		Challenge:          uint32(challenge),
		Credential:         fields[2],
		BadgeID:            uint32(badge),
		ChainIndex:         idx,
	}, nil
}

// ValidateMaterial reports whether material can be carried in a frame.
func ValidateMaterial(material string) error {
	if strings.Contains(material, sep) {
		return fmt.Errorf("%w: credential material", ErrFieldDelimiter)
	}
	return nil
}
