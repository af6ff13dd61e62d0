package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/companion"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// Transport delivers an encoded frame to the ranging companion.
type Transport interface {
	Send(ctx context.Context, frame string) error
}

// EpochStarter starts a fresh telemetry epoch. Implemented by Engine.
type EpochStarter interface {
	BeginEpoch() uint64
}

// HandshakeListener is told about every completed Initiate call.
type HandshakeListener func(msg types.PairingMessage, err error)

// Handshake results reported to Observer.Handshake.
const (
	HandshakeOK        = "ok"
	HandshakeNoBadge   = "no_badge"
	HandshakeExhausted = "exhausted"
	HandshakeTransport = "transport"
	HandshakeError     = "error"
)

type PairingDeps struct {
	Registry    *BadgeRegistry
	Credentials *Credentials
	Transport   Transport
	Epochs      EpochStarter
	Logger      *slog.Logger
	Observer    Observer
	Listeners   []HandshakeListener

	// ReadMaterial loads the badge's credential material. Defaults to
	// reading the file named by the badge's CredentialRef.
	ReadMaterial func(ref string) (string, error)
	// Challenge defaults to a crypto-random uint32.
	Challenge func() (uint32, error)
}

// Pairing sends a fresh one-time credential to the companion when the user
// returns to the workstation. Calls are serialized.
type Pairing struct {
	d  PairingDeps
	mu sync.Mutex
}

func NewPairing(d PairingDeps) *Pairing {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Observer = orNop(d.Observer)
	if d.ReadMaterial == nil {
		d.ReadMaterial = readMaterialFile
	}
	if d.Challenge == nil {
		d.Challenge = randomChallenge
	}
	return &Pairing{d: d}
}

// Initiate runs one handshake for identity. Nothing is transmitted and no
// chain value is consumed when the badge is unknown or its material cannot
// be read. A failed transmission is not retried; the consumed value is
// simply skipped.
func (p *Pairing) Initiate(ctx context.Context, identity string) (msg types.PairingMessage, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() { p.report(identity, msg, err) }()

	badge, err := p.d.Registry.Lookup(ctx, identity)
	if err != nil {
		return types.PairingMessage{}, err
	}

	material, err := p.d.ReadMaterial(badge.CredentialRef)
	if err != nil {
		return types.PairingMessage{}, fmt.Errorf("%w: %s: %w", ErrCredentialUnreadable, badge.CredentialRef, err)
	}
	if err := companion.ValidateMaterial(material); err != nil {
		return types.PairingMessage{}, fmt.Errorf("%w: %w", ErrCredentialUnreadable, err)
	}

	challenge, err := p.d.Challenge()
	if err != nil {
		return types.PairingMessage{}, fmt.Errorf("generate challenge: %w", err)
	}

	cred, err := p.d.Credentials.Next(ctx, badge.BadgeID)
	if err != nil {
		return types.PairingMessage{}, err
	}

	msg = types.PairingMessage{
		CredentialMaterial: material,
		Challenge:          challenge,
		Credential:         cred.Hex(),
		BadgeID:            badge.BadgeID,
		ChainIndex:         cred.Index,
	}
	frame, err := companion.Encode(msg)
	if err != nil {
		return msg, err
	}

	if err := p.d.Transport.Send(ctx, frame); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	if p.d.Epochs != nil {
		p.d.Epochs.BeginEpoch()
	}
	return msg, nil
}

func (p *Pairing) report(identity string, msg types.PairingMessage, err error) {
	result := HandshakeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrBadgeNotFound):
		result = HandshakeNoBadge
	case IsFatalPairing(err):
		result = HandshakeExhausted
	case errors.Is(err, ErrTransportFailure):
		result = HandshakeTransport
	default:
		result = HandshakeError
	}
	p.d.Observer.Handshake(result)

	if err != nil {
		level := slog.LevelWarn
		if IsFatalPairing(err) {
			level = slog.LevelError
		}
		p.d.Logger.Log(context.Background(), level, "pairing.failed",
			"identity", identity, "result", result, "chain_index", msg.ChainIndex, "err", err)
	} else {
		p.d.Logger.Info("pairing.sent",
			"identity", identity, "badge_id", msg.BadgeID, "chain_index", msg.ChainIndex)
	}

	for _, l := range p.d.Listeners {
		l(msg, err)
	}
}

func readMaterialFile(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("no credential reference")
	}
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func randomChallenge() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
