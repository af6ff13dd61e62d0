package types

// BadgeRecord maps a local identity to the badge paired with it.
type BadgeRecord struct {
	Identity      string
	BadgeID       uint32
	CredentialRef string // path to the badge's public key material
}

// PairingMessage carries the fields sent to the ranging companion on an
// unlock edge.
type PairingMessage struct {
	CredentialMaterial string
	Challenge          uint32
	Credential         string // hex-encoded hash-chain value
	BadgeID            uint32
	ChainIndex         int
}
