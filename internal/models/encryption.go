package models

// Parameters for AES-256-GCM encryption of local store fields.
const (
	KeySize    = 32
	NonceSize  = 12
	Iterations = 100000
)
