package service

import (
	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	cryptoService "github.com/allisson/keyguard/internal/crypto/service"
)

// TokenPrefix marks keyguard API keys so they are recognizable in logs and secret scanners.
const TokenPrefix = "kg_"

// tokenEntropyBytes gives 256 bits of entropy per token.
const tokenEntropyBytes = 32

// tokenService implements TokenService using SHA-256 for token hashing.
type tokenService struct{}

// GenerateToken creates a new token from 32 random bytes.
// Returns the plain token and its SHA-256 hash.
func (t *tokenService) GenerateToken() (plainToken string, tokenHash string, err error) {
	random, err := cryptoService.RandomToken(tokenEntropyBytes)
	if err != nil {
		return "", "", err
	}

	plainToken = TokenPrefix + random
	return plainToken, t.HashToken(plainToken), nil
}

// HashToken hashes a plain text token using SHA-256.
// Returns the hash as a hexadecimal string.
func (t *tokenService) HashToken(plainToken string) string {
	return cryptoService.HashSHA256(plainToken)
}

func (t *tokenService) Prefix(plainToken string) string {
	if len(plainToken) <= apikeyDomain.KeyPrefixLength {
		return plainToken
	}
	return plainToken[:apikeyDomain.KeyPrefixLength]
}

// NewTokenService creates a new TokenService instance using SHA-256 for token hashing.
func NewTokenService() TokenService {
	return &tokenService{}
}
