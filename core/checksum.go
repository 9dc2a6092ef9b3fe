package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ComputeSHA256 computes the SHA256 hash of a file and returns it as a
// lowercase hexadecimal string (64 characters). Used to verify model
// weight files against registry checksums.
func ComputeSHA256(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("filepath cannot be empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %q: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ComputeSHA256FromReader computes the SHA256 hash of a stream.
func ComputeSHA256FromReader(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader cannot be nil")
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 compares a file's SHA256 against an expected hex digest,
// case-insensitively. Returns an error when the file cannot be read or
// the digests differ.
func VerifySHA256(path, expected string) error {
	actual, err := ComputeSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %q: got %s, want %s", path, actual, strings.ToLower(expected))
	}
	return nil
}
