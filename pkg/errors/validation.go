package errors

import (
	"strings"
	"unicode"
)

// Community detection algorithms understood by the detection service.
const (
	AlgorithmLouvain          = "louvain"
	AlgorithmGirvanNewman     = "girvan_newman"
	AlgorithmGreedyModularity = "greedy_modularity"
)

// ValidateAlgorithm checks that name is a known detection algorithm.
func ValidateAlgorithm(name string) error {
	switch name {
	case AlgorithmLouvain, AlgorithmGirvanNewman, AlgorithmGreedyModularity:
		return nil
	}
	return New(ErrCodeInvalidAlgorithm,
		"unknown algorithm: %s. Supported: louvain, girvan_newman, greedy_modularity", name)
}

// ValidateID validates a research or session identifier for safety.
// IDs end up in file names and cache keys, so the rules are conservative:
//   - No empty ids
//   - Maximum length of 128 characters
//   - No control characters
//   - No path separators or traversal sequences
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidID, "id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "id contains invalid control characters")
		}
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return New(ErrCodeInvalidID, "id contains invalid characters: %q", id)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
